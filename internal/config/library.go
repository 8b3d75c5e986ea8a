package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LibraryConfig is the catalog of books plus the curated vocabulary shared by
// the chunker, the scorer and the query router.
type LibraryConfig struct {
	Books        []BookConfig        `yaml:"books"`
	Vocabulary   []string            `yaml:"vocabulary"`
	RoutingHints []string            `yaml:"routing_hints"`
	Associations []AssociationConfig `yaml:"associations"`
	Weights      WeightsConfig       `yaml:"weights"`
}

// BookConfig describes one source file of the library.
type BookConfig struct {
	ID       string            `yaml:"id"`
	File     string            `yaml:"file"`
	Language string            `yaml:"language"` // french, english, hebrew or mixed; empty means detect
	Titles   map[string]string `yaml:"titles"`   // keyed by fr, en, he
}

// AssociationConfig is a hand-authored domain bonus: when the query mentions any
// of QueryTerms and the passage contains one of PassageTerms, Bonus is added per
// matching passage term.
type AssociationConfig struct {
	Name         string   `yaml:"name"`
	QueryTerms   []string `yaml:"query_terms"`
	PassageTerms []string `yaml:"passage_terms"`
	Bonus        float64  `yaml:"bonus"`
	RTLOnly      bool     `yaml:"rtl_only"`
}

// WeightsConfig holds the additive scoring weights.
type WeightsConfig struct {
	TermHit     float64 `yaml:"term_hit"`
	Occurrence  float64 `yaml:"occurrence"`
	Keyword     float64 `yaml:"keyword"`
	ExactPhrase float64 `yaml:"exact_phrase"`
}

// LoadLibrary reads a library catalog from path. If the file does not exist the
// built-in Breslov catalog is returned.
func LoadLibrary(path string) (*LibraryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultLibrary(), nil
		}
		return nil, fmt.Errorf("failed to read library config %s: %w", path, err)
	}

	var lib LibraryConfig
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("failed to parse library config %s: %w", path, err)
	}
	applyLibraryDefaults(&lib)

	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks that book ids are unique and every book names a file.
func (l *LibraryConfig) Validate() error {
	seen := make(map[string]struct{}, len(l.Books))
	for i, b := range l.Books {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("library book %d: id is required", i)
		}
		if strings.TrimSpace(b.File) == "" {
			return fmt.Errorf("library book %s: file is required", b.ID)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("library book %s: duplicate id", b.ID)
		}
		seen[b.ID] = struct{}{}
		switch b.Language {
		case "", "french", "english", "hebrew", "mixed":
		default:
			return fmt.Errorf("library book %s: unknown language %q", b.ID, b.Language)
		}
	}
	for _, a := range l.Associations {
		if a.Bonus < 0 {
			return fmt.Errorf("association %s: bonus must not be negative", a.Name)
		}
	}
	return nil
}

func applyLibraryDefaults(lib *LibraryConfig) {
	defaults := DefaultLibrary()
	if len(lib.Vocabulary) == 0 {
		lib.Vocabulary = defaults.Vocabulary
	}
	if len(lib.RoutingHints) == 0 {
		lib.RoutingHints = defaults.RoutingHints
	}
	if lib.Associations == nil {
		lib.Associations = defaults.Associations
	}
	if lib.Weights == (WeightsConfig{}) {
		lib.Weights = defaults.Weights
	}
}

// DefaultLibrary returns the built-in catalog of the Breslov corpus.
func DefaultLibrary() *LibraryConfig {
	return &LibraryConfig{
		Books: []BookConfig{
			{ID: "chayei-moharan-fr", File: "chayei_moharan_fr.txt", Language: "french", Titles: map[string]string{
				"fr": "Chayei Moharan (Vie de Rabbi Nahman)", "en": "Chayei Moharan", "he": "חיי מוהר\"ן",
			}},
			{ID: "likutei-moharan", File: "likutei_moharan.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Likoutey Moharan", "en": "Likutei Moharan", "he": "ליקוטי מוהר\"ן",
			}},
			{ID: "likutei-moharan-tinyana", File: "likutei_moharan_tinyana.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Likoutey Moharan Tinyana", "en": "Likutei Moharan Tinyana", "he": "ליקוטי מוהר\"ן תנינא",
			}},
			{ID: "sippurei-maasiyot", File: "sippurei_maasiyot.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Les Contes de Rabbi Nahman", "en": "Sippurei Maasiyot", "he": "סיפורי מעשיות",
			}},
			{ID: "hishtapchut-hanefesh", File: "hishtapchut_hanefesh.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Hishtapkhout HaNefesh", "en": "Hishtapchut HaNefesh", "he": "השתפכות הנפש",
			}},
			{ID: "likutei-etzot", File: "likutei_etzot.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Likoutey Etsot", "en": "Likutei Etzot", "he": "ליקוטי עצות",
			}},
			{ID: "yemei-moharnat", File: "yemei_moharnat.txt", Language: "hebrew", Titles: map[string]string{
				"fr": "Yemey Moharnat", "en": "Yemei Moharnat", "he": "ימי מוהרנ\"ת",
			}},
		},
		Vocabulary: []string{
			"rabbi nahman", "rabbi nachman", "breslov", "breslev", "moharan", "likutei", "chayei",
			"sippurei", "lemberg", "ouman", "uman", "hitbodedut", "tikkun", "tsaddik", "tzaddik",
			"torah", "prière", "prayer", "joie", "joy", "emouna", "emunah", "teshouva", "teshuva",
			"shabbat", "rosh hashana", "conte", "tale",
			"תורה", "תפילה", "שמחה", "התבודדות", "צדיק", "תשובה", "אמונה", "למברג", "אומן",
		},
		RoutingHints: []string{
			"likutei", "likoutey", "chayei", "hayei", "sippurei", "moharan", "moharnat", "etzot", "etsot",
			"hishtapchut", "rabbi nahman", "rabbi nachman", "rabbenou", "rebbe nachman", "breslov", "breslev",
			"lemberg", "ouman", "uman", "hitbodedut", "tikkun", "tsaddik", "tzaddik", "conte", "tale",
			"prière", "prayer", "torah", "enseignement", "teaching", "emouna", "emunah", "teshouva", "teshuva",
			"joie", "joy", "ליקוטי", "חיי מוהר", "סיפורי מעשיות", "רבי נחמן", "תורה", "תפילה", "התבודדות",
		},
		Associations: []AssociationConfig{
			{Name: "lemberg-hebrew", QueryTerms: []string{"lemberg"}, PassageTerms: []string{"למברג", "לעמבערג"}, Bonus: 25, RTLOnly: true},
			{Name: "fly-hebrew", QueryTerms: []string{"mouche", "fly"}, PassageTerms: []string{"זבוב"}, Bonus: 25, RTLOnly: true},
			{Name: "spider-hebrew", QueryTerms: []string{"araignée", "spider"}, PassageTerms: []string{"עכביש"}, Bonus: 25, RTLOnly: true},
			{Name: "tale-hebrew", QueryTerms: []string{"conte", "tale", "story"}, PassageTerms: []string{"מעשה", "סיפור"}, Bonus: 25, RTLOnly: true},
			{Name: "prayer-hebrew", QueryTerms: []string{"prière", "prayer"}, PassageTerms: []string{"תפילה", "תפלה"}, Bonus: 25, RTLOnly: true},
			{Name: "torah-hebrew", QueryTerms: []string{"torah"}, PassageTerms: []string{"תורה"}, Bonus: 25, RTLOnly: true},
			{Name: "rabbi-hebrew", QueryTerms: []string{"rabbi"}, PassageTerms: []string{"רבי", "רבנו"}, Bonus: 25, RTLOnly: true},
			{Name: "lemberg-journey", QueryTerms: []string{"lemberg"}, PassageTerms: []string{"voyage", "journey", "souccot", "sukkot"}, Bonus: 50},
		},
		Weights: WeightsConfig{
			TermHit:     10,
			Occurrence:  5,
			Keyword:     15,
			ExactPhrase: 20,
		},
	}
}
