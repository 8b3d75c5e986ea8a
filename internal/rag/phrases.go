package rag

import "strings"

// Phrases are the fixed user-facing sentences of one answer language.
type Phrases struct {
	Language     string
	LanguageName string
	// Refusal replaces any answer that cannot be grounded.
	Refusal string
	// FallbackDisclosure opens every answer given from general knowledge.
	FallbackDisclosure string
	// NoPartialContext stands in for passages in the fallback prompt.
	NoPartialContext string
	// SourcesLabel introduces synthesized citations.
	SourcesLabel string
	// GenerationFailed opens the answer built when generation fails.
	GenerationFailed string
	// PassagesFound introduces the passages listed after GenerationFailed.
	PassagesFound string
}

var phrases = map[string]Phrases{
	"fr": {
		Language:           "fr",
		LanguageName:       "French",
		Refusal:            "❗ Je n'ai pas trouvé de passage pertinent dans les textes fournis.",
		FallbackDisclosure: "⚠️ Cette réponse est basée sur la connaissance générale des enseignements de Rabbi Nahman, car aucun passage spécifique n'a été trouvé dans les textes fournis.",
		NoPartialContext:   "Aucun passage spécifique trouvé dans les textes fournis.",
		SourcesLabel:       "Sources consultées",
		GenerationFailed:   "❗ Erreur lors de la génération de la réponse.",
		PassagesFound:      "Voici les passages trouvés :",
	},
	"en": {
		Language:           "en",
		LanguageName:       "English",
		Refusal:            "❗ I could not find a relevant passage in the provided texts.",
		FallbackDisclosure: "⚠️ This answer is based on general knowledge of Rabbi Nachman's teachings, because no specific passage was found in the provided texts.",
		NoPartialContext:   "No specific passage found in the provided texts.",
		SourcesLabel:       "Sources consulted",
		GenerationFailed:   "❗ An error occurred while generating the answer.",
		PassagesFound:      "Here are the passages found:",
	},
	"he": {
		Language:           "he",
		LanguageName:       "Hebrew",
		Refusal:            "❗ לא נמצא קטע רלוונטי בטקסטים שסופקו.",
		FallbackDisclosure: "⚠️ תשובה זו מבוססת על ידע כללי בתורת רבי נחמן, כי לא נמצא קטע מסוים בטקסטים שסופקו.",
		NoPartialContext:   "לא נמצא קטע מסוים בטקסטים שסופקו.",
		SourcesLabel:       "מקורות שנבדקו",
		GenerationFailed:   "❗ אירעה שגיאה ביצירת התשובה.",
		PassagesFound:      "אלה הקטעים שנמצאו:",
	},
}

// admissions are the ways an answer may state that no passage applies, in any
// supported language.
var admissions = []string{
	"aucun passage",
	"n'ai pas trouvé",
	"no relevant passage",
	"no specific passage",
	"no passage found",
	"could not find",
	"לא נמצא",
}

// PhrasesFor returns the phrases of lang and whether it is supported.
func PhrasesFor(lang string) (Phrases, bool) {
	p, ok := phrases[lang]
	return p, ok
}

// SupportedLanguage reports whether lang has phrases.
func SupportedLanguage(lang string) bool {
	_, ok := phrases[lang]
	return ok
}

// HasAdmission reports whether text says that no passage was found.
func HasAdmission(text string) bool {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	return containsAny(lower, admissions)
}
