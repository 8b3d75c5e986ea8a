// Package speech turns answer and passage text into audio, either through a
// speech provider with a SQLite audio cache or by handing the text back for
// in-browser synthesis.
package speech

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_provider.go -package=mocks breslov-ai/internal/speech Provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"breslov-ai/internal/contextutil"
	"breslov-ai/internal/metrics"
	"breslov-ai/internal/storage"
)

// MaxTextLength is the longest text, in characters, sent to a provider.
const MaxTextLength = 5000

const (
	ProviderServer  = "server"
	ProviderBrowser = "browser"
)

var (
	// ErrEmptyText is returned when nothing speakable remains after cleaning.
	ErrEmptyText = errors.New("text is empty")
	// ErrUnsupportedLanguage is returned for languages other than fr, en and he.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Voice describes how one language is spoken.
type Voice struct {
	Locale string // BCP-47 tag used by browsers
	Name   string // provider voice
}

var voices = map[string]Voice{
	"fr": {Locale: "fr-FR", Name: "onyx"},
	"en": {Locale: "en-US", Name: "onyx"},
	"he": {Locale: "he-IL", Name: "onyx"},
}

// VoiceFor returns the voice for a language code.
func VoiceFor(language string) (Voice, bool) {
	v, ok := voices[language]
	return v, ok
}

// AudioRef tells the client where to get audio for a text.
type AudioRef struct {
	Provider  string `json:"provider"`
	AudioID   string `json:"audio_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Language  string `json:"language"`
	Voice     string `json:"voice"`
	Text      string `json:"text"`
	FromCache bool   `json:"from_cache"`
}

// Provider synthesizes audio.
type Provider interface {
	Synthesize(ctx context.Context, text, voice string) (audio []byte, contentType string, err error)
}

// Synthesizer resolves text to an AudioRef.
type Synthesizer struct {
	provider  Provider
	store     storage.AudioStore
	urlPrefix string
	metrics   *metrics.Metrics
}

// NewSynthesizer creates a Synthesizer. Without a provider or a store every
// request gets a browser reference. urlPrefix is joined with the audio id to
// build AudioRef.URL.
func NewSynthesizer(provider Provider, store storage.AudioStore, urlPrefix string, m *metrics.Metrics) *Synthesizer {
	return &Synthesizer{
		provider:  provider,
		store:     store,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		metrics:   m,
	}
}

// Synthesize returns a reference to audio for text in language. Provider and
// cache failures degrade to a browser reference; only invalid input is an
// error.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) (*AudioRef, error) {
	logger := contextutil.LoggerFromContext(ctx)

	voice, ok := VoiceFor(language)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, ErrEmptyText
	}

	browser := &AudioRef{
		Provider: ProviderBrowser,
		Language: language,
		Voice:    voice.Locale,
		Text:     cleaned,
	}
	if s.provider == nil || s.store == nil {
		return browser, nil
	}

	hash := HashText(cleaned, language)
	cached, err := s.store.GetByKey(ctx, language, hash)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup("audio", true)
		return s.serverRef(cached.ID, language, voice, cleaned, true), nil
	case errors.Is(err, storage.ErrNotFound):
		s.metrics.RecordCacheLookup("audio", false)
	default:
		logger.WarnContext(ctx, "audio cache lookup failed", "error", err)
	}

	audio, contentType, err := s.provider.Synthesize(ctx, cleaned, voice.Name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WarnContext(ctx, "speech synthesis failed, using browser fallback", "language", language, "error", err)
		return browser, nil
	}

	rec := &storage.AudioRecord{
		Language:    language,
		TextHash:    hash,
		Voice:       voice.Name,
		ContentType: contentType,
		Audio:       audio,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		logger.WarnContext(ctx, "failed to cache audio, using browser fallback", "error", err)
		return browser, nil
	}

	logger.InfoContext(ctx, "synthesized speech", "language", language, "chars", utf8.RuneCountInString(cleaned), "bytes", len(audio))
	return s.serverRef(rec.ID, language, voice, cleaned, false), nil
}

func (s *Synthesizer) serverRef(id, language string, voice Voice, text string, fromCache bool) *AudioRef {
	return &AudioRef{
		Provider:  ProviderServer,
		AudioID:   id,
		URL:       s.urlPrefix + "/" + id,
		Language:  language,
		Voice:     voice.Name,
		Text:      text,
		FromCache: fromCache,
	}
}

// Audio returns stored audio by id, or storage.ErrNotFound.
func (s *Synthesizer) Audio(ctx context.Context, id string) (*storage.AudioRecord, error) {
	if s.store == nil {
		return nil, storage.ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	markdownPattern   = regexp.MustCompile("[*`_~#]")
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText removes markup and URLs, collapses whitespace and truncates to
// MaxTextLength characters.
func CleanText(text string) string {
	cleaned := htmlTagPattern.ReplaceAllString(text, "")
	cleaned = markdownPattern.ReplaceAllString(cleaned, "")
	cleaned = urlPattern.ReplaceAllString(cleaned, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) > MaxTextLength {
		runes := []rune(cleaned)
		cleaned = string(runes[:MaxTextLength-3]) + "..."
	}
	return cleaned
}

// HashText is the audio cache key for a cleaned text in a language.
func HashText(text, language string) string {
	sum := sha256.Sum256([]byte(text + language))
	return hex.EncodeToString(sum[:])[:16]
}
