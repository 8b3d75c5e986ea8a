package rag

import (
	"regexp"
	"strings"
)

type stripRule struct {
	name    string
	pattern *regexp.Regexp
}

// stripRules run in order. Each removes a structural section the generation
// step sometimes adds; none of them matches a synthesized sources line.
var stripRules = []stripRule{
	{"code_fence", regexp.MustCompile("(?s)```.*?```")},
	{"context_div", regexp.MustCompile(`(?is)<div[^>]*class="[^"]*context[^"]*"[^>]*>.*?</div>`)},
	{"context_rule", regexp.MustCompile(`(?is)---[ \t]*(?:contexte|context)\b.*?---`)},
	{"summary_section", regexp.MustCompile(`(?im)^[ \t]*(?:[-*][ \t]+)?\*\*[ \t]*(?:points principaux|en résumé|in summary)[^*\n]*\*\*[^\n]*(?:\n[^\n]*\S[^\n]*)*`)},
	{"bold_heading", regexp.MustCompile(`(?i)\*\*[ \t]*(?:contexte|context|points[- ]cl[ée]s|key points|points)[^*\n]*\*\*[ \t]*:?[ \t]*`)},
	{"heading_section", regexp.MustCompile(`(?im)^#{2,3}[ \t]*(?:contexte|context|points|key points)[^\n]*(?:\n(?:[^#\n][^\n]*)?)*`)},
}

var (
	orphanBulletPattern = regexp.MustCompile(`(?m)^[ \t]*[-*•][ \t]*$`)
	blankRunPattern     = regexp.MustCompile(`\n{3,}`)
	trailingSpace       = regexp.MustCompile(`(?m)[ \t]+$`)
	bracketPattern      = regexp.MustCompile(`\[([^\]]+)\]`)
)

// maxStripPasses bounds the fixed-point loop; each pass only shrinks the text.
const maxStripPasses = 8

// StripNoise removes disallowed sections, orphan bullet markers and runs of
// blank lines, repeating until the text no longer changes.
func StripNoise(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i := 0; i < maxStripPasses; i++ {
		next := text
		for _, rule := range stripRules {
			next = rule.pattern.ReplaceAllString(next, "")
		}
		next = orphanBulletPattern.ReplaceAllString(next, "")
		next = trailingSpace.ReplaceAllString(next, "")
		next = blankRunPattern.ReplaceAllString(next, "\n\n")
		next = strings.TrimSpace(next)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// HasCitation reports whether text carries a bracketed marker containing one
// of the passages' reference strings.
func HasCitation(text string, passages []Passage) bool {
	for _, m := range bracketPattern.FindAllStringSubmatch(text, -1) {
		inner := strings.ToLower(m[1])
		for _, p := range passages {
			if p.Reference != "" && strings.Contains(inner, strings.ToLower(p.Reference)) {
				return true
			}
		}
	}
	return false
}

// SourcesLine lists the passages' references as bracketed citations.
func SourcesLine(passages []Passage, ph Phrases) string {
	refs := make([]string, 0, len(passages))
	seen := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		if _, ok := seen[p.Reference]; ok {
			continue
		}
		seen[p.Reference] = struct{}{}
		refs = append(refs, "["+p.Reference+"]")
	}
	return "**" + ph.SourcesLabel + ":** " + strings.Join(refs, ", ")
}

// Validate turns a raw generated answer into the final one:
//   - noise sections are stripped;
//   - with passages, a sources line is appended unless a passage is already cited;
//   - without passages, anything but an explicit admission becomes the refusal.
//
// Validate(Validate(x)) == Validate(x).
func Validate(raw string, passages []Passage, ph Phrases) string {
	text := StripNoise(raw)

	if len(passages) == 0 {
		if text == "" || !HasAdmission(text) {
			return ph.Refusal
		}
		return text
	}

	if HasCitation(text, passages) {
		return text
	}
	if text == "" {
		return SourcesLine(passages, ph)
	}
	return text + "\n\n" + SourcesLine(passages, ph)
}
