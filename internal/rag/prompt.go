package rag

import (
	"fmt"
	"strings"
)

// Prompt templates.
const (
	TemplateStrict   = "strict"
	TemplateFallback = "fallback"
	TemplateNone     = "none"
)

// Prompt is the generation input: instructions and the user turn.
type Prompt struct {
	Template string
	System   string
	User     string
}

// Len is the prompt size in bytes.
func (p Prompt) Len() int {
	return len(p.System) + len(p.User)
}

// AssemblePrompt builds the strict-citation prompt when grounded is true and
// the general-knowledge prompt otherwise. Passages keep their ranked order.
func AssemblePrompt(question string, passages []Passage, grounded bool, ph Phrases) Prompt {
	if grounded {
		return strictPrompt(question, passages, ph)
	}
	return fallbackPrompt(question, passages, ph)
}

func formatPassages(passages []Passage) string {
	var b strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&b, "[Source: %s]\n%s\n---\n", p.Reference, strings.TrimSpace(p.Content))
	}
	return b.String()
}

func strictPrompt(question string, passages []Passage, ph Phrases) Prompt {
	var sys strings.Builder
	sys.WriteString("You are a scholar of the teachings of Rabbi Nachman of Breslov.\n")
	fmt.Fprintf(&sys, "Answer in %s.\n\n", ph.LanguageName)
	sys.WriteString("STRICT RULES:\n")
	sys.WriteString("1. Use ONLY the passages supplied by the user. Never use general knowledge.\n")
	sys.WriteString("2. Quote the exact sentence first, then cite it as [Source: reference] using the reference shown above the passage.\n")
	sys.WriteString("3. If the passage is in Hebrew, quote the Hebrew, then translate it.\n")
	fmt.Fprintf(&sys, "4. If no passage answers the question, reply exactly: %q\n", ph.Refusal)
	sys.WriteString("5. Keep the explanation under 150 words. No \"Context\" or \"Key points\" sections.\n")

	var user strings.Builder
	user.WriteString("PASSAGES:\n")
	user.WriteString(formatPassages(passages))
	fmt.Fprintf(&user, "\nQUESTION: %s\n\n", strings.TrimSpace(question))
	fmt.Fprintf(&user, "Reminder: answer only from the passages above and cite each claim with [Source: reference]. If none applies, reply exactly: %q", ph.Refusal)

	return Prompt{Template: TemplateStrict, System: sys.String(), User: user.String()}
}

func fallbackPrompt(question string, passages []Passage, ph Phrases) Prompt {
	var sys strings.Builder
	sys.WriteString("You are a spiritual guide grounded in the teachings of Rabbi Nachman of Breslov.\n")
	fmt.Fprintf(&sys, "Answer in %s.\n\n", ph.LanguageName)
	sys.WriteString("Begin your answer with this sentence, verbatim:\n")
	fmt.Fprintf(&sys, "%s\n\n", ph.FallbackDisclosure)
	sys.WriteString("Then answer from general knowledge of Rabbi Nachman's teachings, in a respectful tone, in at most four paragraphs. ")
	sys.WriteString("If you use the partial context, cite it with [Source: reference].\n")

	var user strings.Builder
	user.WriteString("PARTIAL CONTEXT:\n")
	if len(passages) == 0 {
		fmt.Fprintf(&user, "%s\n", ph.NoPartialContext)
	} else {
		user.WriteString(formatPassages(passages))
	}
	fmt.Fprintf(&user, "\nQUESTION: %s", strings.TrimSpace(question))

	return Prompt{Template: TemplateFallback, System: sys.String(), User: user.String()}
}
