// Package postprocess strips chat-model artifacts from translations returned
// by LLM-backed engine providers.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	// Closed reasoning blocks. RE2 has no backreferences, so each tag is
	// spelled out.
	reasoningBlockRe = regexp.MustCompile(
		`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`,
	)
	// A reasoning tag left open because the model was cut off.
	openReasoningRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>).*$`)

	// Lead-ins such as "Translation:", "Here is the translation:",
	// "Sure, here's the Hindi translation:".
	leadInRe = regexp.MustCompile(
		`(?i)^(?:(?:sure|certainly|of course)[,.!]?\s+)?(?:here(?:'s| is)\s+)?(?:the\s+)?(?:[a-z]+\s+)?(?:translation|translated text)\s*:`,
	)
)

var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'“', '”'},
	{'‘', '’'},
	{'「', '」'},
}

// Clean returns text without reasoning blocks, prompt lead-ins and a single
// layer of wrapping quotes.
func Clean(text string) string {
	text = reasoningBlockRe.ReplaceAllString(text, "")
	text = openReasoningRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if loc := leadInRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	return unquote(text)
}

func unquote(text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	first, last := runes[0], runes[len(runes)-1]
	for _, q := range quotePairs {
		if first == q[0] && last == q[1] {
			return strings.TrimSpace(string(runes[1 : len(runes)-1]))
		}
	}
	return text
}
