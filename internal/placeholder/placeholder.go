// Package placeholder shields markup in user text from LLM engines. Fenced
// code blocks, inline code spans and HTML tags are swapped for [PHn] markers
// before the prompt is built and swapped back into the model's answer.
package placeholder

import (
	"regexp"
	"strconv"
	"strings"
)

// Hint is appended to prompts whose text carries markers.
const Hint = "Keep every [PHn] marker exactly as written; do not translate, move or drop it."

var (
	// Alternation order makes a fenced block win over the inline spans it
	// contains.
	markupRe = regexp.MustCompile("(?s)```.*?```|`[^`\n]+`|<[^<>\\s][^<>]*>")
	markerRe = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protected is text with its markup replaced by markers.
type Protected struct {
	Text    string
	markers []string
}

// Protect numbers markup in order of appearance.
func Protect(text string) Protected {
	var markers []string
	out := markupRe.ReplaceAllStringFunc(text, func(m string) string {
		markers = append(markers, m)
		return marker(len(markers) - 1)
	})
	return Protected{Text: out, markers: markers}
}

// Empty reports whether no markup was found.
func (p Protected) Empty() bool {
	return len(p.markers) == 0
}

// Restore puts the original markup back into translated. Unknown marker
// numbers are left as they are.
func (p Protected) Restore(translated string) string {
	if p.Empty() {
		return translated
	}
	return markerRe.ReplaceAllStringFunc(translated, func(m string) string {
		idx, err := strconv.Atoi(markerRe.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(p.markers) {
			return m
		}
		return p.markers[idx]
	})
}

// Missing lists the markers absent from translated.
func (p Protected) Missing(translated string) []int {
	var missing []int
	for i := range p.markers {
		if !strings.Contains(translated, marker(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

func marker(i int) string {
	return "[PH" + strconv.Itoa(i) + "]"
}
