// Package detector guesses the source language of a text, restricted to the
// languages a session can select.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/wordshift/internal/language"
)

var linguaLanguages = map[language.Code]lingua.Language{
	language.English:  lingua.English,
	language.Hindi:    lingua.Hindi,
	language.Spanish:  lingua.Spanish,
	language.French:   lingua.French,
	language.German:   lingua.German,
	language.Chinese:  lingua.Chinese,
	language.Gujarati: lingua.Gujarati,
}

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over codes, or over every supported language when
// codes is empty. lingua needs at least two candidates; a single code is
// padded with English.
func New(codes ...language.Code) *Detector {
	if len(codes) == 0 {
		codes = language.All
	}

	seen := make(map[lingua.Language]bool)
	var langs []lingua.Language
	candidates := append(append([]language.Code{}, codes...), language.English)
	for _, c := range candidates {
		l, ok := linguaLanguages[c]
		if !ok || seen[l] {
			continue
		}
		seen[l] = true
		langs = append(langs, l)
	}
	if len(langs) < 2 {
		langs = append(langs, lingua.Hindi)
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}
}

// Detect returns the most likely language of text.
func (d *Detector) Detect(text string) (language.Code, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	code := language.Code(strings.ToLower(lang.IsoCode639_1().String()))
	if !code.Valid() {
		return "", false
	}
	return code, true
}
