// Package language defines the closed set of languages a session can
// translate between, and the fallback rules for labels outside that set.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Code is an ISO 639-1 code from the supported set.
type Code string

const (
	English  Code = "en"
	Hindi    Code = "hi"
	Spanish  Code = "es"
	French   Code = "fr"
	German   Code = "de"
	Chinese  Code = "zh"
	Gujarati Code = "gu"
)

const (
	// DefaultSource is used when a source label cannot be resolved.
	DefaultSource = English
	// DefaultTarget is used when a target label cannot be resolved.
	DefaultTarget = Hindi
)

// All lists the supported languages in picker order.
var All = []Code{Hindi, Spanish, French, German, Chinese, Gujarati, English}

var names = map[Code]string{
	English:  "English",
	Hindi:    "Hindi",
	Spanish:  "Spanish",
	French:   "French",
	German:   "German",
	Chinese:  "Chinese",
	Gujarati: "Gujarati",
}

func (c Code) String() string {
	return string(c)
}

// Name returns the English display label, e.g. "Hindi".
func (c Code) Name() string {
	if name, ok := names[c]; ok {
		return name
	}
	return string(c)
}

// NativeName returns the language's name written in itself.
func (c Code) NativeName() string {
	return display.Self.Name(c.Tag())
}

// Tag returns the BCP 47 tag for the code.
func (c Code) Tag() language.Tag {
	return language.Make(string(c))
}

// Valid reports whether c belongs to the supported set.
func (c Code) Valid() bool {
	_, ok := names[c]
	return ok
}

// Lookup resolves a display label ("hindi"), an ISO code ("hi") or a
// regional tag ("hi-IN") to a supported code.
func Lookup(label string) (Code, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}

	for code, name := range names {
		if strings.EqualFold(name, label) {
			return code, true
		}
	}

	tag, err := language.Parse(label)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	code := Code(base.String())
	if !code.Valid() {
		return "", false
	}
	return code, true
}

// ParseSource resolves label, falling back to DefaultSource.
func ParseSource(label string) Code {
	if code, ok := Lookup(label); ok {
		return code
	}
	return DefaultSource
}

// ParseTarget resolves label, falling back to DefaultTarget.
func ParseTarget(label string) Code {
	if code, ok := Lookup(label); ok {
		return code
	}
	return DefaultTarget
}

// Pair is an ordered (source, target) combination. An engine handle is bound
// to exactly one pair.
type Pair struct {
	Source Code `json:"source"`
	Target Code `json:"target"`
}

// Valid reports whether both sides are supported.
func (p Pair) Valid() bool {
	return p.Source.Valid() && p.Target.Valid()
}

func (p Pair) String() string {
	return fmt.Sprintf("%s|%s", p.Source, p.Target)
}
