// Package validator checks that a translation came back in the requested
// language.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valpere/wordshift/internal/detector"
	"github.com/valpere/wordshift/internal/language"
)

// Detection below this many runes is too unreliable to act on.
const minRunes = 20

var ErrWrongLanguage = errors.New("translation is in the wrong language")

// Validator is safe for concurrent use. Building one loads language models,
// so keep it around.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// Check returns an error wrapping ErrWrongLanguage when text reads as a
// language other than target. Short or ambiguous text passes.
func (v *Validator) Check(text string, target language.Code) error {
	text = strings.TrimSpace(text)
	if !target.Valid() || utf8.RuneCountInString(text) < minRunes {
		return nil
	}

	detected, ok := v.det.Detect(text)
	if !ok || detected == target {
		return nil
	}
	return fmt.Errorf("%w: expected %s, detected %s", ErrWrongLanguage, target.Name(), detected.Name())
}
