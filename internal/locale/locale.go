// Package locale holds the user-facing messages of a session, localized with
// go-i18n from embedded TOML catalogs.
package locale

import (
	"embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed messages/*.toml
var messageFS embed.FS

// Message IDs.
const (
	TranslationFailed = "TranslationFailed"
	CopiedToClipboard = "CopiedToClipboard"
	NothingToCopy     = "NothingToCopy"
	Translating       = "Translating"
	PreparingModel    = "PreparingModel"
)

var defaults = map[string]*i18n.Message{
	TranslationFailed: {ID: TranslationFailed, Other: "Translation failed: {{.Reason}}"},
	CopiedToClipboard: {ID: CopiedToClipboard, Other: "Copied to clipboard"},
	NothingToCopy:     {ID: NothingToCopy, Other: "Nothing to copy"},
	Translating:       {ID: Translating, Other: "Translating..."},
	PreparingModel:    {ID: PreparingModel, Other: "Preparing language model..."},
}

// Supported lists the locales with a message catalog.
var Supported = []string{"en", "es", "fr", "de", "hi"}

// Catalog renders messages for one locale. Locales without a catalog fall
// back to English.
type Catalog struct {
	localizer *i18n.Localizer
}

// New loads the embedded catalogs and returns a Catalog for lang, a BCP 47
// tag such as "en" or "hi-IN".
func New(lang string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, l := range Supported {
		if _, err := bundle.LoadMessageFileFS(messageFS, fmt.Sprintf("messages/messages.%s.toml", l)); err != nil {
			return nil, fmt.Errorf("failed to load %s messages: %w", l, err)
		}
	}

	return &Catalog{localizer: i18n.NewLocalizer(bundle, lang, "en")}, nil
}

// English returns the English catalog. The embedded files are known good, so
// a load failure is a programming error.
func English() *Catalog {
	c, err := New("en")
	if err != nil {
		panic(err)
	}
	return c
}

// Message renders id with data. Unknown IDs render as the ID itself.
func (c *Catalog) Message(id string, data map[string]any) string {
	def, ok := defaults[id]
	if !ok {
		def = &i18n.Message{ID: id, Other: id}
	}

	out, err := c.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:      id,
		DefaultMessage: def,
		TemplateData:   data,
	})
	if err != nil {
		return def.Other
	}
	return out
}

// TranslationFailed renders the failure text shown in place of a translation.
func (c *Catalog) TranslationFailed(reason string) string {
	return c.Message(TranslationFailed, map[string]any{"Reason": reason})
}
