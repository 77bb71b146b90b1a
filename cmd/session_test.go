package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordshift/internal/clipboard"
	"github.com/valpere/wordshift/internal/config"
	"github.com/valpere/wordshift/internal/engine"
	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/locale"
	"github.com/valpere/wordshift/internal/session"
)

func runScript(t *testing.T, script string) (out, copied string) {
	t.Helper()

	stub := engine.DefaultStubConfig()
	stub.DownloadDelay = 0
	stub.TranslateDelay = 0

	var clip bytes.Buffer
	ctl := session.New(engine.NewStubProvider(stub, nil, nil, nil), session.Options{
		Source:    language.English,
		Target:    language.Hindi,
		Clipboard: &clipboard.Writer{W: &clip},
	})
	defer ctl.Close()

	var buf bytes.Buffer
	r := &repl{ctl: ctl, messages: locale.English(), out: &buf}
	require.NoError(t, r.run(context.Background(), strings.NewReader(script)))
	return buf.String(), clip.String()
}

func TestREPL_TranslateAndCopy(t *testing.T) {
	out, copied := runScript(t, "Hello\n:copy\n:quit\nThank you\n")

	assert.Contains(t, out, "[English -> Hindi] > नमस्ते\n")
	assert.Contains(t, out, "Copied to clipboard")
	assert.NotContains(t, out, "धन्यवाद", "lines after :quit are ignored")
	assert.Equal(t, "नमस्ते\n", copied)
}

func TestREPL_ChangeLanguages(t *testing.T) {
	out, _ := runScript(t, ":target Spanish\nThank you\n:source klingon\n:target fr\nGood night\n")

	assert.Contains(t, out, "Target: Spanish")
	assert.Contains(t, out, "Gracias")
	assert.Contains(t, out, "Source: English")
	assert.Contains(t, out, "[English -> French] > Bonne nuit")
}

func TestREPL_CopyNothing(t *testing.T) {
	out, copied := runScript(t, ":copy\n")

	assert.Contains(t, out, "Nothing to copy")
	assert.Empty(t, copied)
}

func TestREPL_State(t *testing.T) {
	out, _ := runScript(t, "Hello\n:target German\n:state\n")

	assert.Contains(t, out, "Target:   German")
	assert.Contains(t, out, "Output:   नमस्ते")
	assert.Contains(t, out, "Loading:  false")
}

func TestREPL_UnknownCommand(t *testing.T) {
	out, _ := runScript(t, ":frobnicate\n")
	assert.Contains(t, out, "Unknown command: :frobnicate")
}

func TestREPL_InterruptAtIdlePrompt(t *testing.T) {
	ctl := session.New(engine.NewStubProvider(nil, nil, nil, nil), session.Options{})
	defer ctl.Close()

	in, w := io.Pipe()
	defer w.Close()

	var buf bytes.Buffer
	r := &repl{ctl: ctl, messages: locale.English(), out: &buf}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.run(ctx, in) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end on interrupt while waiting for input")
	}
}

func TestNewSession_Catalog(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = &config.Config{Locale: "es"}
	cfg.Engine.Provider = "stub"
	cfg.Network.Policy = "unmetered"
	cfg.Session.Source = "English"
	cfg.Session.Target = "Hindi"

	messages, err := locale.New("fr")
	require.NoError(t, err)

	deps, err := newSession("", "Spanish", messages, nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.Same(t, messages, deps.messages, "a given catalog is reused")
	assert.Equal(t, language.Spanish, deps.ctl.State().Target)

	built, err := newSession("", "", nil, nil)
	require.NoError(t, err)
	defer built.Close()

	assert.Equal(t, "Nada que copiar", built.messages.Message(locale.NothingToCopy, nil))
	assert.Equal(t, language.Hindi, built.ctl.State().Target)
}

func TestPrintLanguages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printLanguages(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(language.All)+1)
	assert.Contains(t, lines[1], "hi")
	assert.Contains(t, lines[1], "target")
	assert.Contains(t, buf.String(), "Deutsch")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0 B"},
		{in: 1023, want: "1023 B"},
		{in: 1536, want: "1.5 KiB"},
		{in: 30 << 20, want: "30.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
