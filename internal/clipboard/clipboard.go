// Package clipboard provides session.Clipboard implementations.
package clipboard

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/atotto/clipboard"
)

// System writes to the desktop clipboard through xclip, xsel, wl-copy,
// pbcopy or the Windows API, whichever the platform offers.
type System struct{}

func (System) WritePlainText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}

// Available reports whether the system clipboard can be used.
func Available() bool {
	return !clipboard.Unsupported
}

// Writer copies text to W, one entry per line. It stands in for the system
// clipboard on headless machines.
type Writer struct {
	W io.Writer

	mu sync.Mutex
}

func (w *Writer) WritePlainText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.W, text)
	return err
}
