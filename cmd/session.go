/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/locale"
	"github.com/valpere/wordshift/internal/session"
)

var (
	sessionSource string
	sessionTarget string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start an interactive translation session",
	Long: `Start an interactive translation session. Every line you type is
translated from the source to the target language.

Commands:
  :source <lang>   change the source language
  :target <lang>   change the target language
  :copy            copy the last translation to the clipboard
  :state           show the session state
  :languages       list the supported languages
  :help            show this help
  :quit            end the session`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		messages, err := locale.New(cfg.Locale)
		if err != nil {
			return err
		}

		observer := session.ObserverFunc(func(s session.State) {
			if s.Phase == session.PhasePreparing && !s.HasHandle {
				fmt.Fprintln(os.Stderr, messages.Message(locale.PreparingModel, nil))
			}
			logger.Debug("session state",
				zap.String("phase", string(s.Phase)),
				zap.Bool("loading", s.Loading),
				zap.Stringer("pair", s.Pair()),
				zap.Bool("handle_stale", s.HandleStale()),
				zap.Uint64("generation", s.Generation))
		})

		deps, err := newSession(sessionSource, sessionTarget, messages, observer)
		if err != nil {
			return err
		}
		defer deps.Close()

		logger.Info("session started", zap.String("session", deps.ctl.ID()), zap.String("provider", cfg.Engine.Provider))

		r := &repl{
			ctl:      deps.ctl,
			messages: deps.messages,
			out:      cmd.OutOrStdout(),
			timeout:  cfg.Engine.Timeout,
		}
		return r.run(ctx, cmd.InOrStdin())
	},
}

// repl binds terminal lines to the session triggers.
type repl struct {
	ctl      *session.Controller
	messages *locale.Catalog
	out      io.Writer
	timeout  time.Duration
}

// run reads lines from in until :quit, end of input or ctx is done. The
// scanner runs on its own goroutine so an interrupt at an idle prompt ends
// the session without waiting for Enter.
func (r *repl) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		errc <- scanner.Err()
	}()

	r.prompt()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if r.handle(ctx, line) || ctx.Err() != nil {
				return nil
			}
			r.prompt()
		}
	}
}

func (r *repl) prompt() {
	s := r.ctl.State()
	fmt.Fprintf(r.out, "[%s -> %s] > ", s.Source.Name(), s.Target.Name())
}

// handle processes one line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		r.translate(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "source", "s":
		code := r.ctl.SetSourceLanguage(arg)
		fmt.Fprintf(r.out, "Source: %s\n", code.Name())
	case "target", "t":
		code := r.ctl.SetTargetLanguage(arg)
		fmt.Fprintf(r.out, "Target: %s\n", code.Name())
	case "copy", "c":
		copied, err := r.ctl.RequestCopy(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(r.out, "Copy failed: %v\n", err)
		case copied:
			fmt.Fprintln(r.out, r.messages.Message(locale.CopiedToClipboard, nil))
		default:
			fmt.Fprintln(r.out, r.messages.Message(locale.NothingToCopy, nil))
		}
	case "state":
		r.printState()
	case "languages", "l":
		printLanguages(r.out)
	case "help", "h", "?":
		fmt.Fprintln(r.out, "Commands: :source <lang>, :target <lang>, :copy, :state, :languages, :quit")
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(r.out, "Unknown command: :%s (try :help)\n", name)
	}
	return false
}

func (r *repl) translate(ctx context.Context, text string) {
	reqCtx, cancel := requestContext(ctx, r.timeout)
	defer cancel()

	req := r.ctl.RequestTranslate(reqCtx, text)
	<-req.Done()

	if ctx.Err() != nil {
		return
	}
	if errors.Is(req.Err(), session.ErrStale) || errors.Is(req.Err(), session.ErrClosed) {
		return
	}
	fmt.Fprintln(r.out, req.Output())
}

func (r *repl) printState() {
	s := r.ctl.State()

	engine := "none"
	if s.HasHandle {
		engine = fmt.Sprintf("%s -> %s", s.Engine.Source.Name(), s.Engine.Target.Name())
		if s.HandleStale() {
			engine += " (stale)"
		}
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Source:\t%s\n", s.Source.Name())
	fmt.Fprintf(w, "Target:\t%s\n", s.Target.Name())
	fmt.Fprintf(w, "Engine:\t%s\n", engine)
	fmt.Fprintf(w, "Phase:\t%s\n", s.Phase)
	fmt.Fprintf(w, "Loading:\t%v\n", s.Loading)
	fmt.Fprintf(w, "Input:\t%s\n", s.Input)
	fmt.Fprintf(w, "Output:\t%s\n", s.Output)
	w.Flush()
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().StringVarP(&sessionSource, "source", "s", "", "Initial source language (default session.source)")
	sessionCmd.Flags().StringVarP(&sessionTarget, "target", "t", "", "Initial target language (default session.target)")
}
