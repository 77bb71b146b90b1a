package session

import (
	"context"
	"fmt"

	"github.com/valpere/wordshift/internal/language"
)

// Phase is the controller's position in its per-request state machine:
// idle -> preparing -> translating -> idle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePreparing   Phase = "preparing"
	PhaseTranslating Phase = "translating"
)

// State is a snapshot of a session for display binding.
type State struct {
	Source  language.Code
	Target  language.Code
	Input   string
	Output  string
	Loading bool
	Phase   Phase

	// Engine is the pair of the live engine handle, valid when HasHandle.
	Engine    language.Pair
	HasHandle bool

	// Generation increases with every language change. Results of requests
	// issued under an older generation are discarded.
	Generation uint64
}

// Pair returns the currently selected language pair.
func (s State) Pair() language.Pair {
	return language.Pair{Source: s.Source, Target: s.Target}
}

// HandleStale reports whether the live handle no longer matches the
// selected pair and will be recreated before the next translation.
func (s State) HandleStale() bool {
	return s.HasHandle && s.Engine != s.Pair()
}

// PrepareMode selects which language changes start preparing a new engine
// handle in the background.
type PrepareMode string

const (
	PrepareSource PrepareMode = "source"
	PrepareBoth   PrepareMode = "both"
	PrepareNone   PrepareMode = "none"
)

func ParsePrepareMode(s string) (PrepareMode, error) {
	switch PrepareMode(s) {
	case PrepareSource, PrepareBoth, PrepareNone:
		return PrepareMode(s), nil
	case "":
		return PrepareBoth, nil
	default:
		return "", fmt.Errorf("unknown prepare mode: %q", s)
	}
}

// Clipboard receives copied output.
type Clipboard interface {
	WritePlainText(ctx context.Context, text string) error
}

// Observer is notified with a snapshot after every state transition.
// Snapshots are delivered in order. StateChanged must not call the
// controller's mutating methods.
type Observer interface {
	StateChanged(State)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(State)

func (f ObserverFunc) StateChanged(s State) {
	f(s)
}
