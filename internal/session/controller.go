// Package session implements the translation session controller. A
// Controller owns the selected language pair, the input and output text, the
// loading flag and a single engine handle, and reacts to four triggers:
// source changed, target changed, translate requested and copy requested.
//
// Engine work runs on one worker goroutine per session, in request order.
// Every language change bumps a generation counter; a request issued under an
// older generation never overwrites the output.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/engine"
	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/locale"
)

// Options configures a Controller. Zero values get defaults.
type Options struct {
	Source language.Code
	Target language.Code

	// Policy constrains model downloads. Defaults to engine.PolicyUnmetered.
	Policy engine.NetworkPolicy
	// PrepareOnChange selects which language changes prepare a new handle
	// ahead of the next translation. Defaults to PrepareBoth.
	PrepareOnChange PrepareMode

	Messages  *locale.Catalog
	Clipboard Clipboard
	Observer  Observer
	Logger    *zap.Logger
}

type jobKind int

const (
	jobPrepare jobKind = iota
	jobTranslate
)

type job struct {
	kind jobKind
	ctx  context.Context
	pair language.Pair
	gen  uint64
	req  *Request
}

type Controller struct {
	id        string
	provider  engine.Provider
	policy    engine.NetworkPolicy
	prepareOn PrepareMode
	messages  *locale.Catalog
	clipboard Clipboard
	observer  Observer
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// notifyMu orders observer deliveries; it is taken before mu.
	notifyMu sync.Mutex
	mu       sync.Mutex
	cond     *sync.Cond
	state    State
	queue    []*job
	pending  int
	closed   bool

	// Owned by the worker goroutine.
	handle     engine.Handle
	releaseErr error
}

// New returns a running Controller. Close must be called to release the
// engine handle.
func New(provider engine.Provider, opts Options) *Controller {
	if !opts.Source.Valid() {
		opts.Source = language.DefaultSource
	}
	if !opts.Target.Valid() {
		opts.Target = language.DefaultTarget
	}
	if opts.Policy == "" {
		opts.Policy = engine.PolicyUnmetered
	}
	if opts.PrepareOnChange == "" {
		opts.PrepareOnChange = PrepareBoth
	}
	if opts.Messages == nil {
		opts.Messages = locale.English()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		id:        id,
		provider:  provider,
		policy:    opts.Policy,
		prepareOn: opts.PrepareOnChange,
		messages:  opts.Messages,
		clipboard: opts.Clipboard,
		observer:  opts.Observer,
		log:       opts.Logger.With(zap.String("session", id), zap.String("provider", provider.Name())),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state: State{
			Source: opts.Source,
			Target: opts.Target,
			Phase:  PhaseIdle,
		},
	}
	c.cond = sync.NewCond(&c.mu)

	go c.run()
	return c
}

func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetSourceLanguage selects the source language by display name or code.
// Unknown labels select English. It returns the language selected.
func (c *Controller) SetSourceLanguage(label string) language.Code {
	code := language.ParseSource(label)
	c.setLanguage(func(s *State) bool {
		if s.Source == code {
			return false
		}
		s.Source = code
		return true
	}, c.prepareOn != PrepareNone)
	return code
}

// SetTargetLanguage selects the target language by display name or code.
// Unknown labels select Hindi. It returns the language selected.
func (c *Controller) SetTargetLanguage(label string) language.Code {
	code := language.ParseTarget(label)
	c.setLanguage(func(s *State) bool {
		if s.Target == code {
			return false
		}
		s.Target = code
		return true
	}, c.prepareOn == PrepareBoth)
	return code
}

func (c *Controller) setLanguage(apply func(*State) bool, prepare bool) {
	c.update(func(s *State) bool {
		if c.closed || !apply(s) {
			return false
		}
		s.Generation++
		c.log.Debug("language changed",
			zap.Stringer("pair", s.Pair()),
			zap.Uint64("generation", s.Generation))

		if prepare {
			c.enqueue(&job{kind: jobPrepare, ctx: c.ctx, pair: s.Pair(), gen: s.Generation})
		}
		return true
	})
}

// RequestTranslate queues a translation of input for the current pair and
// returns immediately with Loading set. ctx bounds the engine calls made for
// this request.
func (c *Controller) RequestTranslate(ctx context.Context, input string) *Request {
	req := newRequest(uuid.New().String(), input)

	c.update(func(s *State) bool {
		if c.closed {
			req.resolve("", ErrClosed)
			return false
		}
		s.Input = input
		s.Loading = true
		c.pending++
		c.enqueue(&job{kind: jobTranslate, ctx: ctx, pair: s.Pair(), gen: s.Generation, req: req})
		return true
	})
	return req
}

// RequestCopy writes the current output to the clipboard. It reports whether
// anything was copied; empty output is a no-op.
func (c *Controller) RequestCopy(ctx context.Context) (bool, error) {
	c.mu.Lock()
	out := c.state.Output
	c.mu.Unlock()

	if out == "" {
		return false, nil
	}
	if c.clipboard == nil {
		return false, ErrNoClipboard
	}
	if err := c.clipboard.WritePlainText(ctx, out); err != nil {
		return false, fmt.Errorf("failed to write clipboard: %w", err)
	}
	c.log.Debug("output copied", zap.Int("bytes", len(out)))
	return true, nil
}

// Close cancels in-flight engine work, resolves queued requests with
// ErrClosed and releases the engine handle. It is safe to call more than
// once.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()

	c.cancel()
	<-c.done
	return c.releaseErr
}

// update applies fn to the state and, when fn reports a change, delivers the
// new snapshot to the observer.
func (c *Controller) update(fn func(s *State) bool) State {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	changed := fn(&c.state)
	snap := c.state
	c.mu.Unlock()

	if changed && c.observer != nil {
		c.observer.StateChanged(snap)
	}
	return snap
}

// enqueue must be called with mu held.
func (c *Controller) enqueue(j *job) {
	c.queue = append(c.queue, j)
	c.cond.Signal()
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		if len(c.queue) == 0 {
			c.mu.Unlock()
			break
		}
		j := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		closed := c.closed
		c.mu.Unlock()

		switch {
		case closed:
			if j.kind == jobTranslate {
				c.finish(j, "", ErrClosed)
			}
		case j.kind == jobPrepare:
			c.runPrepare(j)
		default:
			c.runTranslate(j)
		}
	}

	c.releaseErr = c.releaseHandle()
}

func (c *Controller) stale(j *job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return j.gen != c.state.Generation
}

// jobContext derives the context for a job's engine calls, cancelled by
// either the caller or Close.
func (c *Controller) jobContext(j *job) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(j.ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) runPrepare(j *job) {
	if c.stale(j) {
		return
	}
	ctx, cancel := c.jobContext(j)
	defer cancel()

	if _, err := c.prepare(ctx, j.pair); err != nil {
		c.log.Warn("background prepare failed", zap.Stringer("pair", j.pair), zap.Error(err))
	}
	c.setPhase(PhaseIdle)
}

func (c *Controller) runTranslate(j *job) {
	if c.stale(j) {
		c.finish(j, "", ErrStale)
		return
	}
	ctx, cancel := c.jobContext(j)
	defer cancel()

	log := c.log.With(zap.String("request", j.req.ID()), zap.Stringer("pair", j.pair))

	h, err := c.prepare(ctx, j.pair)
	if j.req.Input() == "" {
		if err != nil {
			log.Warn("prepare failed", zap.Error(err))
		}
		c.finish(j, "", nil)
		return
	}

	if err == nil {
		c.setPhase(PhaseTranslating)
		var out string
		out, err = c.provider.Translate(ctx, h, j.req.Input())
		if err == nil {
			log.Debug("translated", zap.Int("input_bytes", len(j.req.Input())), zap.Int("output_bytes", len(out)))
			c.finish(j, out, nil)
			return
		}
	}

	log.Warn("translation failed", zap.Error(err))
	c.finish(j, c.messages.TranslationFailed(err.Error()), err)
}

// prepare makes the live handle match pair, recreating it if the pair
// changed, then asks the provider to make the model available. A model
// failure is logged and otherwise ignored; the translate call reports it if
// the engine really is not ready.
func (c *Controller) prepare(ctx context.Context, pair language.Pair) (engine.Handle, error) {
	c.setPhase(PhasePreparing)

	if c.handle != nil && c.handle.Pair() != pair {
		if err := c.releaseHandle(); err != nil {
			c.log.Warn("failed to release engine handle", zap.Error(err))
		}
	}

	if c.handle == nil {
		h, err := c.provider.Configure(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf("failed to configure engine for %s: %w", pair, err)
		}
		c.handle = h
		c.update(func(s *State) bool {
			s.Engine = pair
			s.HasHandle = true
			return true
		})
		c.log.Debug("engine configured", zap.Stringer("pair", pair))
	}

	if err := c.provider.EnsureModelReady(ctx, c.handle, c.policy); err != nil {
		c.log.Warn("model not ready",
			zap.Stringer("pair", pair),
			zap.String("policy", string(c.policy)),
			zap.Error(err))
	}
	return c.handle, nil
}

func (c *Controller) releaseHandle() error {
	if c.handle == nil {
		return nil
	}
	err := c.provider.Release(c.handle)
	c.handle = nil
	c.update(func(s *State) bool {
		s.Engine = language.Pair{}
		s.HasHandle = false
		return true
	})
	return err
}

func (c *Controller) setPhase(p Phase) {
	c.update(func(s *State) bool {
		if s.Phase == p {
			return false
		}
		s.Phase = p
		return true
	})
}

// finish records the terminal result of a translate job. Results from an
// older generation, or of a closed session, leave Output untouched.
func (c *Controller) finish(j *job, output string, err error) {
	c.update(func(s *State) bool {
		c.pending--
		switch {
		case errors.Is(err, ErrStale), errors.Is(err, ErrClosed):
			output = ""
		case c.closed && err != nil:
			output, err = "", ErrClosed
		case j.gen != s.Generation:
			output, err = "", ErrStale
		default:
			s.Output = output
		}
		s.Loading = c.pending > 0
		s.Phase = PhaseIdle
		return true
	})
	j.req.resolve(output, err)
}
