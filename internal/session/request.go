package session

import (
	"context"
	"errors"
)

var (
	ErrClosed      = errors.New("session closed")
	ErrStale       = errors.New("result discarded after a language change")
	ErrNoClipboard = errors.New("no clipboard configured")
)

// Request tracks one translate request through the session queue.
type Request struct {
	id    string
	input string

	done   chan struct{}
	output string
	err    error
}

func newRequest(id, input string) *Request {
	return &Request{id: id, input: input, done: make(chan struct{})}
}

func (r *Request) resolve(output string, err error) {
	r.output = output
	r.err = err
	close(r.done)
}

func (r *Request) ID() string {
	return r.id
}

func (r *Request) Input() string {
	return r.input
}

// Done is closed once the request reaches a terminal state.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Output is the text the request produced: the translation, "" for empty
// input, or the failure message. Valid after Done.
func (r *Request) Output() string {
	<-r.done
	return r.output
}

// Err is the underlying failure, ErrStale if a language change superseded the
// request, or ErrClosed if the session closed first. Valid after Done.
func (r *Request) Err() error {
	<-r.done
	return r.err
}

// Stale reports whether the request was superseded by a language change.
func (r *Request) Stale() bool {
	return errors.Is(r.Err(), ErrStale)
}

// Wait blocks until the request completes or ctx is done.
func (r *Request) Wait(ctx context.Context) (string, error) {
	select {
	case <-r.done:
		return r.output, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
