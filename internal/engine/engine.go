// Package engine defines the translation engine provider a session delegates
// to, and its implementations. A provider hands out handles bound to a single
// language pair; model assets are fetched on demand under a network policy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/store"
)

var (
	ErrMeteredNetwork  = errors.New("model download requires an unmetered network")
	ErrUnsupportedPair = errors.New("unsupported language pair")
	ErrHandleReleased  = errors.New("engine handle already released")
	ErrForeignHandle   = errors.New("handle was not created by this provider")
	ErrModelMissing    = errors.New("translation model not downloaded")
)

// NetworkPolicy constrains when model assets may be downloaded.
type NetworkPolicy string

const (
	PolicyAny       NetworkPolicy = "any"
	PolicyUnmetered NetworkPolicy = "unmetered"
)

func ParseNetworkPolicy(s string) (NetworkPolicy, error) {
	switch NetworkPolicy(s) {
	case PolicyAny, PolicyUnmetered:
		return NetworkPolicy(s), nil
	case "":
		return PolicyUnmetered, nil
	default:
		return "", fmt.Errorf("unknown network policy: %q", s)
	}
}

// Handle is an engine instance configured for one language pair.
type Handle interface {
	Pair() language.Pair
}

// Provider is the translation capability consumed by a session.
type Provider interface {
	Name() string
	// Configure returns a new handle bound to pair.
	Configure(ctx context.Context, pair language.Pair) (Handle, error)
	// EnsureModelReady makes sure the assets h needs are available locally,
	// downloading them when policy allows.
	EnsureModelReady(ctx context.Context, h Handle, policy NetworkPolicy) error
	Translate(ctx context.Context, h Handle, text string) (string, error)
	// Release frees h. Using h afterwards fails with ErrHandleReleased.
	Release(h Handle) error
}

// NetworkMonitor reports the cost of the current connection.
type NetworkMonitor interface {
	Metered(ctx context.Context) bool
}

// StaticNetwork is a NetworkMonitor whose answer comes from configuration.
type StaticNetwork struct {
	IsMetered bool
}

func (n StaticNetwork) Metered(context.Context) bool {
	return n.IsMetered
}

// CheckPolicy returns ErrMeteredNetwork when policy forbids downloading on
// the connection mon reports. A nil monitor counts as unmetered.
func CheckPolicy(ctx context.Context, mon NetworkMonitor, policy NetworkPolicy) error {
	if policy != PolicyUnmetered || mon == nil {
		return nil
	}
	if mon.Metered(ctx) {
		return ErrMeteredNetwork
	}
	return nil
}

// ModelRegistry records which model assets are present locally.
// *store.Store satisfies it.
type ModelRegistry interface {
	HasModel(ctx context.Context, provider, name string) (bool, error)
	SaveModel(ctx context.Context, m store.Model) error
}

// MemoryRegistry is an in-process ModelRegistry for runs without a database.
type MemoryRegistry struct {
	mu     sync.Mutex
	models map[string]store.Model
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{models: make(map[string]store.Model)}
}

func (r *MemoryRegistry) HasModel(_ context.Context, provider, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.models[provider+"/"+name]
	return ok, nil
}

func (r *MemoryRegistry) SaveModel(_ context.Context, m store.Model) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.DownloadedAt.IsZero() {
		m.DownloadedAt = time.Now()
	}
	r.models[m.Provider+"/"+m.Name] = m
	return nil
}

// pairHandle is the handle shared by providers that keep no per-pair client.
type pairHandle struct {
	provider string
	pair     language.Pair

	mu       sync.Mutex
	released bool
}

func (h *pairHandle) Pair() language.Pair {
	return h.pair
}

func (h *pairHandle) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrHandleReleased
	}
	h.released = true
	return nil
}

func (h *pairHandle) live() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrHandleReleased
	}
	return nil
}

func newPairHandle(provider string, pair language.Pair) (*pairHandle, error) {
	if !pair.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPair, pair)
	}
	return &pairHandle{provider: provider, pair: pair}, nil
}

// ownPairHandle checks that h was issued by provider and is still live.
func ownPairHandle(provider string, h Handle) (*pairHandle, error) {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != provider {
		return nil, ErrForeignHandle
	}
	if err := ph.live(); err != nil {
		return nil, err
	}
	return ph, nil
}
