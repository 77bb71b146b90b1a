package engine

import (
	"context"
	"fmt"
	"sync"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	lang "github.com/valpere/wordshift/internal/language"
)

// googleClient is the subset of *translate.Client the provider uses.
type googleClient interface {
	Translate(ctx context.Context, inputs []string, target language.Tag, opts *translate.Options) ([]translate.Translation, error)
	Close() error
}

// GoogleProvider uses Google Cloud Translation. Each handle owns its own API
// client, closed on Release.
type GoogleProvider struct {
	credentials string
	newClient   func(ctx context.Context) (googleClient, error)
}

func NewGoogleProvider(credentials string) *GoogleProvider {
	p := &GoogleProvider{credentials: credentials}
	p.newClient = p.dial
	return p
}

func (p *GoogleProvider) dial(ctx context.Context) (googleClient, error) {
	var opts []option.ClientOption
	if p.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(p.credentials))
	}
	return translate.NewClient(ctx, opts...)
}

type googleHandle struct {
	pair lang.Pair

	mu     sync.Mutex
	client googleClient
}

func (h *googleHandle) Pair() lang.Pair {
	return h.pair
}

func (h *googleHandle) live() (googleClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil, ErrHandleReleased
	}
	return h.client, nil
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) Configure(ctx context.Context, pair lang.Pair) (Handle, error) {
	if !pair.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPair, pair)
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &googleHandle{pair: pair, client: client}, nil
}

// EnsureModelReady has nothing to fetch; translation runs server side.
func (p *GoogleProvider) EnsureModelReady(_ context.Context, h Handle, _ NetworkPolicy) error {
	gh, ok := h.(*googleHandle)
	if !ok {
		return ErrForeignHandle
	}
	_, err := gh.live()
	return err
}

func (p *GoogleProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	gh, ok := h.(*googleHandle)
	if !ok {
		return "", ErrForeignHandle
	}
	client, err := gh.live()
	if err != nil {
		return "", err
	}

	translations, err := client.Translate(ctx, []string{text}, gh.pair.Target.Tag(), &translate.Options{
		Source: gh.pair.Source.Tag(),
		Format: translate.Text,
	})
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		return "", fmt.Errorf("no translation returned")
	}
	return translations[0].Text, nil
}

func (p *GoogleProvider) Release(h Handle) error {
	gh, ok := h.(*googleHandle)
	if !ok {
		return ErrForeignHandle
	}
	gh.mu.Lock()
	client := gh.client
	gh.client = nil
	gh.mu.Unlock()

	if client == nil {
		return ErrHandleReleased
	}
	return client.Close()
}
