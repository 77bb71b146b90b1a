package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/valpere/wordshift/internal/chunker"
	"github.com/valpere/wordshift/internal/language"
)

const (
	DefaultMyMemoryURL = "https://api.mymemory.translated.net"
	// myMemoryMaxQuery is the API's per-request limit on q, in bytes.
	myMemoryMaxQuery = 500
)

// MyMemoryProvider uses the free MyMemory web API. Nothing is downloaded, so
// EnsureModelReady only validates the handle.
type MyMemoryProvider struct {
	baseURL string
	email   string
	client  *http.Client
}

func NewMyMemoryProvider(email string) *MyMemoryProvider {
	return &MyMemoryProvider{
		baseURL: DefaultMyMemoryURL,
		email:   email,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *MyMemoryProvider) Name() string {
	return "mymemory"
}

func (p *MyMemoryProvider) Configure(_ context.Context, pair language.Pair) (Handle, error) {
	return newPairHandle(p.Name(), pair)
}

func (p *MyMemoryProvider) EnsureModelReady(_ context.Context, h Handle, _ NetworkPolicy) error {
	_, err := ownPairHandle(p.Name(), h)
	return err
}

func (p *MyMemoryProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return "", err
	}

	pieces := chunker.Segments(text, myMemoryMaxQuery)
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		translated, err := p.translateOne(ctx, ph.pair, piece.Text)
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return chunker.Join(pieces, out), nil
}

func (p *MyMemoryProvider) translateOne(ctx context.Context, pair language.Pair, text string) (string, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("langpair", fmt.Sprintf("%s|%s", pair.Source, pair.Target))
	if p.email != "" {
		params.Set("de", p.email)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/get?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		ResponseData struct {
			TranslatedText string  `json:"translatedText"`
			Match          float64 `json:"match"`
		} `json:"responseData"`
		ResponseStatus  int    `json:"responseStatus"`
		ResponseDetails string `json:"responseDetails"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if body.ResponseStatus != http.StatusOK {
		return "", fmt.Errorf("API error: %s (%d)", body.ResponseDetails, body.ResponseStatus)
	}
	return body.ResponseData.TranslatedText, nil
}

func (p *MyMemoryProvider) Release(h Handle) error {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != p.Name() {
		return ErrForeignHandle
	}
	return ph.release()
}
