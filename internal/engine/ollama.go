package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/placeholder"
	"github.com/valpere/wordshift/internal/postprocess"
	"github.com/valpere/wordshift/internal/store"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
)

// OllamaProvider translates with a local Ollama model. Its model asset is the
// LLM itself, pulled through the Ollama API when missing.
type OllamaProvider struct {
	baseURL  string
	model    string
	client   *http.Client
	registry ModelRegistry
	network  NetworkMonitor
	log      *zap.Logger
}

func NewOllamaProvider(baseURL, model string, registry ModelRegistry, network NetworkMonitor, log *zap.Logger) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OllamaProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
		registry: registry,
		network:  network,
		log:      log,
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Configure(_ context.Context, pair language.Pair) (Handle, error) {
	return newPairHandle(p.Name(), pair)
}

func (p *OllamaProvider) EnsureModelReady(ctx context.Context, h Handle, policy NetworkPolicy) error {
	if _, err := ownPairHandle(p.Name(), h); err != nil {
		return err
	}

	found, err := p.registry.HasModel(ctx, p.Name(), p.model)
	if err != nil {
		return fmt.Errorf("failed to query model registry: %w", err)
	}
	if found {
		return nil
	}

	size, present, err := p.localModel(ctx)
	if err != nil {
		return err
	}
	if !present {
		if err := CheckPolicy(ctx, p.network, policy); err != nil {
			return fmt.Errorf("model %s: %w", p.model, err)
		}
		p.log.Info("pulling model", zap.String("provider", p.Name()), zap.String("model", p.model))
		if err := p.pull(ctx); err != nil {
			return err
		}
	}

	return p.registry.SaveModel(ctx, store.Model{Provider: p.Name(), Name: p.model, SizeBytes: size})
}

// localModel looks the configured model up in the server's local tags.
func (p *OllamaProvider) localModel(ctx context.Context) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/api/tags", nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("Ollama not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
			Size  int64  `json:"size"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return 0, false, fmt.Errorf("failed to decode tags: %w", err)
	}

	for _, m := range tags.Models {
		if sameModel(m.Name, p.model) || sameModel(m.Model, p.model) {
			return m.Size, true, nil
		}
	}
	return 0, false, nil
}

func (p *OllamaProvider) pull(ctx context.Context) error {
	body, err := json.Marshal(map[string]interface{}{"model": p.model, "stream": false})
	if err != nil {
		return fmt.Errorf("failed to marshal pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/pull", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls can take far longer than a generate call.
	client := *p.client
	client.Timeout = 0

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("model pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model pull returned status %d", resp.StatusCode)
	}

	var status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode pull response: %w", err)
	}
	if status.Error != "" {
		return fmt.Errorf("model pull failed: %s", status.Error)
	}
	if status.Status != "success" {
		return fmt.Errorf("model pull ended with status %q", status.Status)
	}
	return nil
}

func (p *OllamaProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return "", err
	}

	protected := placeholder.Protect(text)
	instructions := "Only respond with the translation, nothing else."
	if !protected.Empty() {
		instructions += "\n" + placeholder.Hint
	}

	prompt := fmt.Sprintf(`Translate the following text from %s to %s.
%s

Text: %q

Translation:`, ph.pair.Source.Name(), ph.pair.Target.Name(), instructions, protected.Text)

	body, err := json.Marshal(map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	translated := postprocess.Clean(out.Response)
	if translated == "" {
		return "", fmt.Errorf("empty translation from model %s", p.model)
	}
	if missing := protected.Missing(translated); len(missing) > 0 {
		p.log.Warn("model dropped markup markers", zap.String("model", p.model), zap.Ints("markers", missing))
	}
	return protected.Restore(translated), nil
}

func (p *OllamaProvider) Release(h Handle) error {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != p.Name() {
		return ErrForeignHandle
	}
	return ph.release()
}

// sameModel compares Ollama model names, treating a missing tag as ":latest".
func sameModel(a, b string) bool {
	if !strings.Contains(a, ":") {
		a += ":latest"
	}
	if !strings.Contains(b, ":") {
		b += ":latest"
	}
	return strings.EqualFold(a, b)
}
