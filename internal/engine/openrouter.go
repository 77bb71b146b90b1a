package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/placeholder"
	"github.com/valpere/wordshift/internal/postprocess"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "mistralai/mistral-nemo:free"
)

// OpenRouterProvider translates through a hosted chat model.
type OpenRouterProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenRouterProvider(apiKey, baseURL, model string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouterProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenRouterProvider) Name() string {
	return "openrouter"
}

func (p *OpenRouterProvider) Configure(_ context.Context, pair language.Pair) (Handle, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("OpenRouter API key required")
	}
	return newPairHandle(p.Name(), pair)
}

func (p *OpenRouterProvider) EnsureModelReady(_ context.Context, h Handle, _ NetworkPolicy) error {
	_, err := ownPairHandle(p.Name(), h)
	return err
}

func (p *OpenRouterProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return "", err
	}

	systemPrompt := fmt.Sprintf("You are a professional translator. Translate the user's text from %s to %s.\n"+
		"Only respond with the translation, nothing else. No explanations, no quotes.",
		ph.pair.Source.Name(), ph.pair.Target.Name())

	protected := placeholder.Protect(text)
	if !protected.Empty() {
		systemPrompt += "\n" + placeholder.Hint
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": protected.Text},
		},
		"max_tokens": 4096,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("X-Title", "WordShift")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return protected.Restore(postprocess.Clean(out.Choices[0].Message.Content)), nil
}

func (p *OpenRouterProvider) Release(h Handle) error {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != p.Name() {
		return ErrForeignHandle
	}
	return ph.release()
}
