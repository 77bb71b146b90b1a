package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/store"
)

// StubConfig configures the offline stub provider.
type StubConfig struct {
	// DownloadDelay simulates fetching one language model.
	DownloadDelay time.Duration
	// TranslateDelay simulates translation latency.
	TranslateDelay time.Duration
	// ModelSize is recorded in the registry for each downloaded model.
	ModelSize int64
	// Dictionary maps language pair -> source text -> translation.
	// Unknown texts come back as "[<target>] <text>".
	Dictionary map[language.Pair]map[string]string
}

// DefaultStubConfig returns a small deterministic dictionary.
func DefaultStubConfig() *StubConfig {
	return &StubConfig{
		DownloadDelay:  200 * time.Millisecond,
		TranslateDelay: 50 * time.Millisecond,
		ModelSize:      30 << 20,
		Dictionary: map[language.Pair]map[string]string{
			{Source: language.English, Target: language.Hindi}: {
				"Hello":      "नमस्ते",
				"Thank you":  "धन्यवाद",
				"Good night": "शुभ रात्रि",
			},
			{Source: language.English, Target: language.Spanish}: {
				"Hello":      "Hola",
				"Thank you":  "Gracias",
				"Good night": "Buenas noches",
			},
			{Source: language.English, Target: language.French}: {
				"Hello":      "Bonjour",
				"Thank you":  "Merci",
				"Good night": "Bonne nuit",
			},
			{Source: language.English, Target: language.German}: {
				"Hello":      "Hallo",
				"Thank you":  "Danke",
				"Good night": "Gute Nacht",
			},
			{Source: language.English, Target: language.Gujarati}: {
				"Hello":     "નમસ્તે",
				"Thank you": "આભાર",
			},
			{Source: language.English, Target: language.Chinese}: {
				"Hello":     "你好",
				"Thank you": "谢谢",
			},
			{Source: language.Hindi, Target: language.English}: {
				"नमस्ते":  "Hello",
				"धन्यवाद": "Thank you",
			},
		},
	}
}

// StubProvider is an on-device style provider with one model per language.
// English ships built in; every other language must be downloaded before
// translating to or from it.
type StubProvider struct {
	config   *StubConfig
	registry ModelRegistry
	network  NetworkMonitor
	log      *zap.Logger
}

func NewStubProvider(config *StubConfig, registry ModelRegistry, network NetworkMonitor, log *zap.Logger) *StubProvider {
	if config == nil {
		config = DefaultStubConfig()
	}
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StubProvider{config: config, registry: registry, network: network, log: log}
}

func (p *StubProvider) Name() string {
	return "stub"
}

func (p *StubProvider) Configure(_ context.Context, pair language.Pair) (Handle, error) {
	return newPairHandle(p.Name(), pair)
}

// requiredModels lists the downloadable models a pair needs.
func requiredModels(pair language.Pair) []language.Code {
	var out []language.Code
	for _, c := range []language.Code{pair.Source, pair.Target} {
		if c == language.English {
			continue
		}
		if len(out) == 1 && out[0] == c {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *StubProvider) EnsureModelReady(ctx context.Context, h Handle, policy NetworkPolicy) error {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return err
	}

	for _, code := range requiredModels(ph.pair) {
		found, err := p.registry.HasModel(ctx, p.Name(), code.String())
		if err != nil {
			return fmt.Errorf("failed to query model registry: %w", err)
		}
		if found {
			continue
		}

		if err := CheckPolicy(ctx, p.network, policy); err != nil {
			return fmt.Errorf("%s model: %w", code.Name(), err)
		}

		p.log.Info("downloading model", zap.String("provider", p.Name()), zap.String("language", code.Name()))
		if err := sleepCtx(ctx, p.config.DownloadDelay); err != nil {
			return fmt.Errorf("%s model download interrupted: %w", code.Name(), err)
		}

		if err := p.registry.SaveModel(ctx, store.Model{
			Provider:  p.Name(),
			Name:      code.String(),
			SizeBytes: p.config.ModelSize,
		}); err != nil {
			return fmt.Errorf("failed to register %s model: %w", code.Name(), err)
		}
	}
	return nil
}

func (p *StubProvider) Translate(ctx context.Context, h Handle, text string) (string, error) {
	ph, err := ownPairHandle(p.Name(), h)
	if err != nil {
		return "", err
	}

	for _, code := range requiredModels(ph.pair) {
		found, err := p.registry.HasModel(ctx, p.Name(), code.String())
		if err != nil {
			return "", fmt.Errorf("failed to query model registry: %w", err)
		}
		if !found {
			return "", fmt.Errorf("%w: %s", ErrModelMissing, code.Name())
		}
	}

	if err := sleepCtx(ctx, p.config.TranslateDelay); err != nil {
		return "", err
	}

	if ph.pair.Source == ph.pair.Target {
		return text, nil
	}
	if dict, ok := p.config.Dictionary[ph.pair]; ok {
		if translated, ok := dict[text]; ok {
			return translated, nil
		}
	}
	return "[" + ph.pair.Target.String() + "] " + text, nil
}

func (p *StubProvider) Release(h Handle) error {
	ph, ok := h.(*pairHandle)
	if !ok || ph.provider != p.Name() {
		return ErrForeignHandle
	}
	return ph.release()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
