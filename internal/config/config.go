// Package config loads wordshift settings from an optional YAML file,
// WORDSHIFT_* environment variables and defaults, in that precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "WORDSHIFT"

type Config struct {
	Env     string        `mapstructure:"env" validate:"oneof=development production"`
	Log     LogConfig     `mapstructure:"log"`
	Locale  string        `mapstructure:"locale" validate:"required"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Network NetworkConfig `mapstructure:"network"`
	Session SessionConfig `mapstructure:"session"`
	Models  ModelsConfig  `mapstructure:"models"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type EngineConfig struct {
	Provider   string           `mapstructure:"provider" validate:"oneof=stub google amazon ollama mymemory openrouter"`
	Timeout    time.Duration    `mapstructure:"timeout" validate:"min=0"`
	Google     GoogleConfig     `mapstructure:"google"`
	Amazon     AmazonConfig     `mapstructure:"amazon"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	MyMemory   MyMemoryConfig   `mapstructure:"mymemory"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
}

type GoogleConfig struct {
	Credentials string `mapstructure:"credentials"`
}

type AmazonConfig struct {
	Region string `mapstructure:"region"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url" validate:"omitempty,url"`
	Model string `mapstructure:"model"`
}

type MyMemoryConfig struct {
	Email string `mapstructure:"email" validate:"omitempty,email"`
}

type OpenRouterConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
	URL    string `mapstructure:"url" validate:"omitempty,url"`
}

type NetworkConfig struct {
	Metered bool   `mapstructure:"metered"`
	Policy  string `mapstructure:"policy" validate:"oneof=any unmetered"`
}

type SessionConfig struct {
	Source          string `mapstructure:"source" validate:"required"`
	Target          string `mapstructure:"target" validate:"required"`
	PrepareOnChange string `mapstructure:"prepare_on_change" validate:"oneof=source both none"`
}

type ModelsConfig struct {
	DB string `mapstructure:"db"`
}

var defaults = map[string]interface{}{
	"env":                       "production",
	"log.level":                 "warn",
	"locale":                    "en",
	"engine.provider":           "stub",
	"engine.timeout":            "0s",
	"engine.ollama.url":         "http://localhost:11434",
	"engine.ollama.model":       "llama3.2",
	"engine.openrouter.model":   "google/gemini-2.5-flash-preview:free",
	"engine.openrouter.url":     "https://openrouter.ai/api/v1",
	"network.metered":           false,
	"network.policy":            "unmetered",
	"session.source":            "English",
	"session.target":            "Hindi",
	"session.prepare_on_change": "both",
	"models.db":                 "wordshift.db",
	"engine.google.credentials": "",
	"engine.amazon.region":      "",
	"engine.mymemory.email":     "",
	"engine.openrouter.api_key": "",
}

// env names that differ from the WORDSHIFT_ prefixed default.
var envAliases = map[string][]string{
	"engine.google.credentials": {"GOOGLE_APPLICATION_CREDENTIALS"},
	"engine.openrouter.api_key": {"OPENROUTER_API_KEY"},
	"engine.amazon.region":      {"AWS_REGION"},
}

var validate = validator.New()

// New returns a viper instance with defaults and environment bindings set.
// Callers may bind command-line flags onto it before calling Load.
func New() (*viper.Viper, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for key, aliases := range envAliases {
		names := append([]string{key, EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return v, nil
}

// Load reads path, or configs/default.yaml when path is empty, and returns
// the validated configuration. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("default")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validation failed: %w", err)
		}
		var msgs []string
		for _, e := range verrs {
			msgs = append(msgs, fmt.Sprintf("Field: %s, Tag: %s, Param: %s", e.Namespace(), e.Tag(), e.Param()))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}
