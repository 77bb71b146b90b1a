/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/valpere/wordshift/internal/clipboard"
	"github.com/valpere/wordshift/internal/config"
	"github.com/valpere/wordshift/internal/engine"
	"github.com/valpere/wordshift/internal/language"
	"github.com/valpere/wordshift/internal/locale"
	"github.com/valpere/wordshift/internal/session"
	"github.com/valpere/wordshift/internal/store"
)

// newLogger returns a development logger for env "development" and a
// production logger otherwise, both at level.
func newLogger(env, level string) (*zap.Logger, error) {
	var zcfg zap.Config
	if env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}

// openRegistry opens the SQLite model registry at path, or an in-memory one
// when path is empty.
func openRegistry(path string) (engine.ModelRegistry, func() error, error) {
	if path == "" {
		return engine.NewMemoryRegistry(), func() error { return nil }, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := store.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, db.Close, nil
}

// buildProvider constructs the configured translation engine.
func buildProvider(c *config.Config, registry engine.ModelRegistry, log *zap.Logger) (engine.Provider, error) {
	network := engine.StaticNetwork{IsMetered: c.Network.Metered}

	switch c.Engine.Provider {
	case "stub":
		return engine.NewStubProvider(nil, registry, network, log), nil
	case "google":
		return engine.NewGoogleProvider(c.Engine.Google.Credentials), nil
	case "amazon":
		return engine.NewAmazonProvider(c.Engine.Amazon.Region), nil
	case "ollama":
		return engine.NewOllamaProvider(c.Engine.Ollama.URL, c.Engine.Ollama.Model, registry, network, log), nil
	case "mymemory":
		return engine.NewMyMemoryProvider(c.Engine.MyMemory.Email), nil
	case "openrouter":
		return engine.NewOpenRouterProvider(c.Engine.OpenRouter.APIKey, c.Engine.OpenRouter.URL, c.Engine.OpenRouter.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", c.Engine.Provider)
	}
}

func newClipboard() session.Clipboard {
	if clipboard.Available() {
		return clipboard.System{}
	}
	logger.Info("system clipboard unavailable, copying to stderr")
	return &clipboard.Writer{W: os.Stderr}
}

// sessionDeps are the collaborators of one session, closed together.
type sessionDeps struct {
	ctl      *session.Controller
	messages *locale.Catalog
	closers  []func() error
}

func (d *sessionDeps) Close() {
	if d.ctl != nil {
		if err := d.ctl.Close(); err != nil {
			logger.Warn("failed to close session", zap.Error(err))
		}
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Warn("failed to close resource", zap.Error(err))
		}
	}
}

// newSession wires a controller from the loaded configuration. source and
// target override the configured languages when non-empty. A nil messages
// catalog is built from cfg.Locale.
func newSession(source, target string, messages *locale.Catalog, observer session.Observer) (*sessionDeps, error) {
	deps := &sessionDeps{}

	if messages == nil {
		var err error
		if messages, err = locale.New(cfg.Locale); err != nil {
			return nil, err
		}
	}
	deps.messages = messages

	registry, closeRegistry, err := openRegistry(cfg.Models.DB)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, closeRegistry)

	provider, err := buildProvider(cfg, registry, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}

	policy, err := engine.ParseNetworkPolicy(cfg.Network.Policy)
	if err != nil {
		deps.Close()
		return nil, err
	}
	prepare, err := session.ParsePrepareMode(cfg.Session.PrepareOnChange)
	if err != nil {
		deps.Close()
		return nil, err
	}

	if source == "" {
		source = cfg.Session.Source
	}
	if target == "" {
		target = cfg.Session.Target
	}

	deps.ctl = session.New(provider, session.Options{
		Source:          language.ParseSource(source),
		Target:          language.ParseTarget(target),
		Policy:          policy,
		PrepareOnChange: prepare,
		Messages:        messages,
		Clipboard:       newClipboard(),
		Observer:        observer,
		Logger:          logger,
	})
	return deps, nil
}

// requestContext bounds one translate request by timeout, if set.
func requestContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}
