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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "wordshift",
	Short: "Translate text between a fixed set of languages",
	Long: `A terminal translator built around a single translation session:
pick a source and a target language, type text, get the translation,
copy it to the clipboard.

Supported languages: English, Hindi, Spanish, French, German, Chinese, Gujarati
Supported engines:   stub, google, amazon, ollama, mymemory, openrouter

Use "wordshift session" for an interactive session and
"wordshift translate --help" for one-shot translation.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := newLogger(cfg.Env, cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	var err error
	v, err = config.New()
	if err != nil {
		panic(err)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default configs/default.yaml)")
	flags.String("provider", "", "Translation engine: stub, google, amazon, ollama, mymemory, openrouter")
	flags.String("locale", "", "Locale for status and error messages")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("network-policy", "", "Model download policy: any, unmetered")
	flags.Bool("metered", false, "Treat the current connection as metered")
	flags.String("db", "", "Model registry database path")

	bindings := map[string]string{
		"engine.provider": "provider",
		"locale":          "locale",
		"log.level":       "log-level",
		"network.policy":  "network-policy",
		"network.metered": "metered",
		"models.db":       "db",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
