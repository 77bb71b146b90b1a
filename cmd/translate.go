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
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/wordshift/internal/detector"
	"github.com/valpere/wordshift/internal/locale"
	"github.com/valpere/wordshift/internal/validator"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string
	copyOutput bool
	verify     bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text once",
	Long: `Translate text given as arguments, read from --input, or read from stdin.

Languages may be given by name or ISO code. Unknown source languages fall
back to English and unknown target languages to Hindi. Use --source auto to
detect the source language.`,
	Example: `  wordshift translate -t Hindi Hello
  wordshift translate -s auto -t es -i letter.txt -o letter.es.txt
  echo "Thank you" | wordshift translate -t gu --copy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile != "" && inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		text, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		source := sourceLang
		if source == "auto" {
			source = ""
			if detected, ok := detector.New().Detect(text); ok {
				source = detected.String()
				fmt.Fprintf(os.Stderr, "Detected source language: %s\n", detected.Name())
			}
		}

		deps, err := newSession(source, targetLang, nil, nil)
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx, cancel := requestContext(context.Background(), cfg.Engine.Timeout)
		defer cancel()

		state := deps.ctl.State()
		fmt.Fprintf(os.Stderr, "%s (%s -> %s)\n", deps.messages.Message(locale.Translating, nil), state.Source.Name(), state.Target.Name())

		out, err := deps.ctl.RequestTranslate(ctx, text).Wait(ctx)
		if err != nil {
			if out != "" {
				fmt.Fprintln(os.Stderr, out)
			}
			return err
		}

		if verify {
			if err := validator.New().Check(out, state.Target); err != nil {
				logger.Warn("translation failed language check", zap.Error(err))
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		if outputFile != "" {
			if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Successfully translated %s to %s\n", state.Source.Name(), state.Target.Name())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}

		if copyOutput {
			copied, err := deps.ctl.RequestCopy(ctx)
			if err != nil {
				return err
			}
			if copied {
				fmt.Fprintln(os.Stderr, deps.messages.Message(locale.CopiedToClipboard, nil))
			} else {
				fmt.Fprintln(os.Stderr, deps.messages.Message(locale.NothingToCopy, nil))
			}
		}
		return nil
	},
}

// readInput returns the text to translate from args, the input file or r.
func readInput(r io.Reader, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case inputFile != "":
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "Source language, or auto (default session.source)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language (default session.target)")
	translateCmd.Flags().BoolVar(&copyOutput, "copy", false, "Copy the translation to the clipboard")
	translateCmd.Flags().BoolVar(&verify, "verify", false, "Warn when the translation does not read as the target language")
}
