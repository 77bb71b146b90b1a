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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/wordshift/internal/store"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage downloaded language models",
	Long: `List, inspect, and remove entries from the SQLite model registry.

Removing an entry makes the next session download the model again.`,
}

func openStore() (*store.Store, error) {
	if cfg.Models.DB == "" {
		return nil, fmt.Errorf("no model registry configured (models.db)")
	}
	db, err := store.New(cfg.Models.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloaded models",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		models, err := db.ListModels(context.Background(), modelsProvider)
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}

		if len(models) == 0 {
			fmt.Println("No models downloaded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tMODEL\tSIZE\tDOWNLOADED\tLAST USED")
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				m.Provider, m.Name, formatBytes(m.SizeBytes),
				m.DownloadedAt.Format("2006-01-02 15:04"),
				m.LastUsed.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var modelsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show model registry statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Models:     %d\n", stats.Models)
		fmt.Printf("Providers:  %d\n", stats.Providers)
		fmt.Printf("Total size: %s\n", formatBytes(stats.TotalBytes))
		return nil
	},
}

var modelsDeleteCmd = &cobra.Command{
	Use:   "delete <provider> <model>",
	Short: "Delete a model entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteModel(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to delete model: %w", err)
		}
		fmt.Printf("Deleted model: %s/%s\n", args[0], args[1])
		return nil
	},
}

var modelsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all model entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearModels(context.Background(), modelsProvider)
		if err != nil {
			return fmt.Errorf("failed to clear models: %w", err)
		}
		fmt.Printf("Cleared %d models from the registry.\n", n)
		return nil
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.PersistentFlags().StringVar(&modelsProvider, "for", "", "Only models of this provider")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsStatsCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
	modelsCmd.AddCommand(modelsClearCmd)
}
