package cmd

import (
	"fmt"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/metadata"
)

var (
	modelsJSON   bool
	modelsToon   bool
	modelsRename string
)

var modelsCmd = &cobra.Command{
	Use:   "models [model]",
	Short: "List or rename the models prompts are written for",
	Long: `List all models used across prompts with usage counts.
Optionally rename a model across all prompts.

Examples:
  prompts models                          # List all models
  prompts models gpt-4 --rename gpt-4o    # Rename a model`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "Output as JSON")
	modelsCmd.Flags().BoolVar(&modelsToon, "toon", false, "Output in LLM-friendly toon format")
	modelsCmd.Flags().StringVar(&modelsRename, "rename", "", "Rename model to new value")
}

func runModels(cmd *cobra.Command, args []string) error {
	if modelsRename != "" {
		if len(args) == 0 {
			return fmt.Errorf("model name required for --rename")
		}
		return renameModel(cmd, args[0], modelsRename)
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	prompts, err := lib.Prompts(contextOf(cmd))
	if err != nil {
		return err
	}

	counts := modelCounts(prompts)
	if len(counts) == 0 {
		fmt.Println("No models found")
		return nil
	}

	if modelsJSON {
		output, err := json.MarshalIndent(counts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if modelsToon {
		output, err := gotoon.Encode(counts)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d model(s):\n\n", len(counts))
	for _, m := range counts {
		fmt.Printf("  %-30s %3d\n", m.Model, m.Count)
	}

	return nil
}

func renameModel(cmd *cobra.Command, oldModel, newModel string) error {
	oldModel = strings.TrimSpace(oldModel)

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	prompts, err := lib.Prompts(ctx)
	if err != nil {
		return err
	}

	now := lib.Now()
	updated := 0
	for i, p := range prompts {
		if p.Metadata == nil || p.Model() != oldModel {
			continue
		}
		tracked, err := metadata.Track(newModel, p.Content, now)
		if err != nil {
			return fmt.Errorf("invalid model: %w", err)
		}
		meta, err := metadata.Touch(p.Metadata, now)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", p.ID, err)
		}
		meta.Model = tracked.Model
		prompts[i].Metadata = meta
		updated++
	}

	if updated == 0 {
		fmt.Printf("No prompts use model: %s\n", oldModel)
		return nil
	}

	if err := lib.SavePrompts(ctx, prompts); err != nil {
		return err
	}

	fmt.Printf("✓ Renamed model %s to %s in %d prompt(s)\n", oldModel, strings.TrimSpace(newModel), updated)
	return nil
}
