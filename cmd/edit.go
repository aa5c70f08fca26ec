package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/metadata"
)

var (
	editTitle   string
	editContent string
	editFile    string
	editModel   string
	editCode    bool
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a prompt's title, content or model",
	Long: `Update a stored prompt in place. Only the given fields change.

Changing the content re-estimates tokens and bumps the metadata update
time. Setting --model on a prompt without metadata starts tracking it.

Examples:
  prompts edit 3f2a... --title "Better title"
  prompts edit 3f2a... --file prompt.md --model claude-3-opus`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editContent, "content", "", "New content")
	editCmd.Flags().StringVar(&editFile, "file", "", "Read new content from a file (- for stdin)")
	editCmd.Flags().StringVar(&editModel, "model", "", "New model")
	editCmd.Flags().BoolVar(&editCode, "code", false, "Estimate tokens for code content")
}

func runEdit(cmd *cobra.Command, args []string) error {
	content, err := readContent(editContent, editFile)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(editTitle)
	if title == "" && content == "" && editModel == "" {
		return fmt.Errorf("nothing to change (use --title, --content, --file or --model)")
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	p, err := lib.Prompt(ctx, args[0])
	if err != nil {
		return err
	}

	if title != "" {
		p.Title = title
	}
	if content != "" {
		p.Content = content
	}

	now := lib.Now()
	switch {
	case p.Metadata == nil && editModel != "":
		meta, err := metadata.Track(editModel, p.Content, now)
		if err != nil {
			return fmt.Errorf("invalid model: %w", err)
		}
		p.Metadata = meta
	case p.Metadata != nil:
		meta, err := metadata.Touch(p.Metadata, now)
		if err != nil {
			return fmt.Errorf("failed to update metadata: %w", err)
		}
		if editModel != "" {
			tracked, err := metadata.Track(editModel, p.Content, now)
			if err != nil {
				return fmt.Errorf("invalid model: %w", err)
			}
			meta.Model = tracked.Model
		}
		p.Metadata = meta
	}
	if p.Metadata != nil {
		p.Metadata.TokenEstimate = metadata.EstimateTokens(p.Content, editCode)
	}

	if err := lib.UpdatePrompt(ctx, p); err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}

	fmt.Printf("✓ Updated prompt: %s\n", p.ID)

	if content != "" && config.GetEmbeddingsEnabled() {
		if err := embedPrompt(ctx, lib, p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to refresh embedding: %v\n", err)
		}
	}
	return nil
}
