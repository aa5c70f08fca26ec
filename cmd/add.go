package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/metadata"
	"github.com/pders01/prompt-library/internal/models"
)

var (
	addContent string
	addFile    string
	addModel   string
	addCode    bool
	addNoEmbed bool
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a prompt to the library",
	Long: `Add a new prompt. The content comes from --content, or from --file
("-" reads standard input).

When --model is given the prompt also records model metadata and a token
estimate. Use --code for prompts that are mostly source code; their token
estimate is weighted up.

Examples:
  prompts add "Summarize PR" --content "Summarize this pull request"
  prompts add "Refactor" --file refactor.txt --model gpt-4 --code
  cat prompt.md | prompts add "Release notes" --file -`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringVar(&addContent, "content", "", "Prompt content")
	addCmd.Flags().StringVar(&addFile, "file", "", "Read prompt content from a file (- for stdin)")
	addCmd.Flags().StringVar(&addModel, "model", "", "Model the prompt is written for")
	addCmd.Flags().BoolVar(&addCode, "code", false, "Estimate tokens for code content")
	addCmd.Flags().BoolVar(&addNoEmbed, "no-embed", false, "Skip embedding generation")
}

func runAdd(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}

	content, err := readContent(addContent, addFile)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required (use --content or --file)")
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	now := lib.Now()
	p := models.Prompt{
		ID:        lib.NewID(),
		Title:     title,
		Content:   content,
		CreatedAt: float64(now.UnixMilli()),
	}

	if addModel != "" {
		meta, err := metadata.Track(addModel, content, now)
		if err != nil {
			return fmt.Errorf("invalid model: %w", err)
		}
		meta.TokenEstimate = metadata.EstimateTokens(content, addCode)
		p.Metadata = meta
	}

	ctx := contextOf(cmd)
	if err := lib.AddPrompt(ctx, p); err != nil {
		return fmt.Errorf("failed to add prompt: %w", err)
	}

	fmt.Printf("✓ Added prompt: %s\n", p.ID)
	fmt.Printf("  Title: %s\n", p.Title)
	if p.Metadata != nil {
		est := p.Metadata.TokenEstimate
		fmt.Printf("  Model: %s (~%d-%d tokens, %s confidence)\n", p.Metadata.Model, est.Min, est.Max, est.Confidence)
	}

	if !addNoEmbed && config.GetEmbeddingsEnabled() {
		if err := embedPrompt(ctx, lib, p); err != nil {
			// Don't fail the add, just warn
			fmt.Fprintf(os.Stderr, "Warning: failed to generate embedding: %v\n", err)
			fmt.Fprintln(os.Stderr, "Tip: Ensure Ollama is running and the model is available: ollama pull nomic-embed-text")
		}
	}

	return nil
}

// readContent returns inline content, or the content of file when set.
func readContent(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	if inline != "" {
		return "", fmt.Errorf("use either --content or --file, not both")
	}

	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read content: %w", err)
	}
	return string(data), nil
}
