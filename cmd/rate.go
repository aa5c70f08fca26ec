package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate <id> <0-5>",
	Short: "Rate a prompt",
	Long: `Set a prompt's rating between 0 and 5. A rating of 0 clears it.

Only rated prompts count toward the average rating in stats and exports.

Example:
  prompts rate 3f2a9c1e-... 4.5`,
	Args: cobra.ExactArgs(2),
	RunE: runRate,
}

func init() {
	rootCmd.AddCommand(rateCmd)
}

func runRate(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid rating %q: %w", args[1], err)
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	if _, err := lib.Prompt(ctx, args[0]); err != nil {
		return err
	}
	if err := lib.SetRating(ctx, args[0], value); err != nil {
		return err
	}

	if value == 0 {
		fmt.Printf("✓ Cleared rating: %s\n", args[0])
	} else {
		fmt.Printf("✓ Rated %s: %s\n", args[0], stars(value))
	}
	return nil
}
