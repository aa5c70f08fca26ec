package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a prompt with its rating, notes and embedding",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	if err := lib.DeletePrompt(contextOf(cmd), args[0]); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted prompt: %s\n", args[0])
	return nil
}
