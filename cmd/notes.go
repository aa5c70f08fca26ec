package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/models"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes attached to prompts",
	Long: `List, add, edit and delete free-form notes on a prompt.

Examples:
  prompts notes list <prompt-id>
  prompts notes add <prompt-id> "Works better with a system prompt"
  prompts notes edit <prompt-id> <note-id> "Updated note"
  prompts notes delete <prompt-id> <note-id>`,
}

var notesListCmd = &cobra.Command{
	Use:   "list <prompt-id>",
	Short: "List the notes of a prompt, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotesList,
}

var notesAddCmd = &cobra.Command{
	Use:   "add <prompt-id> <content>",
	Short: "Add a note to a prompt",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runNotesAdd,
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <prompt-id> <note-id> <content>",
	Short: "Replace the content of a note",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runNotesEdit,
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <prompt-id> <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(2),
	RunE:  runNotesDelete,
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd, notesAddCmd, notesEditCmd, notesDeleteCmd)
}

func runNotesList(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	notes, err := lib.Notes(contextOf(cmd), args[0])
	if err != nil {
		return err
	}

	if len(notes) == 0 {
		fmt.Println("No notes found")
		return nil
	}

	fmt.Printf("Found %d note(s):\n\n", len(notes))
	for _, n := range notes {
		fmt.Printf("  %s\n", n.ID)
		fmt.Printf("    Updated: %s\n", formatMillis(n.UpdatedAt))
		fmt.Printf("    %s\n\n", n.Content)
	}
	return nil
}

func runNotesAdd(cmd *cobra.Command, args []string) error {
	content := strings.TrimSpace(strings.Join(args[1:], " "))
	if content == "" {
		return fmt.Errorf("note content must not be empty")
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

	note, err := lib.AddNote(ctx, args[0], content)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	fmt.Printf("✓ Added note: %s\n", note.ID)
	return nil
}

func runNotesEdit(cmd *cobra.Command, args []string) error {
	content := strings.TrimSpace(strings.Join(args[2:], " "))
	if content == "" {
		return fmt.Errorf("note content must not be empty")
	}

	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	notes, err := lib.Notes(ctx, args[0])
	if err != nil {
		return err
	}

	var note *models.Note
	for i := range notes {
		if notes[i].ID == args[1] {
			note = &notes[i]
			break
		}
	}
	if note == nil {
		return fmt.Errorf("note not found: %s", args[1])
	}

	note.Content = content
	if _, err := lib.UpdateNote(ctx, *note); err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	fmt.Printf("✓ Updated note: %s\n", note.ID)
	return nil
}

func runNotesDelete(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	if err := lib.DeleteNote(contextOf(cmd), args[0], args[1]); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted note: %s\n", args[1])
	return nil
}
