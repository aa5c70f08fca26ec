package cmd

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/prompt-library/internal/config"
	"github.com/pders01/prompt-library/internal/library"
)

var (
	backupsJSON    bool
	pruneOlderThan int
	pruneForce     bool
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage the backups taken before imports",
	Long: `Every import snapshots the prompt table first. Backups are never
removed automatically.

Examples:
  prompts backups list
  prompts backups restore 2025-01-01T10:00:00.000Z
  prompts backups delete 2025-01-01T10:00:00.000Z
  prompts backups prune --older-than 30 --force`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE:  runBackupsList,
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the prompt table with a backup",
	Long: `Restore the prompt table from a backup. The current prompts are
backed up first, so a restore can itself be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackupsRestore,
}

var backupsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupsDelete,
}

var backupsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove backups older than the retention period",
	Long: `Remove backups older than --older-than days (default:
backups.retention_days from the config).

Without --force this only shows what would be removed.

Example:
  prompts backups prune              # Show what would be pruned
  prompts backups prune --force      # Actually prune backups`,
	RunE: runBackupsPrune,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
	backupsCmd.AddCommand(backupsListCmd, backupsRestoreCmd, backupsDeleteCmd, backupsPruneCmd)

	backupsListCmd.Flags().BoolVar(&backupsJSON, "json", false, "Output as JSON")
	backupsPruneCmd.Flags().IntVar(&pruneOlderThan, "older-than", 0, "Age in days (default: backups.retention_days)")
	backupsPruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Actually delete backups")
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	backups, err := lib.Backups(contextOf(cmd))
	if err != nil {
		return err
	}

	if backupsJSON {
		output, err := json.MarshalIndent(backups, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	fmt.Printf("Found %d backup(s):\n\n", len(backups))
	for _, b := range backups {
		fmt.Printf("  %s\n", b.Name())
		fmt.Printf("    Prompts: %d\n", b.Count)
		if !b.CreatedAt.IsZero() {
			fmt.Printf("    Age:     %s\n", formatDuration(time.Since(b.CreatedAt)))
		}
		fmt.Println()
	}
	return nil
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	ctx := contextOf(cmd)
	if _, err := lib.Backup(ctx, args[0]); err != nil {
		return err
	}

	locker := newLocker()
	if err := locker.Acquire(); err != nil {
		return err
	}
	defer locker.Release()

	safety, err := lib.CreateBackup(ctx)
	if err != nil {
		return fmt.Errorf("failed to back up current prompts: %w", err)
	}
	if err := lib.RestoreBackup(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	fmt.Printf("✓ Restored backup: %s\n", library.BackupKey(args[0]))
	fmt.Printf("  Previous prompts saved as: %s\n", safety)
	return nil
}

func runBackupsDelete(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	if err := lib.DeleteBackup(contextOf(cmd), args[0]); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted backup: %s\n", args[0])
	return nil
}

func runBackupsPrune(cmd *cobra.Command, args []string) error {
	lib, closeLib, err := openLibrary()
	if err != nil {
		return err
	}
	defer closeLib()

	retentionDays := pruneOlderThan
	if retentionDays <= 0 {
		retentionDays = config.GetRetentionDays()
	}
	cutoffDate := lib.Now().AddDate(0, 0, -retentionDays)

	fmt.Printf("Retention policy: %d days\n", retentionDays)
	fmt.Printf("Cutoff date: %s\n\n", cutoffDate.Format("2006-01-02"))

	ctx := contextOf(cmd)
	backups, err := lib.Backups(ctx)
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		fmt.Println("No backups found")
		return nil
	}

	var toPrune []library.BackupInfo
	for _, b := range backups {
		if !b.CreatedAt.IsZero() && b.CreatedAt.Before(cutoffDate) {
			toPrune = append(toPrune, b)
		}
	}

	if len(toPrune) == 0 {
		fmt.Println("No backups to prune")
		return nil
	}

	fmt.Printf("Backups to prune (%d):\n\n", len(toPrune))
	for _, b := range toPrune {
		fmt.Printf("  %s\n", b.Name())
		fmt.Printf("    Age:     %s\n", formatDuration(lib.Now().Sub(b.CreatedAt)))
		fmt.Printf("    Prompts: %d\n", b.Count)
		fmt.Println()
	}

	if !pruneForce {
		fmt.Println("This is a dry run. Use --force to actually prune backups.")
		return nil
	}

	fmt.Println("Pruning backups...")
	pruned := 0
	for _, b := range toPrune {
		if err := lib.DeleteBackup(ctx, b.Key); err != nil {
			fmt.Printf("  Error deleting %s: %v\n", b.Name(), err)
			continue
		}
		pruned++
	}
	fmt.Printf("\n✓ Pruned %d backup(s)\n", pruned)

	return nil
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 0 {
		return "< 1 day"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
