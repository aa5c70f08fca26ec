package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <template>",
	Short: "Generate pre-defined reports",
	Long: `Generate formatted reports using pre-defined templates.

Available templates:
  daily   - Today's prompts with summary stats
  top     - The ten best-rated prompts

Examples:
  prompts report daily
  prompts report top`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "daily":
		return generateDailyReport(cmd)
	case "top":
		return generateTopReport(cmd)
	default:
		return fmt.Errorf("unknown report template: %s (available: daily, top)", args[0])
	}
}

func generateDailyReport(cmd *cobra.Command) error {
	fmt.Println("Daily Prompt Report")
	fmt.Println("═══════════════════")
	fmt.Println()

	oldJSON, oldToon, oldYAML := statsJSON, statsToon, statsYAML
	statsJSON, statsToon, statsYAML = false, false, false
	err := runStats(cmd, []string{})
	statsJSON, statsToon, statsYAML = oldJSON, oldToon, oldYAML
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Today's Prompts")
	fmt.Println("───────────────")

	oldModel, oldSince := listModel, listSince
	oldListJSON, oldListToon := listJSON, listToon

	listModel = ""
	listSince = time.Now().Format("2006-01-02")
	listJSON, listToon = false, false

	err = runList(cmd, []string{})

	listModel, listSince = oldModel, oldSince
	listJSON, listToon = oldListJSON, oldListToon

	return err
}

func generateTopReport(cmd *cobra.Command) error {
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
	ratings, err := lib.Ratings(ctx)
	if err != nil {
		return err
	}

	type rated struct {
		title, id string
		rating    float64
	}
	var top []rated
	for _, p := range prompts {
		if r := ratings[p.ID]; r > 0 {
			top = append(top, rated{title: p.Title, id: p.ID, rating: r})
		}
	}

	fmt.Println("Top Rated Prompts")
	fmt.Println("═════════════════")
	fmt.Println()

	if len(top) == 0 {
		fmt.Println("No rated prompts")
		return nil
	}

	sort.SliceStable(top, func(i, j int) bool {
		return top[i].rating > top[j].rating
	})
	for i, t := range top[:min(10, len(top))] {
		fmt.Printf("%2d. %s  %s\n", i+1, stars(t.rating), t.title)
		fmt.Printf("    ID: %s\n", t.id)
	}
	return nil
}
