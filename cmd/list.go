package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/posekit/internal/utils"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved decode runs in the database",
	Run: func(cmd *cobra.Command, args []string) {
		runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		utils.Die("Database unavailable", err, nil)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		utils.Die("Failed to list decode runs", err, nil)
	}

	if len(runs) == 0 {
		fmt.Println("No decode runs found in database.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tMODE\tPOSES\tCREATED")
	fmt.Fprintln(w, "--\t------\t----\t-----\t-------")

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Source, r.Mode, r.PoseCount, r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
}
