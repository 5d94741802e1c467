package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		repo, err := openHistory(config)
		if err != nil {
			return err
		}
		defer repo.Close()

		filters := make(map[string]interface{})
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			filters["status"] = status
		}

		runs, err := repo.FindAll(filters)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tSTATUS\tSIZE\tTARGET\tCREATED")
		for _, r := range runs {
			target := r.ExtractionDir
			if target == "" {
				target = r.PlacedPath
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(r.ID, 8),
				truncate(r.URL, 50),
				r.Status,
				humanize.Bytes(uint64(r.BytesTransferred)),
				target,
				humanize.Time(r.CreatedAt))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringP("status", "s", "", "Filter by status")
}
