package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/server"
)

func newDetectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect <scheduleId>",
		Short: "Run conflict detection against a stored schedule",
		Long:  `detect annotates every slot of the schedule with its conflicts, persists the annotations and prints a summary.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			app, err := server.New(cmd.Context(), cfg, logr)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Schedules.DetectConflicts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full summary as JSON")
	return cmd
}

func printSummary(w io.Writer, summary *models.ValidationSummary) {
	fmt.Fprintf(w, "schedule %s: %d slots, %d conflicted\n", summary.ScheduleID, summary.TotalSlots, summary.ConflictedSlots)

	types := make([]string, 0, len(summary.ByType))
	for t := range summary.ByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-28s %d\n", t, summary.ByType[models.ConflictType(t)])
	}
	for _, c := range summary.Conflicts {
		fmt.Fprintf(w, "  - %s %v: %s\n", c.Type, c.SlotIDs, c.Message)
	}

	if summary.Publishable {
		fmt.Fprintln(w, "publishable: yes")
	} else {
		fmt.Fprintln(w, "publishable: no")
	}
}
