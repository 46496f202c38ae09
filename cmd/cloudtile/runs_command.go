package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cloudtile/internal/runlog"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent conversion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runlog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					run.Filename,
					run.Operation,
					run.Mode,
					zoomLabel(run),
					run.Outcome,
					run.Output,
				})
			}
			headers := []string{"When", "File", "Operation", "Mode", "Zoom", "Outcome", "Output"}
			fmt.Fprintln(out, renderTable(out, headers, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func zoomLabel(run runlog.Run) string {
	if run.MinZoom == nil || run.MaxZoom == nil {
		return ""
	}
	return strconv.Itoa(*run.MinZoom) + "-" + strconv.Itoa(*run.MaxZoom)
}
