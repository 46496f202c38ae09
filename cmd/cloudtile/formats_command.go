package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloudtile/internal/geofile"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List recognized formats and conversion steps",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			formatRows := make([][]string, 0)
			for _, format := range geofile.Formats() {
				formatRows = append(formatRows, []string{format.String(), format.Suffix()})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Format", "Suffix"}, formatRows))

			stepRows := make([][]string, 0)
			for _, step := range geofile.Steps() {
				for _, source := range step.Sources {
					stepRows = append(stepRows, []string{source.String(), step.Target.String(), step.Tool.String()})
				}
			}
			fmt.Fprintln(out, renderTable(out, []string{"From", "To", "Tool"}, stepRows))
			return nil
		},
	}
}
