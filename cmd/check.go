/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/wbsplan/internal/execution"
	"github.com/josephgoksu/wbsplan/internal/ui"
)

var checkFormat string

var checkCmd = &cobra.Command{
	Use:   "check <WBS.md>",
	Short: "Validate a plan document and show what is ready to execute",
	Long: `Parse a plan document the same way the execution tool does and report
progress, executable tasks and any warnings. The command fails when the
document has no tasks or its dependencies form a cycle.

Use --format json, yaml or markdown for a machine-readable status report.`,
	Example: `  wbsplan check output/planning/Shop_WBS.md
  wbsplan check WBS.md --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAppContext(false)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx := cmd.Context()
		start, err := c.Execution.Begin(ctx, args[0])
		if err != nil {
			return err
		}
		defer func() { _ = c.Execution.End(ctx, start.SessionID) }()

		status, err := c.Execution.Status(ctx, start.SessionID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if checkFormat != "text" {
			data, _, err := execution.RenderSnapshot(execution.Snapshot{Status: *status, GeneratedAt: status.UpdatedAt}, checkFormat)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}
		printCheck(out, start, status)
		return nil
	},
}

func printCheck(w io.Writer, start *execution.StartResult, status *execution.StatusResult) {
	fmt.Fprintf(w, "%s\n", ui.StyleTitle.Render(start.ProjectName))
	fmt.Fprintf(w, "  document:   %s\n", start.DocumentPath)
	fmt.Fprintf(w, "  progress:   %d/%d (%d%%) %s\n", status.Progress.Completed, status.Progress.Total, status.Progress.Percent,
		ui.ProgressBar(status.Progress.Completed, status.Progress.Total, 20))
	fmt.Fprintf(w, "  executable: %d\n", status.Executable)
	fmt.Fprintf(w, "  blocked:    %d\n", status.Blocked)
	if status.NextTask != nil {
		fmt.Fprintf(w, "  next:       %s %s (%s)\n", status.NextTask.Number, status.NextTask.Title, status.NextTask.ID)
	}
	if len(start.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warn := range start.Warnings {
			fmt.Fprintf(w, "  %s\n", ui.Warn(warn))
		}
	}
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "output format: text, json, yaml or markdown")
	rootCmd.AddCommand(checkCmd)
}
