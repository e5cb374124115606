/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/wbsplan/internal/ui"
)

var (
	doneRationale string
	doneNote      string
)

var doneCmd = &cobra.Command{
	Use:   "done <WBS.md> <task-id>",
	Short: "Mark a task as completed in a plan document",
	Long: `Complete a leaf task in a plan document and check its box. Parent tasks
whose subtasks are all complete are checked as well.

The task must be a leaf and all of its dependencies must already be complete.`,
	Example: `  wbsplan done WBS.md 1.2
  wbsplan done WBS.md 2.1 --rationale "migrations applied" --note "ran on staging"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAppContext(true)
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

		res, err := c.Execution.Complete(ctx, start.SessionID, strings.TrimSpace(args[1]), doneRationale, doneNote)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Warn(w))
		}
		if !res.DocumentUpdated {
			return fmt.Errorf("task %s completed but %s was not updated", res.TaskID, args[0])
		}
		fmt.Fprintf(out, "%s %s %s\n", ui.Icon("✓", ui.StyleSuccess), res.TaskID, res.Title)
		if len(res.AutoCompleted) > 0 {
			fmt.Fprintf(out, "  also completed: %s\n", strings.Join(res.AutoCompleted, ", "))
		}
		fmt.Fprintf(out, "  progress: %d/%d (%d%%) %s\n", res.Progress.Completed, res.Progress.Total, res.Progress.Percent,
			ui.ProgressBar(res.Progress.Completed, res.Progress.Total, 20))
		if res.NextTask != nil {
			fmt.Fprintf(out, "  next: %s %s (%s)\n", res.NextTask.Number, res.NextTask.Title, res.NextTask.ID)
		}
		return nil
	},
}

func init() {
	doneCmd.Flags().StringVar(&doneRationale, "rationale", "", "why the task is considered done")
	doneCmd.Flags().StringVar(&doneNote, "note", "", "what was done")
	rootCmd.AddCommand(doneCmd)
}
