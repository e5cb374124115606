/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/wbsplan/internal/config"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/ui"
	"github.com/josephgoksu/wbsplan/internal/util"
	"github.com/josephgoksu/wbsplan/types"
)

var historyKind string

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "Show the audit journal of planning and execution sessions",
	Long: `List recorded sessions, newest first, or show the steps and completions of
one session. A unique prefix of the session id is enough.

The journal is only written when journal.path is configured.`,
	Example: `  wbsplan history
  wbsplan history --kind execution
  wbsplan history plan-3f2a`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Journal.Path == "" {
			return fmt.Errorf("journal is disabled; set journal.path (for example %s)", config.DefaultJournalPath())
		}
		switch historyKind {
		case "", journal.KindPlanning, journal.KindExecution:
		default:
			return types.Validation(fmt.Sprintf("invalid kind %q", historyKind), "must be planning or execution")
		}

		j, err := journal.Open(appConfig.Journal.Path)
		if err != nil {
			return err
		}
		defer func() { _ = j.Close() }()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			sessions, err := j.Sessions(ctx, historyKind)
			if err != nil {
				return err
			}
			printSessions(out, sessions)
			return nil
		}

		candidates, err := j.ResolveSession(ctx, args[0])
		if err != nil {
			return err
		}
		id, err := util.ResolvePrefix(args[0], candidates, "session")
		if err != nil {
			if errors.Is(err, util.ErrAmbiguousID) {
				return types.Validation(err.Error())
			}
			return types.NotFound(fmt.Sprintf("session %s not found in journal", args[0]))
		}

		if strings.HasPrefix(id, util.ExecPrefix) {
			completions, err := j.Completions(ctx, id)
			if err != nil {
				return err
			}
			printCompletions(out, id, completions)
			return nil
		}
		steps, err := j.Steps(ctx, id)
		if err != nil {
			return err
		}
		printSteps(out, id, steps)
		return nil
	},
}

func printSessions(w io.Writer, sessions []journal.SessionEntry) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	table := &ui.Table{Headers: []string{"Created", "Kind", "Session", "Project", "Document"}}
	for _, s := range sessions {
		table.AddRow(s.CreatedAt.Local().Format(time.DateTime), s.Kind, s.ID, s.ProjectName, s.DocumentPath)
	}
	_ = table.Write(w)
}

func printSteps(w io.Writer, id string, steps []journal.StepEntry) {
	fmt.Fprintf(w, "Planning session %s: %d steps\n", id, len(steps))
	for _, s := range steps {
		marker := ""
		switch {
		case s.IsRevision:
			marker = fmt.Sprintf(" [revises %d]", s.RevisesStep)
		case s.BranchID != "":
			marker = fmt.Sprintf(" [branch %s]", s.BranchID)
		}
		fmt.Fprintf(w, "  %d/%d%s +%d tasks  %s\n", s.StepNumber, s.TotalSteps, marker, s.TasksAdded, firstLine(s.Text))
	}
}

func printCompletions(w io.Writer, id string, completions []journal.CompletionEntry) {
	fmt.Fprintf(w, "Execution session %s: %d completions\n", id, len(completions))
	for _, c := range completions {
		fmt.Fprintf(w, "  %d. %s %s", c.Step, c.TaskID, c.Title)
		if len(c.AutoCompleted) > 0 {
			fmt.Fprintf(w, " (also %s)", strings.Join(c.AutoCompleted, ", "))
		}
		fmt.Fprintln(w)
		if c.Rationale != "" {
			fmt.Fprintf(w, "     %s\n", firstLine(c.Rationale))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func init() {
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "only list sessions of this kind: planning or execution")
	rootCmd.AddCommand(historyCmd)
}
