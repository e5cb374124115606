package mcp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/wbsplan/internal/execution"
	"github.com/josephgoksu/wbsplan/internal/planning"
	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/types"
)

// FormatStepResult converts a planning step result into concise Markdown.
func FormatStepResult(res *planning.StepResult) string {
	if res == nil {
		return "No planning result."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Planning Step %d/%d: %s\n", res.StepNumber, res.TotalSteps, res.ProjectName)
	fmt.Fprintf(&sb, "**Session**: `%s` | **Status**: %s | **Steps recorded**: %d\n\n", res.SessionID, res.Status, res.StepsRecorded)

	s := res.Summary
	fmt.Fprintf(&sb, "- **Tasks added**: %d\n", len(res.TasksAdded))
	fmt.Fprintf(&sb, "- **Total tasks**: %d (%d root, %d leaf)\n", s.TotalTasks, s.RootTasks, s.LeafTasks)
	fmt.Fprintf(&sb, "- **Priorities**: High %d, Medium %d, Low %d\n",
		s.ByPriority[string(task.PriorityHigh)], s.ByPriority[string(task.PriorityMedium)], s.ByPriority[string(task.PriorityLow)])
	if len(res.Branches) > 0 {
		fmt.Fprintf(&sb, "- **Branches**: %s\n", strings.Join(res.Branches, ", "))
	}
	if res.Export != nil {
		sb.WriteString(FormatExport(res.Export))
		sb.WriteString("\n")
	}
	if res.ActionRequired {
		fmt.Fprintf(&sb, "\n> **Action required** (%s): %s\n", res.ActionType, res.ActionDescription)
	}
	writeWarnings(&sb, res.Warnings)

	if res.NextStepNeeded {
		fmt.Fprintf(&sb, "\n> **Hint**: continue with step %d using session_id `%s`.\n", res.StepNumber+1, res.SessionID)
	} else {
		sb.WriteString("\n> Planning complete. Start execution with the wbs_execution tool.\n")
	}
	return strings.TrimSpace(sb.String())
}

// FormatExport describes a document export in one line.
func FormatExport(out *planning.ExportResult) string {
	if out == nil {
		return ""
	}
	if out.Error != "" {
		return fmt.Sprintf("- **Export failed**: `%s` (%s)", out.Path, out.Error)
	}
	return fmt.Sprintf("- **Document**: `%s` (%d lines, %d bytes)", out.Path, out.Lines, out.Bytes)
}

// FormatPlan converts a Plan into concise Markdown.
func FormatPlan(p *planning.Plan) string {
	if p == nil {
		return "No plan found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n", p.ProjectName)
	fmt.Fprintf(&sb, "**Session**: `%s` | **Status**: %s | **Steps**: %d | **Tasks**: %d\n\n", p.ID, p.Status, len(p.Steps), len(p.Tasks))
	if p.ProblemStatement != "" {
		sb.WriteString(p.ProblemStatement)
		sb.WriteString("\n\n")
	}
	if p.OutputPath != "" {
		fmt.Fprintf(&sb, "**Document**: `%s`\n\n", p.OutputPath)
	}
	if len(p.Steps) > 0 {
		sb.WriteString("### Steps\n")
		for _, s := range p.Steps {
			marker := ""
			switch {
			case s.IsRevision:
				marker = fmt.Sprintf(" (revises %d)", s.RevisesStep)
			case s.BranchID != "":
				marker = fmt.Sprintf(" (branch %s from %d)", s.BranchID, s.BranchFromStep)
			}
			fmt.Fprintf(&sb, "%d. %s%s\n", s.Number, firstLine(s.Text), marker)
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatPlanList lists planning sessions.
func FormatPlanList(list []planning.PlanSummary) string {
	if len(list) == 0 {
		return "No planning sessions."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Planning Sessions (%d)\n\n", len(list))
	for _, s := range list {
		fmt.Fprintf(&sb, "- `%s` **%s** [%s] %d steps, %d tasks\n", s.ID, s.ProjectName, s.Status, s.Steps, s.Tasks)
	}
	return strings.TrimSpace(sb.String())
}

// FormatStart converts an execution start result into Markdown.
func FormatStart(res *execution.StartResult) string {
	if res == nil {
		return "No execution session."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Executing: %s\n", res.ProjectName)
	fmt.Fprintf(&sb, "**Session**: `%s` | **Document**: `%s`\n\n", res.SessionID, res.DocumentPath)
	sb.WriteString(res.Message)
	sb.WriteString("\n\n")
	writeProgress(&sb, res.Progress)
	if len(res.Reconciled) > 0 {
		fmt.Fprintf(&sb, "- **Completed from checked subtasks**: %s\n", strings.Join(res.Reconciled, ", "))
	}
	if len(res.Available) > 0 {
		sb.WriteString("\n### Available Tasks\n")
		for i := range res.Available {
			writeTaskLine(&sb, &res.Available[i])
		}
	}
	writeWarnings(&sb, res.Warnings)
	sb.WriteString("\n> **Hint**: use action `continue` to get the next executable task.\n")
	return strings.TrimSpace(sb.String())
}

// FormatAdvance presents the offered task.
func FormatAdvance(res *execution.AdvanceResult) string {
	if res == nil {
		return "No task information."
	}
	var sb strings.Builder
	sb.WriteString(res.Message)
	sb.WriteString("\n\n")
	if t := res.Task; t != nil {
		fmt.Fprintf(&sb, "## %s %s\n", t.Number, t.Title)
		fmt.Fprintf(&sb, "**ID**: `%s` | **Priority**: %s | **Level**: %d\n\n", t.ID, t.Priority, t.Level)
		if t.Description != "" {
			sb.WriteString(t.Description)
			sb.WriteString("\n\n")
		}
		if len(t.Dependencies) > 0 {
			fmt.Fprintf(&sb, "**Depends on**: %s\n\n", strings.Join(t.Dependencies, ", "))
		}
		if res.Complex {
			sb.WriteString("> **Note**: this task looks complex. Consider breaking it down or reasoning step by step before implementing.\n\n")
		}
	}
	writeProgress(&sb, res.Progress)
	if res.NextTask != nil {
		fmt.Fprintf(&sb, "\n**Up next**: %s %s (`%s`)\n", res.NextTask.Number, res.NextTask.Title, res.NextTask.ID)
	}
	if res.Task != nil {
		fmt.Fprintf(&sb, "\n> **Hint**: after implementing, call `execute_task` with task_id `%s`.\n", res.Task.ID)
	}
	return strings.TrimSpace(sb.String())
}

// FormatComplete presents a recorded completion.
func FormatComplete(res *execution.CompleteResult) string {
	if res == nil {
		return "No completion recorded."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Completed: %s\n", res.Title)
	fmt.Fprintf(&sb, "**ID**: `%s` | **Document updated**: %t\n\n", res.TaskID, res.DocumentUpdated)
	if len(res.AutoCompleted) > 0 {
		fmt.Fprintf(&sb, "Also completed: %s\n\n", strings.Join(res.AutoCompleted, ", "))
	}
	writeProgress(&sb, res.Progress)
	sb.WriteString("\n")
	sb.WriteString(res.Message)
	sb.WriteString("\n")
	writeWarnings(&sb, res.Warnings)
	return strings.TrimSpace(sb.String())
}

// FormatStatus presents an execution status and its completion history.
func FormatStatus(res *execution.StatusResult, history []execution.Record) string {
	if res == nil {
		return "No status."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Status: %s\n", res.ProjectName)
	fmt.Fprintf(&sb, "**Session**: `%s` | **Document**: `%s`\n\n", res.SessionID, res.DocumentPath)
	writeProgress(&sb, res.Progress)
	fmt.Fprintf(&sb, "- **Executable**: %d\n- **Blocked**: %d\n- **Remaining**: %d\n- **History**: %d\n",
		res.Executable, res.Blocked, res.Remaining, res.HistoryLength)
	if res.CurrentTask != nil {
		fmt.Fprintf(&sb, "- **Current task**: %s %s (`%s`)\n", res.CurrentTask.Number, res.CurrentTask.Title, res.CurrentTask.ID)
	}
	if res.NextTask != nil {
		fmt.Fprintf(&sb, "- **Next task**: %s %s (`%s`)\n", res.NextTask.Number, res.NextTask.Title, res.NextTask.ID)
	}
	if res.DocumentChanged {
		sb.WriteString("\n> **Warning**: the plan document was edited outside this session. Start a new session to pick up the changes.\n")
	}
	if res.Done {
		if res.Remaining == 0 {
			sb.WriteString("\nAll tasks completed!\n")
		} else {
			sb.WriteString("\nNo tasks are executable.\n")
		}
	}
	if len(history) > 0 {
		sb.WriteString("\n### History\n")
		for _, r := range history {
			fmt.Fprintf(&sb, "%d. %s (`%s`)", r.Step, r.Title, r.TaskID)
			if len(r.AutoCompleted) > 0 {
				fmt.Fprintf(&sb, ", also completed %s", strings.Join(r.AutoCompleted, ", "))
			}
			if r.Rationale != "" {
				fmt.Fprintf(&sb, ": %s", r.Rationale)
			}
			sb.WriteString("\n")
		}
	}
	return strings.TrimSpace(sb.String())
}

// FormatExecutionList lists execution sessions.
func FormatExecutionList(list []execution.Summary) string {
	if len(list) == 0 {
		return "No execution sessions."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Execution Sessions (%d)\n\n", len(list))
	for _, s := range list {
		state := "in progress"
		if s.Done {
			state = "done"
		}
		fmt.Fprintf(&sb, "- `%s` **%s** %d/%d (%d%%) %s, `%s`\n",
			s.SessionID, s.ProjectName, s.Progress.Completed, s.Progress.Total, s.Progress.Percent, state, s.DocumentPath)
	}
	return strings.TrimSpace(sb.String())
}

func writeProgress(sb *strings.Builder, p execution.Progress) {
	fmt.Fprintf(sb, "**Progress**: %d/%d (%d%%)\n", p.Completed, p.Total, p.Percent)
}

func writeTaskLine(sb *strings.Builder, t *execution.TaskView) {
	fmt.Fprintf(sb, "- %s **%s** (`%s`, %s)", t.Number, t.Title, t.ID, t.Priority)
	if len(t.Dependencies) > 0 {
		fmt.Fprintf(sb, " depends on %s", strings.Join(t.Dependencies, ", "))
	}
	sb.WriteString("\n")
}

func writeWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	sb.WriteString("\n### Warnings\n")
	for _, w := range warnings {
		fmt.Fprintf(sb, "- %s\n", w)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

// === Error Formatters ===

// FormatError returns a standardized Markdown error message.
// Use this for all MCP tool error responses to ensure consistency.
func FormatError(message string) string {
	return fmt.Sprintf("## Error\n\n**Details**: %s", message)
}

// FormatValidationError returns a Markdown error for validation failures.
func FormatValidationError(field, message string) string {
	return fmt.Sprintf("## Validation Error\n\n**Field**: `%s`\n**Details**: %s", field, message)
}

// FormatEngineError renders an engine error with its kind and details.
func FormatEngineError(err error) string {
	var e *types.Error
	if !errors.As(err, &e) {
		return FormatError(err.Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Error (%s)\n\n**Details**: %s\n", e.Kind, e.Message)
	for _, d := range e.Details {
		fmt.Fprintf(&sb, "- %s\n", d)
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, "\n**Cause**: %s\n", e.Cause)
	}
	return strings.TrimSpace(sb.String())
}
