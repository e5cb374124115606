// Package mcp provides the tool handlers and Markdown presenters for the MCP
// server.
package mcp

import (
	"github.com/josephgoksu/wbsplan/internal/planning"
)

// === Action Constants ===

// ExecutionAction defines the valid actions for the wbs_execution tool.
type ExecutionAction string

const (
	ExecutionActionStart        ExecutionAction = "start"
	ExecutionActionContinue     ExecutionAction = "continue"
	ExecutionActionExecuteTask  ExecutionAction = "execute_task"
	ExecutionActionGetStatus    ExecutionAction = "get_status"
	ExecutionActionListSessions ExecutionAction = "list_sessions"
)

// ValidExecutionActions returns all valid execution actions.
func ValidExecutionActions() []ExecutionAction {
	return []ExecutionAction{
		ExecutionActionStart, ExecutionActionContinue, ExecutionActionExecuteTask,
		ExecutionActionGetStatus, ExecutionActionListSessions,
	}
}

// IsValid checks if the action is a valid execution action.
func (a ExecutionAction) IsValid() bool {
	switch a {
	case ExecutionActionStart, ExecutionActionContinue, ExecutionActionExecuteTask,
		ExecutionActionGetStatus, ExecutionActionListSessions:
		return true
	}
	return false
}

// SessionsAction defines the valid actions for the planning_sessions tool.
type SessionsAction string

const (
	SessionsActionList   SessionsAction = "list"
	SessionsActionGet    SessionsAction = "get"
	SessionsActionPause  SessionsAction = "pause"
	SessionsActionResume SessionsAction = "resume"
	SessionsActionExport SessionsAction = "export"
)

// ValidSessionsActions returns all valid planning session actions.
func ValidSessionsActions() []SessionsAction {
	return []SessionsAction{SessionsActionList, SessionsActionGet, SessionsActionPause, SessionsActionResume, SessionsActionExport}
}

// IsValid checks if the action is a valid planning session action.
func (a SessionsAction) IsValid() bool {
	switch a {
	case SessionsActionList, SessionsActionGet, SessionsActionPause, SessionsActionResume, SessionsActionExport:
		return true
	}
	return false
}

// === Tool Parameters ===

// PlanningParams are the arguments of the planning tool: one planning step.
type PlanningParams = planning.StepInput

// ExecutionParams defines the parameters for the wbs_execution tool.
type ExecutionParams struct {
	// Action specifies which operation to perform.
	// Required. One of: start, continue, execute_task, get_status, list_sessions
	Action ExecutionAction `json:"action"`

	// DocumentPath is the plan document to execute.
	// Required for: start
	DocumentPath string `json:"wbs_file_path,omitempty"`

	// SessionID identifies the execution session (a unique prefix is enough).
	// Required for: continue, execute_task, get_status
	SessionID string `json:"session_id,omitempty"`

	// TaskID is the task being reported as executed.
	// Required for: execute_task
	TaskID string `json:"task_id,omitempty"`

	// Thinking is the caller's rationale, kept in the session history.
	Thinking string `json:"thinking,omitempty"`

	// ActionDescription is a free-form note about what was done.
	ActionDescription string `json:"action_description,omitempty"`

	// ContinueAfterCompletion offers the next task in the same call after a
	// successful execute_task.
	ContinueAfterCompletion bool `json:"continue_after_completion,omitempty"`
}

// SessionsParams defines the parameters for the planning_sessions tool.
type SessionsParams struct {
	// Action specifies which operation to perform.
	// Required. One of: list, get, pause, resume, export
	Action SessionsAction `json:"action"`

	// SessionID identifies the planning session (a unique prefix is enough).
	// Required for: get, pause, resume, export
	SessionID string `json:"session_id,omitempty"`

	// OutputPath overrides where export writes when the plan has no path yet.
	OutputPath string `json:"output_path,omitempty"`

	// IncludeDocument appends the rendered plan document to get.
	IncludeDocument bool `json:"include_document,omitempty"`
}

// ToolResult is the response of every tool handler. Failures are reported in
// Error (with Kind when known) rather than as Go errors, so the client sees
// them and can correct its call.
type ToolResult struct {
	Action  string `json:"action"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}
