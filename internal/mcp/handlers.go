package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/wbsplan/internal/execution"
	"github.com/josephgoksu/wbsplan/internal/planning"
	"github.com/josephgoksu/wbsplan/types"
)

// errorResult converts an engine error into a tool result.
func errorResult(action string, err error) *ToolResult {
	res := &ToolResult{Action: action, Error: err.Error(), Content: FormatEngineError(err)}
	var e *types.Error
	if errors.As(err, &e) {
		res.Kind = string(e.Kind)
	}
	return res
}

func missingField(action, field, hint string) *ToolResult {
	return &ToolResult{
		Action:  action,
		Error:   fmt.Sprintf("%s is required for %s action", field, action),
		Kind:    string(types.KindValidation),
		Content: FormatValidationError(field, hint),
	}
}

// === Planning Tool Handler ===

// HandlePlanningTool applies one planning step.
func HandlePlanningTool(ctx context.Context, pm *planning.Manager, params PlanningParams) (*ToolResult, error) {
	res, err := pm.Step(ctx, params)
	if err != nil {
		return errorResult("planning", err), nil
	}
	return &ToolResult{Action: "planning", Content: FormatStepResult(res), Data: res}, nil
}

// === Planning Sessions Tool Handler ===

// HandleSessionsTool is the unified handler for planning session management.
// Supports actions: list, get, pause, resume, export
func HandleSessionsTool(ctx context.Context, pm *planning.Manager, params SessionsParams) (*ToolResult, error) {
	if !params.Action.IsValid() {
		return &ToolResult{
			Action: string(params.Action),
			Error:  fmt.Sprintf("invalid action %q, must be one of: list, get, pause, resume, export", params.Action),
			Kind:   string(types.KindValidation),
		}, nil
	}

	action := string(params.Action)
	if params.Action == SessionsActionList {
		list, err := pm.List(ctx)
		if err != nil {
			return errorResult(action, err), nil
		}
		return &ToolResult{Action: action, Content: FormatPlanList(list), Data: list}, nil
	}

	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		return missingField(action, "session_id", "Provide the planning session id returned by the planning tool."), nil
	}

	switch params.Action {
	case SessionsActionGet:
		p, err := pm.Get(ctx, sessionID)
		if err != nil {
			return errorResult(action, err), nil
		}
		content := FormatPlan(p)
		if params.IncludeDocument {
			doc, err := pm.Document(ctx, p.ID)
			if err != nil {
				return errorResult(action, err), nil
			}
			content += "\n\n---\n\n" + doc
		}
		return &ToolResult{Action: action, Content: content, Data: p}, nil
	case SessionsActionPause, SessionsActionResume:
		var (
			s   *planning.PlanSummary
			err error
		)
		if params.Action == SessionsActionPause {
			s, err = pm.Pause(ctx, sessionID)
		} else {
			s, err = pm.Resume(ctx, sessionID)
		}
		if err != nil {
			return errorResult(action, err), nil
		}
		return &ToolResult{
			Action:  action,
			Content: fmt.Sprintf("Planning session `%s` is now **%s**.", s.ID, s.Status),
			Data:    s,
		}, nil
	case SessionsActionExport:
		out, err := pm.Export(ctx, sessionID, params.OutputPath)
		if err != nil {
			return errorResult(action, err), nil
		}
		return &ToolResult{Action: action, Content: FormatExport(out), Data: out}, nil
	default:
		return &ToolResult{Action: action, Error: fmt.Sprintf("unsupported action: %s", action)}, nil
	}
}

// === Execution Tool Handler ===

// HandleExecutionTool is the unified handler for plan execution.
// Supports actions: start, continue, execute_task, get_status, list_sessions
func HandleExecutionTool(ctx context.Context, em *execution.Manager, params ExecutionParams) (*ToolResult, error) {
	if !params.Action.IsValid() {
		return &ToolResult{
			Action: string(params.Action),
			Error:  fmt.Sprintf("invalid action %q, must be one of: start, continue, execute_task, get_status, list_sessions", params.Action),
			Kind:   string(types.KindValidation),
		}, nil
	}

	switch params.Action {
	case ExecutionActionStart:
		return handleExecutionStart(ctx, em, params)
	case ExecutionActionContinue:
		return handleExecutionContinue(ctx, em, params)
	case ExecutionActionExecuteTask:
		return handleExecutionTask(ctx, em, params)
	case ExecutionActionGetStatus:
		return handleExecutionStatus(ctx, em, params)
	case ExecutionActionListSessions:
		list, err := em.List(ctx)
		if err != nil {
			return errorResult(string(params.Action), err), nil
		}
		return &ToolResult{Action: string(params.Action), Content: FormatExecutionList(list), Data: list}, nil
	default:
		return &ToolResult{Action: string(params.Action), Error: fmt.Sprintf("unsupported action: %s", params.Action)}, nil
	}
}

func handleExecutionStart(ctx context.Context, em *execution.Manager, params ExecutionParams) (*ToolResult, error) {
	path := strings.TrimSpace(params.DocumentPath)
	if path == "" {
		return missingField("start", "wbs_file_path", "Provide the path of a plan document produced by the planning tool."), nil
	}
	res, err := em.Begin(ctx, path)
	if err != nil {
		return errorResult("start", err), nil
	}
	return &ToolResult{Action: "start", Content: FormatStart(res), Data: res}, nil
}

func handleExecutionContinue(ctx context.Context, em *execution.Manager, params ExecutionParams) (*ToolResult, error) {
	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		return missingField("continue", "session_id", "Provide the execution session id returned by start."), nil
	}
	res, err := em.Advance(ctx, sessionID)
	if err != nil {
		return errorResult("continue", err), nil
	}
	return &ToolResult{Action: "continue", Content: FormatAdvance(res), Data: res}, nil
}

func handleExecutionTask(ctx context.Context, em *execution.Manager, params ExecutionParams) (*ToolResult, error) {
	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		return missingField("execute_task", "session_id", "Provide the execution session id returned by start."), nil
	}
	taskID := strings.TrimSpace(params.TaskID)
	if taskID == "" {
		return missingField("execute_task", "task_id", "Provide the id of the task that was executed."), nil
	}

	res, err := em.Complete(ctx, sessionID, taskID, params.Thinking, params.ActionDescription)
	if err != nil {
		return errorResult("execute_task", err), nil
	}
	content := FormatComplete(res)
	data := map[string]any{"completion": res}

	if params.ContinueAfterCompletion && !res.Done {
		next, err := em.Advance(ctx, sessionID)
		if err != nil {
			return errorResult("execute_task", err), nil
		}
		content += "\n\n---\n\n" + FormatAdvance(next)
		data["next"] = next
	}
	return &ToolResult{Action: "execute_task", Content: content, Data: data}, nil
}

func handleExecutionStatus(ctx context.Context, em *execution.Manager, params ExecutionParams) (*ToolResult, error) {
	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		return missingField("get_status", "session_id", "Provide the execution session id returned by start."), nil
	}
	res, err := em.Status(ctx, sessionID)
	if err != nil {
		return errorResult("get_status", err), nil
	}
	history, err := em.History(ctx, res.SessionID)
	if err != nil {
		return errorResult("get_status", err), nil
	}
	data := map[string]any{"status": res, "history": history}
	return &ToolResult{Action: "get_status", Content: FormatStatus(res, history), Data: data}, nil
}
