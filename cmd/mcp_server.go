/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/josephgoksu/wbsplan/internal/app"
	mcppresenter "github.com/josephgoksu/wbsplan/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server so AI assistants can plan and
execute work breakdown structures.

The server provides three tools:
- planning: record planning steps and build the WBS incrementally
- wbs_execution: walk a plan document task by task in dependency order
- planning_sessions: list, inspect, pause, resume and export planning sessions

Example usage:
  wbsplan mcp

The server will run until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpMarkdownResponse wraps Markdown content in an MCP tool result.
func mcpMarkdownResponse(markdown string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: markdown}},
	}, nil
}

// mcpErrorResponse wraps an error in an MCP tool result with IsError=true.
// Tool errors are returned in the result rather than as protocol errors so the
// model can see them and correct its call.
func mcpErrorResponse(err error) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: mcppresenter.FormatError(err.Error())}},
		IsError: true,
	}, nil
}

// mcpFormattedErrorResponse wraps pre-formatted error text with IsError=true.
func mcpFormattedErrorResponse(formattedError string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: formattedError}},
		IsError: true,
	}, nil
}

// mcpToolResponse converts a handler result. Successful results carry the
// Markdown text plus the structured data.
func mcpToolResponse(result *mcppresenter.ToolResult, err error) (*mcpsdk.CallToolResultFor[any], error) {
	if err != nil {
		return mcpErrorResponse(err)
	}
	if result.Error != "" {
		if result.Content != "" {
			return mcpFormattedErrorResponse(result.Content)
		}
		return mcpFormattedErrorResponse(mcppresenter.FormatError(result.Error))
	}
	resp, _ := mcpMarkdownResponse(result.Content)
	resp.StructuredContent = result.Data
	return resp, nil
}

// newMCPServer registers the enabled tools on a new server.
func newMCPServer(c *app.Context) *mcpsdk.Server {
	impl := &mcpsdk.Implementation{
		Name:    c.Config.Server.Name,
		Version: version,
	}
	serverOpts := &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			fmt.Fprintf(os.Stderr, "✓ MCP connection established\n")
			c.Logger.Debug("client initialized")
		},
	}
	server := mcpsdk.NewServer(impl, serverOpts)

	if c.Config.Planning.Enabled {
		planningTool := &mcpsdk.Tool{
			Name: "planning",
			Description: `Record one planning step and grow a work breakdown structure incrementally.
Each call adds reasoning text and optionally a batch of wbs_items (id, title, level, priority, parent_id, dependencies).
Batches are validated as a whole: a batch with orphans, bad levels or dependency cycles is rejected and nothing is applied.

REQUIRED FIELDS:
- planning_step, step_number, total_steps, next_step_needed
- problem_statement when starting a new plan (omit session_id)

OPTIONAL:
- session_id (or a unique prefix) to continue a plan; the latest active plan is used when omitted
- is_revision + revises_step, branch_from_step + branch_id
- generate_markdown, export_to_file, output_path
- action_required, action_type (wbs_creation, refinement, export, analysis), action_description

The plan document is written when next_step_needed is false, when generate_markdown is true,
or when tasks were added and export_to_file is on.`,
		}
		mcpsdk.AddTool(server, planningTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.PlanningParams]) (*mcpsdk.CallToolResultFor[any], error) {
			return mcpToolResponse(mcppresenter.HandlePlanningTool(ctx, c.Planning, params.Arguments))
		})

		sessionsTool := &mcpsdk.Tool{
			Name: "planning_sessions",
			Description: `Manage planning sessions. Use action parameter to select operation:
- list: List planning sessions, most recent first
- get: Show a session's steps (include_document=true appends the rendered plan document)
- pause: Pause an active session
- resume: Resume a paused session
- export: Write the plan document (output_path optional)

REQUIRED FIELDS BY ACTION:
- list: none
- get, pause, resume, export: session_id (a unique prefix is accepted)`,
		}
		mcpsdk.AddTool(server, sessionsTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.SessionsParams]) (*mcpsdk.CallToolResultFor[any], error) {
			return mcpToolResponse(mcppresenter.HandleSessionsTool(ctx, c.Planning, params.Arguments))
		})
	}

	if c.Config.Execution.Enabled {
		executionTool := &mcpsdk.Tool{
			Name: "wbs_execution",
			Description: `Execute a plan document task by task. Use action parameter to select operation:
- start: Parse a plan document and open an execution session
- continue: Get the next executable task (leaf task whose dependencies are complete)
- execute_task: Record a task as done; parents complete automatically when all their subtasks are done
- get_status: Show progress, current and next task
- list_sessions: List execution sessions

REQUIRED FIELDS BY ACTION:
- start: wbs_file_path
- continue, get_status: session_id
- execute_task: session_id, task_id (thinking and action_description are recorded;
  continue_after_completion=true also returns the next task)
- list_sessions: none`,
		}
		mcpsdk.AddTool(server, executionTool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.ExecutionParams]) (*mcpsdk.CallToolResultFor[any], error) {
			return mcpToolResponse(mcppresenter.HandleExecutionTool(ctx, c.Execution, params.Arguments))
		})
	}

	return server
}

func runMCPServer(ctx context.Context) error {
	// NOTE: MCP uses stdio transport. stdout MUST be pure JSON-RPC.
	// All status/debug output goes to stderr only.
	fmt.Fprintln(os.Stderr, "wbsplan MCP server starting...")

	if !appConfig.Planning.Enabled && !appConfig.Execution.Enabled {
		return fmt.Errorf("both planning and execution are disabled; enable at least one")
	}

	c, err := app.NewContext(appConfig, app.Options{Logger: appLogger})
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			appLogger.Warn("shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := newMCPServer(c)
	appLogger.Info("mcp server ready",
		"planning", appConfig.Planning.Enabled,
		"execution", appConfig.Execution.Enabled,
		"journal", appConfig.Journal.Path != "",
		"watch_documents", c.Watcher != nil)

	// Run the server (stdio transport only)
	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
