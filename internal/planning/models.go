// Package planning drives step-by-step construction of a plan: each step may
// add a batch of tasks, which is validated against the plan, merged, and
// progressively exported as a plan document.
package planning

import (
	"time"

	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/task"
)

// Status is the lifecycle state of a plan.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
)

// ActionType labels what a step asks the caller to do next.
type ActionType string

const (
	ActionWBSCreation ActionType = "wbs_creation"
	ActionRefinement  ActionType = "refinement"
	ActionExport      ActionType = "export"
	ActionAnalysis    ActionType = "analysis"
)

const defaultProjectName = "Unknown Project"

// Step is one accepted planning step.
type Step struct {
	Number            int        `json:"step_number" yaml:"step_number"`
	TotalSteps        int        `json:"total_steps" yaml:"total_steps"`
	Text              string     `json:"planning_step" yaml:"planning_step"`
	NextStepNeeded    bool       `json:"next_step_needed" yaml:"next_step_needed"`
	TasksAdded        []string   `json:"tasks_added,omitempty" yaml:"tasks_added,omitempty"`
	Refine            bool       `json:"refine_wbs,omitempty" yaml:"refine_wbs,omitempty"`
	IsRevision        bool       `json:"is_revision,omitempty" yaml:"is_revision,omitempty"`
	RevisesStep       int        `json:"revises_step,omitempty" yaml:"revises_step,omitempty"`
	BranchFromStep    int        `json:"branch_from_step,omitempty" yaml:"branch_from_step,omitempty"`
	BranchID          string     `json:"branch_id,omitempty" yaml:"branch_id,omitempty"`
	ActionRequired    bool       `json:"action_required,omitempty" yaml:"action_required,omitempty"`
	ActionType        ActionType `json:"action_type,omitempty" yaml:"action_type,omitempty"`
	ActionDescription string     `json:"action_description,omitempty" yaml:"action_description,omitempty"`
	Timestamp         time.Time  `json:"timestamp" yaml:"timestamp"`
}

// Plan is a planning session. The manager owns it; callers receive copies.
type Plan struct {
	ID               string            `json:"id"`
	ProblemStatement string            `json:"problem_statement"`
	ProjectName      string            `json:"project_name"`
	Status           Status            `json:"status"`
	Tasks            []task.Task       `json:"tasks"`
	Steps            []Step            `json:"steps"`
	Branches         map[string][]Step `json:"branches,omitempty"`
	BranchOrder      []string          `json:"branch_order,omitempty"`
	OutputPath       string            `json:"output_path,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (p *Plan) clone() *Plan {
	c := *p
	c.Tasks = task.CloneAll(p.Tasks)
	c.Steps = cloneSteps(p.Steps)
	c.BranchOrder = append([]string(nil), p.BranchOrder...)
	if p.Branches != nil {
		c.Branches = make(map[string][]Step, len(p.Branches))
		for k, v := range p.Branches {
			c.Branches[k] = cloneSteps(v)
		}
	}
	return &c
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s
		out[i].TasksAdded = append([]string(nil), s.TasksAdded...)
	}
	return out
}

func (p *Plan) hasStep(n int) bool {
	for _, s := range p.Steps {
		if s.Number == n {
			return true
		}
	}
	return false
}

// StepInput is one planning call.
type StepInput struct {
	SessionID         string       `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Text              string       `json:"planning_step" yaml:"planning_step" validate:"required,nonempty"`
	StepNumber        int          `json:"step_number" yaml:"step_number" validate:"min=1"`
	TotalSteps        int          `json:"total_steps" yaml:"total_steps" validate:"min=1"`
	NextStepNeeded    bool         `json:"next_step_needed" yaml:"next_step_needed"`
	ProblemStatement  string       `json:"problem_statement,omitempty" yaml:"problem_statement,omitempty"`
	ProjectName       string       `json:"project_name,omitempty" yaml:"project_name,omitempty" validate:"omitempty,singleline,max=200"`
	Tasks             []task.Input `json:"wbs_items,omitempty" yaml:"wbs_items,omitempty"`
	Refine            bool         `json:"refine_wbs,omitempty" yaml:"refine_wbs,omitempty"`
	IsRevision        bool         `json:"is_revision,omitempty" yaml:"is_revision,omitempty"`
	RevisesStep       int          `json:"revises_step,omitempty" yaml:"revises_step,omitempty" validate:"min=0"`
	BranchFromStep    int          `json:"branch_from_step,omitempty" yaml:"branch_from_step,omitempty" validate:"min=0"`
	BranchID          string       `json:"branch_id,omitempty" yaml:"branch_id,omitempty" validate:"omitempty,wbsid,max=64"`
	GenerateMarkdown  bool         `json:"generate_markdown,omitempty" yaml:"generate_markdown,omitempty"`
	ExportToFile      *bool        `json:"export_to_file,omitempty" yaml:"export_to_file,omitempty"`
	OutputPath        string       `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	ActionRequired    bool         `json:"action_required,omitempty" yaml:"action_required,omitempty"`
	ActionType        ActionType   `json:"action_type,omitempty" yaml:"action_type,omitempty" validate:"omitempty,oneof=wbs_creation refinement export analysis"`
	ActionDescription string       `json:"action_description,omitempty" yaml:"action_description,omitempty"`
}

// Summary is the per-plan statistics block returned with every step.
type Summary struct {
	TotalTasks int            `json:"total_tasks"`
	Completed  int            `json:"completed_tasks"`
	Progress   int            `json:"progress"`
	ByPriority map[string]int `json:"by_priority"`
	ByLevel    map[int]int    `json:"by_level"`
	RootTasks  int            `json:"root_tasks"`
	LeafTasks  int            `json:"leaf_tasks"`
}

// ExportResult describes a document export. Error is set when the write
// failed; the step itself still succeeded.
type ExportResult struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes,omitempty"`
	Lines int    `json:"lines,omitempty"`
	Error string `json:"error,omitempty"`
}

// StepResult is returned for every accepted step.
type StepResult struct {
	SessionID         string        `json:"session_id"`
	ProjectName       string        `json:"project_name"`
	Status            Status        `json:"status"`
	StepNumber        int           `json:"step_number"`
	TotalSteps        int           `json:"total_steps"`
	NextStepNeeded    bool          `json:"next_step_needed"`
	StepsRecorded     int           `json:"steps_recorded"`
	TasksAdded        []string      `json:"tasks_added,omitempty"`
	Branches          []string      `json:"branches,omitempty"`
	Summary           Summary       `json:"summary"`
	Export            *ExportResult `json:"export,omitempty"`
	Warnings          []string      `json:"warnings,omitempty"`
	ActionRequired    bool          `json:"action_required,omitempty"`
	ActionType        ActionType    `json:"action_type,omitempty"`
	ActionDescription string        `json:"action_description,omitempty"`
}

// PlanSummary is the list view of a plan.
type PlanSummary struct {
	ID          string    `json:"session_id"`
	ProjectName string    `json:"project_name"`
	Status      Status    `json:"status"`
	Steps       int       `json:"steps"`
	Tasks       int       `json:"tasks"`
	OutputPath  string    `json:"output_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summarize computes plan statistics.
func Summarize(tasks []task.Task) Summary {
	s := Summary{
		TotalTasks: len(tasks),
		ByPriority: make(map[string]int, 3),
		ByLevel:    make(map[int]int),
	}
	for _, p := range task.ValidPriorities() {
		s.ByPriority[string(p)] = 0
	}
	for _, t := range tasks {
		s.ByPriority[string(t.Priority)]++
		s.ByLevel[t.Level]++
		if t.Completed {
			s.Completed++
		}
		if t.Level == 0 {
			s.RootTasks++
		}
		if t.IsLeaf() {
			s.LeafTasks++
		}
	}
	s.Progress = document.Percent(s.Completed, s.TotalTasks)
	return s
}

func (p *Plan) summary() PlanSummary {
	return PlanSummary{
		ID:          p.ID,
		ProjectName: p.ProjectName,
		Status:      p.Status,
		Steps:       len(p.Steps),
		Tasks:       len(p.Tasks),
		OutputPath:  p.OutputPath,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
