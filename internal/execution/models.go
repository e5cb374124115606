// Package execution walks a plan document task by task: it offers the next
// executable leaf, records completions, propagates completion to parents and
// checks the boxes in the document.
package execution

import (
	"time"

	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/task"
)

// Record is one history entry of an execution session.
type Record struct {
	Step          int       `json:"step" yaml:"step"`
	TaskID        string    `json:"task_id" yaml:"task_id"`
	Title         string    `json:"title" yaml:"title"`
	Rationale     string    `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	ActionNote    string    `json:"action_note,omitempty" yaml:"action_note,omitempty"`
	AutoCompleted []string  `json:"auto_completed,omitempty" yaml:"auto_completed,omitempty"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
}

// Session is the state of one document execution.
type Session struct {
	ID               string
	DocumentPath     string
	ProjectName      string
	ProblemStatement string
	Tasks            map[string]*task.Task
	// Order is document order.
	Order           []string
	Numbers         map[string]string
	Completed       []string
	History         []Record
	CurrentTaskID   string
	DocumentChanged bool
	Warnings        []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TaskView is a task as presented to callers.
type TaskView struct {
	ID           string        `json:"id" yaml:"id"`
	Number       string        `json:"wbs_number" yaml:"wbs_number"`
	Title        string        `json:"title" yaml:"title"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Level        int           `json:"level" yaml:"level"`
	Priority     task.Priority `json:"priority" yaml:"priority"`
	Dependencies []string      `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ParentID     string        `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Completed    bool          `json:"completed" yaml:"completed"`
}

// Progress counts completed tasks.
type Progress struct {
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
	Percent   int `json:"percent" yaml:"percent"`
}

// StartResult is returned when a session begins.
type StartResult struct {
	SessionID        string     `json:"session_id"`
	ProjectName      string     `json:"project_name"`
	ProblemStatement string     `json:"problem_statement,omitempty"`
	DocumentPath     string     `json:"document_path"`
	Progress         Progress   `json:"progress"`
	Available        []TaskView `json:"available_tasks"`
	Executable       int        `json:"executable_tasks"`
	// Reconciled lists parents completed at start because every subtask was
	// already checked.
	Reconciled []string `json:"reconciled,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Message    string   `json:"message"`
}

// AdvanceResult offers the next executable task. Done is set when nothing is
// executable.
type AdvanceResult struct {
	SessionID  string    `json:"session_id"`
	Task       *TaskView `json:"task,omitempty"`
	NextTask   *TaskView `json:"next_task,omitempty"`
	Complex    bool      `json:"complex,omitempty"`
	Done       bool      `json:"done"`
	Executable int       `json:"executable_tasks"`
	Blocked    int       `json:"blocked_tasks,omitempty"`
	Progress   Progress  `json:"progress"`
	Message    string    `json:"message"`
}

// CompleteResult describes a recorded completion.
type CompleteResult struct {
	SessionID       string    `json:"session_id"`
	TaskID          string    `json:"task_id"`
	Title           string    `json:"title"`
	AutoCompleted   []string  `json:"auto_completed,omitempty"`
	NextTask        *TaskView `json:"next_task,omitempty"`
	Done            bool      `json:"done"`
	DocumentUpdated bool      `json:"document_updated"`
	Progress        Progress  `json:"progress"`
	Warnings        []string  `json:"warnings,omitempty"`
	Message         string    `json:"message"`
}

// StatusResult is a point-in-time view of a session.
type StatusResult struct {
	SessionID       string    `json:"session_id" yaml:"session_id"`
	ProjectName     string    `json:"project_name" yaml:"project_name"`
	DocumentPath    string    `json:"document_path" yaml:"document_path"`
	CurrentTask     *TaskView `json:"current_task,omitempty" yaml:"current_task,omitempty"`
	NextTask        *TaskView `json:"next_task,omitempty" yaml:"next_task,omitempty"`
	Progress        Progress  `json:"progress" yaml:"progress"`
	Executable      int       `json:"executable_tasks" yaml:"executable_tasks"`
	Blocked         int       `json:"blocked_tasks" yaml:"blocked_tasks"`
	Remaining       int       `json:"remaining_tasks" yaml:"remaining_tasks"`
	HistoryLength   int       `json:"history_length" yaml:"history_length"`
	DocumentChanged bool      `json:"document_changed" yaml:"document_changed"`
	Done            bool      `json:"done" yaml:"done"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"updated_at"`
}

// Summary is the list view of a session.
type Summary struct {
	SessionID    string    `json:"session_id"`
	ProjectName  string    `json:"project_name"`
	DocumentPath string    `json:"document_path"`
	Progress     Progress  `json:"progress"`
	Done         bool      `json:"done"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Session) view(t *task.Task) *TaskView {
	if t == nil {
		return nil
	}
	return &TaskView{
		ID:           t.ID,
		Number:       s.Numbers[t.ID],
		Title:        t.Title,
		Description:  t.Description,
		Level:        t.Level,
		Priority:     t.Priority,
		Dependencies: append([]string(nil), t.Dependencies...),
		ParentID:     t.ParentID,
		Completed:    t.Completed,
	}
}

func (s *Session) progress() Progress {
	done := 0
	for _, t := range s.Tasks {
		if t.Completed {
			done++
		}
	}
	return Progress{Completed: done, Total: len(s.Tasks), Percent: document.Percent(done, len(s.Tasks))}
}

func (s *Session) summary() Summary {
	p := s.progress()
	return Summary{
		SessionID:    s.ID,
		ProjectName:  s.ProjectName,
		DocumentPath: s.DocumentPath,
		Progress:     p,
		Done:         p.Completed == p.Total,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
