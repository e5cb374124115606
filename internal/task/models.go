// Package task holds the WBS task model and the pure graph operations over it:
// identifier ordering, batch validation, cycle detection and hierarchy numbering.
package task

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Priority is the importance of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ValidPriorities lists the accepted priority values in display order.
func ValidPriorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

var titleCaser = cases.Title(language.English)

// ParsePriority normalizes a caller-supplied priority ("high", "HIGH", "High").
func ParsePriority(s string) (Priority, error) {
	p := Priority(titleCaser.String(strings.TrimSpace(s)))
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("invalid priority %q (expected High, Medium or Low)", s)
}

// Task is a single WBS node.
type Task struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Level        int      `json:"level" yaml:"level"`
	Priority     Priority `json:"priority" yaml:"priority"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ParentID     string   `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Children     []string `json:"children,omitempty" yaml:"children,omitempty"`
	Order        int      `json:"order" yaml:"order"`
	Completed    bool     `json:"completed" yaml:"completed"`
}

// IsLeaf reports whether the task has no children.
func (t *Task) IsLeaf() bool {
	return len(t.Children) == 0
}

// Clone returns a deep copy so plans and sessions never share slices.
func (t Task) Clone() Task {
	c := t
	c.Dependencies = append([]string(nil), t.Dependencies...)
	c.Children = append([]string(nil), t.Children...)
	return c
}

// CloneAll deep-copies a task list.
func CloneAll(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// Index maps identifiers to positions in tasks. Later duplicates are ignored.
func Index(tasks []Task) map[string]int {
	idx := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if _, ok := idx[t.ID]; !ok {
			idx[t.ID] = i
		}
	}
	return idx
}
