package task

import (
	"fmt"
	"strings"
)

// Limits caps plan size and depth. Zero values disable the cap.
type Limits struct {
	MaxDepth    int `mapstructure:"max_depth" json:"max_depth" validate:"min=0"`
	MaxTasks    int `mapstructure:"max_tasks" json:"max_tasks" validate:"min=0"`
	MaxBranches int `mapstructure:"max_branches" json:"max_branches" validate:"min=0"`
}

// DefaultLimits returns the caps used when configuration omits them.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 10, MaxTasks: 1000, MaxBranches: 20}
}

// Report collects hard errors and soft warnings for a batch.
type Report struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether the batch can be accepted.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateBatch checks a batch of caller records against the tasks already
// accepted into a plan and returns the converted tasks. Checks run in a fixed
// order: required fields, priority, depth, parent presence, parent level,
// duplicates, dangling dependencies. Duplicates and dangling dependencies are
// warnings; everything else is an error. Cycle detection is separate because it
// runs on the merged set.
func ValidateBatch(accepted []Task, batch []Input, limits Limits) ([]Task, Report) {
	var rep Report
	converted := make([]Task, 0, len(batch))

	for i := range batch {
		in := &batch[i]
		if msgs := in.FieldErrors(); len(msgs) > 0 {
			rep.errorf("task[%d] (id=%q): %s", i, in.ID, strings.Join(msgs, "; "))
			continue
		}
		converted = append(converted, in.ToTask())
	}
	if !rep.OK() {
		return nil, rep
	}

	known := make(map[string]Task, len(accepted)+len(converted))
	for _, t := range accepted {
		known[t.ID] = t
	}
	for _, t := range converted {
		if _, ok := known[t.ID]; !ok {
			known[t.ID] = t
		}
	}

	for _, t := range converted {
		if limits.MaxDepth > 0 && t.Level > limits.MaxDepth {
			rep.errorf("task %s: level %d exceeds maximum depth %d", t.ID, t.Level, limits.MaxDepth)
			continue
		}
		if t.Level == 0 {
			if t.ParentID != "" {
				rep.errorf("task %s: root task (level 0) cannot have parent %s", t.ID, t.ParentID)
			}
			continue
		}
		if t.ParentID == "" {
			rep.errorf("task %s: level %d task requires parent_id", t.ID, t.Level)
			continue
		}
		parent, ok := known[t.ParentID]
		if !ok {
			rep.errorf("task %s: parent %s does not exist", t.ID, t.ParentID)
			continue
		}
		if parent.Level != t.Level-1 {
			rep.errorf("task %s: level %d does not match parent %s level %d", t.ID, t.Level, parent.ID, parent.Level)
		}
		if t.ParentID == t.ID {
			rep.errorf("task %s: task cannot be its own parent", t.ID)
		}
	}

	seen := make(map[string]bool, len(accepted)+len(converted))
	for _, t := range accepted {
		seen[t.ID] = true
	}
	for _, t := range converted {
		if seen[t.ID] {
			rep.warnf("duplicate task id %s: keeping the first occurrence", t.ID)
		}
		seen[t.ID] = true
		for _, dep := range t.Dependencies {
			if _, ok := known[dep]; !ok {
				rep.warnf("task %s: dependency %s does not exist", t.ID, dep)
			}
		}
	}

	if !rep.OK() {
		return nil, rep
	}
	return converted, rep
}

// Merge appends batch tasks whose identifier is not yet present. The result is
// a new slice; accepted is not modified.
func Merge(accepted, batch []Task) (merged []Task, added []string) {
	merged = CloneAll(accepted)
	seen := make(map[string]bool, len(accepted)+len(batch))
	for _, t := range accepted {
		seen[t.ID] = true
	}
	for _, t := range batch {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		merged = append(merged, t.Clone())
		added = append(added, t.ID)
	}
	return merged, added
}
