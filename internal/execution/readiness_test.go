package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josephgoksu/wbsplan/internal/task"
)

func sessionOf(tasks ...task.Task) *Session {
	task.LinkChildren(tasks)
	s := &Session{Tasks: make(map[string]*task.Task)}
	for i := range tasks {
		t := tasks[i]
		s.Tasks[t.ID] = &t
		s.Order = append(s.Order, t.ID)
	}
	return s
}

func ids(ts []*task.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestExecutable_EveryDependencyMustBeComplete(t *testing.T) {
	s := sessionOf(
		tk("1", "A", 0, ""),
		tk("2", "B", 0, ""),
		tk("3", "C", 0, "", "1", "2"),
	)
	s.Tasks["1"].Completed = true
	s.Tasks["2"].Completed = true
	assert.Equal(t, []string{"3"}, ids(s.executable()))

	// Reopening either dependency blocks it again.
	for _, dep := range []string{"1", "2"} {
		s.Tasks[dep].Completed = false
		assert.NotContains(t, ids(s.executable()), "3")
		s.Tasks[dep].Completed = true
	}
}

func TestAvailable_NeverIncludesParents(t *testing.T) {
	s := sessionOf(
		tk("1", "Parent", 0, ""),
		tk("1.1", "Child", 1, "1"),
	)
	assert.Equal(t, []string{"1.1"}, ids(s.available()))
	s.Tasks["1.1"].Completed = true
	assert.Empty(t, s.available())
	assert.Empty(t, s.executable())
}

func TestPropagate_SkipsAlreadyCompletedAncestors(t *testing.T) {
	s := sessionOf(
		tk("1", "Root", 0, ""),
		tk("1.1", "Mid", 1, "1"),
		tk("1.1.1", "Leaf", 2, "1.1"),
	)
	// 1.1 was already checked by hand.
	s.Tasks["1.1"].Completed = true
	s.Tasks["1.1.1"].Completed = true

	assert.Equal(t, []string{"1"}, s.propagate(s.Tasks["1.1.1"]))
	assert.True(t, s.Tasks["1"].Completed)
}

func TestHeuristic_IsComplex(t *testing.T) {
	h := Heuristic{Keywords: []string{"Security", " "}, LongDescription: 20}
	tests := []struct {
		name string
		task task.Task
		want bool
	}{
		{"keyword in title", task.Task{Title: "security review", Priority: task.PriorityLow}, true},
		{"keyword in description", task.Task{Title: "x", Description: "Add SECURITY headers"}, true},
		{"long high priority", task.Task{Title: "x", Priority: task.PriorityHigh, Description: strings30()}, true},
		{"long medium priority", task.Task{Title: "x", Priority: task.PriorityMedium, Description: strings30()}, false},
		{"plain", task.Task{Title: "Write docs", Priority: task.PriorityHigh}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.IsComplex(&tt.task))
		})
	}
}

func strings30() string {
	return "abcdefghijklmnopqrstuvwxyz0123"
}
