package execution

import (
	"strings"

	"github.com/josephgoksu/wbsplan/internal/task"
)

// Heuristic flags tasks that may deserve extra care before execution. It is a
// hint only and never blocks a task.
type Heuristic struct {
	Keywords []string
	// LongDescription is the description length above which a High priority
	// task counts as complex. Zero disables the length check.
	LongDescription int
}

// IsComplex reports whether t mentions a keyword in its title or description,
// or is a High priority task with a long description.
func (h Heuristic) IsComplex(t *task.Task) bool {
	text := strings.ToLower(t.Title + " " + t.Description)
	for _, kw := range h.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return h.LongDescription > 0 && t.Priority == task.PriorityHigh && len(t.Description) > h.LongDescription
}
