package execution

import (
	"github.com/josephgoksu/wbsplan/internal/task"
)

// available returns incomplete leaves in identifier order, ignoring
// dependencies.
func (s *Session) available() []*task.Task {
	var out []*task.Task
	for _, id := range s.sortedIDs() {
		t := s.Tasks[id]
		if t.IsLeaf() && !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// executable returns incomplete leaves whose dependencies are all satisfied,
// in identifier order. A dependency on a task the session does not know is
// satisfied.
func (s *Session) executable() []*task.Task {
	var out []*task.Task
	for _, t := range s.available() {
		if s.dependenciesSatisfied(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) dependenciesSatisfied(t *task.Task) bool {
	for _, dep := range t.Dependencies {
		if d, ok := s.Tasks[dep]; ok && !d.Completed {
			return false
		}
	}
	return true
}

func (s *Session) pendingDependencies(t *task.Task) []string {
	var out []string
	for _, dep := range t.Dependencies {
		if d, ok := s.Tasks[dep]; ok && !d.Completed {
			out = append(out, dep)
		}
	}
	return out
}

func (s *Session) sortedIDs() []string {
	ids := make([]string, 0, len(s.Tasks))
	for id := range s.Tasks {
		ids = append(ids, id)
	}
	task.SortIDs(ids)
	return ids
}

// subtreeComplete reports whether every descendant of t is completed.
func (s *Session) subtreeComplete(t *task.Task) bool {
	stack := append([]string(nil), t.Children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, ok := s.Tasks[id]
		if !ok {
			continue
		}
		if !c.Completed {
			return false
		}
		stack = append(stack, c.Children...)
	}
	return true
}

// propagate walks up from a newly completed task and completes every ancestor
// whose whole subtree is now complete. It stops at the first ancestor that is
// still open or missing and returns the ancestors it completed, nearest first.
func (s *Session) propagate(from *task.Task) []string {
	var auto []string
	cur := from.ParentID
	for hops := 0; cur != "" && hops < len(s.Tasks); hops++ {
		p, ok := s.Tasks[cur]
		if !ok || !s.subtreeComplete(p) {
			break
		}
		if !p.Completed {
			p.Completed = true
			s.Completed = append(s.Completed, p.ID)
			auto = append(auto, p.ID)
		}
		cur = p.ParentID
	}
	return auto
}
