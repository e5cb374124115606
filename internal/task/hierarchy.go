package task

import (
	"sort"
	"strconv"
	"strings"
)

// LinkChildren recomputes every task's Children from the ParentID fields.
// Children are ordered by Order, with list position breaking ties. Calling it
// repeatedly yields the same result.
func LinkChildren(tasks []Task) {
	byParent := make(map[string][]int)
	for i := range tasks {
		if p := tasks[i].ParentID; p != "" {
			byParent[p] = append(byParent[p], i)
		}
	}
	for i := range tasks {
		idxs := byParent[tasks[i].ID]
		sortByOrder(tasks, idxs)
		children := make([]string, 0, len(idxs))
		for _, ci := range idxs {
			children = append(children, tasks[ci].ID)
		}
		if len(children) == 0 {
			children = nil
		}
		tasks[i].Children = children
	}
}

// Roots returns the indexes of level-0 tasks in sibling order.
func Roots(tasks []Task) []int {
	var idxs []int
	for i := range tasks {
		if tasks[i].Level == 0 {
			idxs = append(idxs, i)
		}
	}
	sortByOrder(tasks, idxs)
	return idxs
}

func sortByOrder(tasks []Task, idxs []int) {
	sort.SliceStable(idxs, func(a, b int) bool {
		return tasks[idxs[a]].Order < tasks[idxs[b]].Order
	})
}

// Numberer computes display numbers ("1.2.3") from 1-based sibling positions.
// Results are memoized, so one Numberer should live for a single
// serialization pass over an unchanging task list.
type Numberer struct {
	tasks    []Task
	index    map[string]int
	position map[string]int
	memo     map[string]string
}

// NewNumberer prepares sibling positions for tasks. Children must be linked.
func NewNumberer(tasks []Task) *Numberer {
	n := &Numberer{
		tasks:    tasks,
		index:    Index(tasks),
		position: make(map[string]int, len(tasks)),
		memo:     make(map[string]string, len(tasks)),
	}
	for pos, i := range Roots(tasks) {
		n.position[tasks[i].ID] = pos + 1
	}
	for _, t := range tasks {
		for pos, child := range t.Children {
			if _, ok := n.position[child]; !ok {
				n.position[child] = pos + 1
			}
		}
	}
	return n
}

// Number returns the display number of id, or "" for an unknown task.
func (n *Numberer) Number(id string) string {
	if num, ok := n.memo[id]; ok {
		return num
	}
	if _, ok := n.index[id]; !ok {
		return ""
	}

	// Walk to the root, bounded by the task count so a corrupt parent chain
	// cannot loop forever.
	var chain []string
	cur := id
	for steps := 0; cur != "" && steps <= len(n.tasks); steps++ {
		if num, ok := n.memo[cur]; ok {
			chain = append(chain, num)
			break
		}
		pos := n.position[cur]
		if pos == 0 {
			pos = 1
		}
		chain = append(chain, strconv.Itoa(pos))
		i, ok := n.index[cur]
		if !ok {
			break
		}
		cur = n.tasks[i].ParentID
		if _, ok := n.index[cur]; !ok {
			break
		}
	}
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	num := strings.Join(chain, ".")
	n.memo[id] = num
	return num
}

// Walk visits tasks depth-first in document order: each root followed by its
// subtree. Tasks unreachable from a root (dangling parents) are visited last.
func Walk(tasks []Task, visit func(t *Task)) {
	idx := Index(tasks)
	seen := make(map[string]bool, len(tasks))
	var stack []int
	push := func(i int) { stack = append(stack, i) }

	run := func() {
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			t := &tasks[i]
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			visit(t)
			for c := len(t.Children) - 1; c >= 0; c-- {
				if ci, ok := idx[t.Children[c]]; ok {
					push(ci)
				}
			}
		}
	}

	roots := Roots(tasks)
	for r := len(roots) - 1; r >= 0; r-- {
		push(roots[r])
	}
	run()
	for i := range tasks {
		if !seen[tasks[i].ID] {
			push(i)
			run()
		}
	}
}
