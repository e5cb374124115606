package task

// Cycle detection walks the graph with an explicit stack so deep plans cannot
// exhaust the goroutine stack.

const (
	unvisited = iota
	visiting
	done
)

type frame struct {
	id   string
	next int
}

// dependencyEdges maps each task to its dependencies that exist in the set.
func dependencyEdges(tasks []Task) map[string][]string {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	edges := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		if _, ok := edges[t.ID]; ok {
			continue
		}
		var deps []string
		for _, d := range t.Dependencies {
			if known[d] {
				deps = append(deps, d)
			}
		}
		edges[t.ID] = deps
	}
	return edges
}

// DetectCycles reports dependency cycles as "A -> B" back-edge traces, at most
// one per DFS root. Dependencies on unknown tasks are ignored. An empty result
// means the dependency graph is acyclic.
func DetectCycles(tasks []Task) []string {
	edges := dependencyEdges(tasks)
	state := make(map[string]int, len(tasks))
	var cycles []string

	for _, root := range tasks {
		if state[root.ID] != unvisited {
			continue
		}
		found := false
		state[root.ID] = visiting
		stack := []frame{{id: root.ID}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := edges[top.id]
			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++
				switch state[dep] {
				case unvisited:
					state[dep] = visiting
					stack = append(stack, frame{id: dep})
				case visiting:
					if !found {
						cycles = append(cycles, top.id+" -> "+dep)
						found = true
					}
				}
				continue
			}
			state[top.id] = done
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}
