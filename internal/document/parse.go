package document

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephgoksu/wbsplan/internal/task"
)

// Result is a parsed plan document.
type Result struct {
	ProjectName      string
	ProblemStatement string
	// Tasks are in document order with ParentID and Children rebuilt.
	Tasks    []task.Task
	Warnings []string
}

type pendingTask struct {
	line        int
	syntheticID string
	explicitID  string
	level       int
	title       string
	priority    task.Priority
	completed   bool
	description string
	rawDeps     string
	hasDeps     bool
}

// Parse reads a plan document. It never fails: lines it cannot interpret are
// skipped and reported in Result.Warnings.
func Parse(content string) Result {
	var res Result
	var pending []*pendingTask
	var current *pendingTask
	inProblem := false

	lines := strings.Split(content, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if tl, ok := matchTaskLine(line); ok {
			level := levelOf(tl.indent)
			p, _ := task.ParsePriority(tl.priority)
			current = &pendingTask{
				line:        lineNo,
				syntheticID: fmt.Sprintf("%d_%d_%s", level, lineNo, normalizeTitle(tl.title)),
				level:       level,
				title:       tl.title,
				priority:    p,
				completed:   tl.completed,
			}
			pending = append(pending, current)
			inProblem = false
			continue
		}

		if isHeading(line) {
			current = nil
			if res.ProjectName == "" && strings.HasPrefix(trimmed, projectPrefix) {
				res.ProjectName = strings.TrimSpace(strings.TrimPrefix(trimmed, projectPrefix))
			}
			// Sub-headings under the problem statement heading are skipped.
			inProblem = inProblem || strings.HasPrefix(trimmed, problemHeading)
			continue
		}

		if inProblem {
			if trimmed != "" {
				res.ProblemStatement = trimmed
				inProblem = false
			}
			continue
		}

		if current == nil {
			if looksLikeTask(trimmed) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: unrecognized task line %q", lineNo, trimmed))
			}
			continue
		}

		if current.explicitID == "" {
			if m := taskIDPattern.FindStringSubmatch(line); m != nil {
				current.explicitID = m[1]
				continue
			}
		}
		if v, ok := detailValue(line, detailDescription); ok && current.description == "" {
			current.description = v
			continue
		}
		if v, ok := detailValue(line, detailDependencies); ok && !current.hasDeps {
			current.rawDeps = v
			current.hasDeps = true
			continue
		}
		if looksLikeTask(trimmed) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("line %d: unrecognized task line %q", lineNo, trimmed))
		}
	}

	if res.ProjectName == "" {
		res.ProjectName = defaultProjectName
	}
	res.Tasks = resolveTasks(pending, &res.Warnings)
	rebuildHierarchy(res.Tasks, &res.Warnings)
	return res
}

// looksLikeTask flags checklist lines that failed the task pattern, such as a
// missing priority.
func looksLikeTask(trimmed string) bool {
	return (strings.HasPrefix(trimmed, "- [ ]") || strings.HasPrefix(trimmed, "- [x]")) && strings.Contains(trimmed, "**")
}

// resolveTasks replaces synthetic identifiers with explicit ones and then
// resolves dependency entries, so dependencies always refer to final ids.
func resolveTasks(pending []*pendingTask, warnings *[]string) []task.Task {
	tasks := make([]task.Task, 0, len(pending))
	used := make(map[string]int, len(pending))
	for _, p := range pending {
		id := p.syntheticID
		if p.explicitID != "" {
			if prev, dup := used[p.explicitID]; dup {
				*warnings = append(*warnings, fmt.Sprintf("line %d: duplicate task id %s (first on line %d), keeping %s", p.line, p.explicitID, prev, id))
			} else {
				id = p.explicitID
			}
		}
		used[id] = p.line
		tasks = append(tasks, task.Task{
			ID:          id,
			Title:       p.title,
			Description: p.description,
			Level:       p.level,
			Priority:    p.priority,
			Completed:   p.completed,
		})
	}

	for i, p := range pending {
		if !p.hasDeps {
			continue
		}
		var deps []string
		seen := map[string]bool{}
		for _, entry := range strings.Split(p.rawDeps, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" || strings.EqualFold(entry, noDependencies) {
				continue
			}
			m := depTokenPattern.FindStringSubmatch(entry)
			if m == nil || seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			deps = append(deps, m[1])
			if _, ok := used[m[1]]; !ok {
				*warnings = append(*warnings, fmt.Sprintf("task %s: dependency %s does not exist", tasks[i].ID, m[1]))
			}
		}
		tasks[i].Dependencies = deps
	}
	return tasks
}

// rebuildHierarchy assigns ParentID from identifiers and indentation, then
// links children. For a task at level L the parent is a level L-1 task whose id
// is the exact dotted parent, else one whose id is a dot-prefix, else the
// closest level L-1 task above it in the document.
func rebuildHierarchy(tasks []task.Task, warnings *[]string) {
	sorted := make([]int, len(tasks))
	for i := range sorted {
		sorted[i] = i
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		ta, tb := tasks[sorted[a]], tasks[sorted[b]]
		if ta.Level != tb.Level {
			return ta.Level < tb.Level
		}
		return task.CompareIDs(ta.ID, tb.ID) < 0
	})
	byLevel := make(map[int][]int)
	for _, i := range sorted {
		byLevel[tasks[i].Level] = append(byLevel[tasks[i].Level], i)
	}

	for _, i := range sorted {
		t := &tasks[i]
		if t.Level == 0 {
			continue
		}
		candidates := byLevel[t.Level-1]
		parent := -1

		if want := task.ParentPath(t.ID); want != "" {
			for _, c := range candidates {
				if tasks[c].ID == want {
					parent = c
					break
				}
			}
		}
		if parent < 0 {
			for _, c := range candidates {
				if strings.HasPrefix(t.ID, tasks[c].ID+".") {
					parent = c
				}
			}
		}
		if parent < 0 {
			for j := i - 1; j >= 0 && tasks[j].Level >= t.Level-1; j-- {
				if tasks[j].Level == t.Level-1 {
					parent = j
					break
				}
			}
		}
		if parent < 0 {
			*warnings = append(*warnings, fmt.Sprintf("task %s: no parent found at level %d", t.ID, t.Level-1))
			continue
		}
		t.ParentID = tasks[parent].ID
	}
	task.LinkChildren(tasks)
}
