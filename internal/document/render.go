package document

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/josephgoksu/wbsplan/internal/task"
)

// criticalPathSize is how many of the most-depended tasks the summary lists.
const criticalPathSize = 5

// Source is everything a plan document is rendered from.
type Source struct {
	SessionID        string
	ProjectName      string
	ProblemStatement string
	Status           string
	Steps            int
	Tasks            []task.Task
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RenderOptions controls values that would otherwise make output depend on the
// wall clock.
type RenderOptions struct {
	GeneratedAt time.Time
}

// Render produces the plan document. Children must already be linked. The
// same Source and options always produce the same bytes.
func Render(src Source, opts RenderOptions) string {
	var sb strings.Builder
	name := src.ProjectName
	if name == "" {
		name = defaultProjectName
	}

	fmt.Fprintf(&sb, "%s %s\n\n", projectPrefix, name)
	fmt.Fprintf(&sb, "%s\n%s\n\n", problemHeading, oneLine(src.ProblemStatement))
	fmt.Fprintf(&sb, "%s\n\n", wbsHeading)

	numbers := task.NewNumberer(src.Tasks)
	index := task.Index(src.Tasks)
	var ordered []*task.Task
	rootCount := 0

	task.Walk(src.Tasks, func(t *task.Task) {
		ordered = append(ordered, t)
		if t.Level == 0 || t.ParentID == "" {
			if rootCount > 0 {
				sb.WriteString("\n")
			}
			rootCount++
			fmt.Fprintf(&sb, "### %s. %s\n", numbers.Number(t.ID), t.Title)
		}
		writeTask(&sb, t, numbers, src.Tasks, index)
	})
	if len(ordered) == 0 {
		sb.WriteString("_No tasks defined yet._\n")
	}

	sb.WriteString("\n")
	writeSummary(&sb, src, ordered, numbers)
	writeMetadata(&sb, src, name, opts)
	return sb.String()
}

func writeTask(sb *strings.Builder, t *task.Task, numbers *task.Numberer, all []task.Task, index map[string]int) {
	indent := strings.Repeat(" ", t.Level*IndentUnit)
	detail := indent + strings.Repeat(" ", IndentUnit) + "- "
	box := " "
	if t.Completed {
		box = "x"
	}
	fmt.Fprintf(sb, "%s- [%s] **%s** (Priority: %s)\n", indent, box, t.Title, t.Priority)
	fmt.Fprintf(sb, "%s%s %s\n", detail, detailTaskID, t.ID)
	fmt.Fprintf(sb, "%s%s %s\n", detail, detailNumber, numbers.Number(t.ID))
	if d := oneLine(t.Description); d != "" {
		fmt.Fprintf(sb, "%s%s %s\n", detail, detailDescription, d)
	}
	fmt.Fprintf(sb, "%s%s %s\n", detail, detailDependencies, dependencyList(t, all, index))
}

// dependencyList renders "id (title), ..." or None. Unknown identifiers are
// written bare.
func dependencyList(t *task.Task, all []task.Task, index map[string]int) string {
	if len(t.Dependencies) == 0 {
		return noDependencies
	}
	parts := make([]string, 0, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if i, ok := index[dep]; ok {
			parts = append(parts, fmt.Sprintf("%s (%s)", dep, all[i].Title))
		} else {
			parts = append(parts, dep)
		}
	}
	return strings.Join(parts, ", ")
}

func writeSummary(sb *strings.Builder, src Source, ordered []*task.Task, numbers *task.Numberer) {
	counts := map[task.Priority]int{}
	completed := 0
	for _, t := range ordered {
		counts[t.Priority]++
		if t.Completed {
			completed++
		}
	}

	fmt.Fprintf(sb, "%s\n\n", summaryHeading)
	fmt.Fprintf(sb, "- **Planning Steps**: %d\n", src.Steps)
	fmt.Fprintf(sb, "- **Total Tasks**: %d\n", len(ordered))
	if src.Status != "" {
		fmt.Fprintf(sb, "- **Status**: %s\n", src.Status)
	}
	if !src.CreatedAt.IsZero() {
		fmt.Fprintf(sb, "- **Created**: %s\n", src.CreatedAt.UTC().Format(time.RFC3339))
	}
	if !src.UpdatedAt.IsZero() {
		fmt.Fprintf(sb, "- **Last Updated**: %s\n", src.UpdatedAt.UTC().Format(time.RFC3339))
	}
	for _, p := range task.ValidPriorities() {
		fmt.Fprintf(sb, "- **%s Priority**: %d\n", p, counts[p])
	}
	fmt.Fprintf(sb, "- **Completed Tasks**: %d\n", completed)
	fmt.Fprintf(sb, "- **Progress**: %d%%\n", Percent(completed, len(ordered)))

	fmt.Fprintf(sb, "\n%s\n\n", criticalPathHeading)
	path := CriticalPath(ordered)
	if len(path) == 0 {
		sb.WriteString("- No critical path identified\n")
	}
	for _, t := range path {
		noun := "dependencies"
		if len(t.Dependencies) == 1 {
			noun = "dependency"
		}
		fmt.Fprintf(sb, "- %s %s (%d %s)\n", numbers.Number(t.ID), t.Title, len(t.Dependencies), noun)
	}
	sb.WriteString("\n")
}

func writeMetadata(sb *strings.Builder, src Source, name string, opts RenderOptions) {
	fmt.Fprintf(sb, "%s\n\n", metadataHeading)
	if src.SessionID != "" {
		fmt.Fprintf(sb, "- **Session ID**: %s\n", src.SessionID)
	}
	fmt.Fprintf(sb, "- **Project**: %s\n", name)
	if !opts.GeneratedAt.IsZero() {
		fmt.Fprintf(sb, "- **Generated**: %s\n", opts.GeneratedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(sb, "\n---\n%s\n", generatorAttribution)
}

// CriticalPath returns up to five tasks with the most dependencies, ties
// broken by the given (document) order. Tasks without dependencies are
// excluded.
func CriticalPath(ordered []*task.Task) []*task.Task {
	var withDeps []*task.Task
	for _, t := range ordered {
		if len(t.Dependencies) > 0 {
			withDeps = append(withDeps, t)
		}
	}
	sort.SliceStable(withDeps, func(i, j int) bool {
		return len(withDeps[i].Dependencies) > len(withDeps[j].Dependencies)
	})
	if len(withDeps) > criticalPathSize {
		withDeps = withDeps[:criticalPathSize]
	}
	return withDeps
}

// Percent returns round(done/total*100), or 0 when total is 0.
func Percent(done, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
