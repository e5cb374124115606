package document

import (
	"fmt"
	"strings"
)

// Mark identifies one checkbox to set. Title selects the line; ID breaks ties
// when several task lines share a title.
type Mark struct {
	ID    string
	Title string
}

// SetCheckboxes marks the given tasks completed by rewriting their task lines
// in place. Lines already checked are left alone, so applying the same marks
// twice is a no-op. Marks whose line cannot be found are returned in missing.
func SetCheckboxes(content string, marks []Mark) (out string, changed int, missing []Mark) {
	lines := strings.Split(content, "\n")
	for _, m := range marks {
		i := findTaskLine(lines, m)
		if i < 0 {
			missing = append(missing, m)
			continue
		}
		if updated, ok := check(lines[i]); ok {
			lines[i] = updated
			changed++
		}
	}
	return strings.Join(lines, "\n"), changed, missing
}

// SetCheckbox is SetCheckboxes for a single task.
func SetCheckbox(content string, m Mark) (string, bool, error) {
	out, changed, missing := SetCheckboxes(content, []Mark{m})
	if len(missing) > 0 {
		return content, false, fmt.Errorf("task line %q not found", m.Title)
	}
	return out, changed > 0, nil
}

func findTaskLine(lines []string, m Mark) int {
	var candidates []int
	for i, line := range lines {
		if tl, ok := matchTaskLine(line); ok && tl.title == m.Title {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	if len(candidates) == 1 || m.ID == "" {
		return candidates[0]
	}
	for _, c := range candidates {
		if detailID(lines, c) == m.ID {
			return c
		}
	}
	return candidates[0]
}

// detailID returns the Task ID recorded under the task line at index i.
func detailID(lines []string, i int) string {
	for j := i + 1; j < len(lines); j++ {
		if _, ok := matchTaskLine(lines[j]); ok || isHeading(lines[j]) {
			break
		}
		if m := taskIDPattern.FindStringSubmatch(lines[j]); m != nil {
			return m[1]
		}
	}
	return ""
}

func check(line string) (string, bool) {
	const open, done = "- [ ]", "- [x]"
	i := strings.Index(line, open)
	if i < 0 {
		return line, false
	}
	return line[:i] + done + line[i+len(open):], true
}
