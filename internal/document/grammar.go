// Package document reads and writes the plan document: a markdown file whose
// nested checklist is the shared state between planning and execution.
//
// Grammar (one construct per line, indent unit = 2 spaces):
//
//	header       = "# Project: " name
//	problem      = "## Problem Statement" NL statement-line
//	task-line    = indent "- [" (" " | "x") "] **" title "** (Priority: " ("High"|"Medium"|"Low") ")"
//	detail-line  = indent "  - " key ": " value      ; key in Task ID, WBS Number, Description, Dependencies
//	heading      = "#"+ text                          ; ends detail accumulation
//
// A task's level is its indent width divided by the unit. Detail lines belong to
// the closest preceding task line until the next task line or heading. The
// dependency value is a comma-separated list whose entries start with the
// identifier, optionally followed by a parenthesized label; "None" means empty.
package document

import (
	"regexp"
	"strings"
)

// IndentUnit is the number of spaces per hierarchy level.
const IndentUnit = 2

const (
	projectPrefix        = "# Project:"
	problemHeading       = "## Problem Statement"
	wbsHeading           = "## Work Breakdown Structure"
	summaryHeading       = "## Planning Summary"
	criticalPathHeading  = "### Critical Path"
	metadataHeading      = "## Planning Metadata"
	detailTaskID         = "Task ID:"
	detailNumber         = "WBS Number:"
	detailDescription    = "Description:"
	detailDependencies   = "Dependencies:"
	noDependencies       = "None"
	defaultProjectName   = "Unknown Project"
	generatorAttribution = "*Generated by wbsplan*"
)

var (
	taskLinePattern = regexp.MustCompile(`^(\s*)- \[([ xX])\]\s*\*\*(.*?)\*\*\s*\(Priority:\s*(High|Medium|Low)\)`)
	taskIDPattern   = regexp.MustCompile(`Task ID:\s*([^\s,]+)`)
	depTokenPattern = regexp.MustCompile(`^([^\s(]+)`)
	nonWordPattern  = regexp.MustCompile(`[^a-z0-9]+`)
)

// taskLine is a matched checklist line.
type taskLine struct {
	indent    string
	completed bool
	title     string
	priority  string
}

func matchTaskLine(line string) (taskLine, bool) {
	m := taskLinePattern.FindStringSubmatch(line)
	if m == nil {
		return taskLine{}, false
	}
	return taskLine{
		indent:    m[1],
		completed: m[2] != " ",
		title:     strings.TrimSpace(m[3]),
		priority:  m[4],
	}, true
}

// levelOf converts leading whitespace to a level. Tabs count as one unit.
func levelOf(indent string) int {
	width := 0
	for _, r := range indent {
		if r == '\t' {
			width += IndentUnit
		} else {
			width++
		}
	}
	return width / IndentUnit
}

func isHeading(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// detailValue returns the value of a "- key: value" detail line.
func detailValue(line, key string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "- ")
	if !strings.HasPrefix(trimmed, key) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, key)), true
}

// normalizeTitle lowercases and joins the words of a title with underscores.
func normalizeTitle(title string) string {
	s := nonWordPattern.ReplaceAllString(strings.ToLower(title), "_")
	return strings.Trim(s, "_")
}

// oneLine collapses runs of whitespace, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
