package task

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lvl(n int) *int { return &n }

func in(id, title string, level int, parent string, deps ...string) Input {
	return Input{ID: id, Title: title, Level: lvl(level), Priority: "Medium", ParentID: parent, Dependencies: deps}
}

func TestValidateBatch_Valid(t *testing.T) {
	batch := []Input{
		in("1", "Backend", 0, ""),
		in("1.1", "Schema", 1, "1"),
		in("1.2", "API", 1, "1", "1.1"),
	}
	tasks, rep := ValidateBatch(nil, batch, DefaultLimits())
	require.True(t, rep.OK(), rep.Errors)
	assert.Empty(t, rep.Warnings)
	require.Len(t, tasks, 3)
	assert.Equal(t, PriorityMedium, tasks[2].Priority)
	assert.Equal(t, []string{"1.1"}, tasks[2].Dependencies)
}

func TestValidateBatch_MissingRequiredFields(t *testing.T) {
	batch := []Input{
		{ID: "1", Title: "No level", Priority: "High"},
		{ID: "2", Title: "  ", Level: lvl(0), Priority: "High"},
		{ID: "3", Title: "Bad priority", Level: lvl(0), Priority: "urgent"},
		{Title: "No id", Level: lvl(0), Priority: "Low"},
	}
	tasks, rep := ValidateBatch(nil, batch, DefaultLimits())
	assert.Nil(t, tasks)
	require.Len(t, rep.Errors, 4)
	assert.Contains(t, rep.Errors[0], "Level is required")
	assert.Contains(t, rep.Errors[1], "Title cannot be empty")
	assert.Contains(t, rep.Errors[2], "Priority must be one of")
	assert.Contains(t, rep.Errors[3], "ID is required")
}

func TestValidateBatch_ParentMustExist(t *testing.T) {
	// Level 1 task whose parent is neither accepted nor in the batch.
	_, rep := ValidateBatch(nil, []Input{in("2.1", "Orphan", 1, "2")}, DefaultLimits())
	require.False(t, rep.OK())
	assert.Contains(t, rep.Errors[0], "parent 2 does not exist")

	_, rep = ValidateBatch(nil, []Input{in("2.1", "No parent", 1, "")}, DefaultLimits())
	require.False(t, rep.OK())
	assert.Contains(t, rep.Errors[0], "requires parent_id")
}

func TestValidateBatch_ParentFromAccepted(t *testing.T) {
	accepted := []Task{{ID: "1", Title: "Root", Level: 0, Priority: PriorityHigh}}
	tasks, rep := ValidateBatch(accepted, []Input{in("1.1", "Child", 1, "1")}, DefaultLimits())
	require.True(t, rep.OK(), rep.Errors)
	assert.Len(t, tasks, 1)
}

func TestValidateBatch_LevelMismatchAndRootParent(t *testing.T) {
	batch := []Input{
		in("1", "Root", 0, ""),
		in("1.1.1", "Skips a level", 2, "1"),
		in("2", "Root with parent", 0, "1"),
	}
	_, rep := ValidateBatch(nil, batch, DefaultLimits())
	require.Len(t, rep.Errors, 2)
	assert.Contains(t, rep.Errors[0], "does not match parent")
	assert.Contains(t, rep.Errors[1], "cannot have parent")
}

func TestValidateBatch_DepthCap(t *testing.T) {
	batch := []Input{in("1", "Root", 0, ""), in("1.1", "Child", 1, "1")}
	_, rep := ValidateBatch(nil, batch, Limits{MaxDepth: 0})
	assert.True(t, rep.OK())
	_, rep = ValidateBatch(nil, batch[:1], Limits{MaxDepth: 1})
	assert.True(t, rep.OK())
	_, rep = ValidateBatch(nil, []Input{in("1", "Deep", 3, "x")}, Limits{MaxDepth: 2})
	require.False(t, rep.OK())
	assert.Contains(t, rep.Errors[0], "exceeds maximum depth")
}

func TestValidateBatch_DuplicatesAndDanglingAreWarnings(t *testing.T) {
	accepted := []Task{{ID: "1", Title: "Root", Priority: PriorityHigh}}
	batch := []Input{
		in("1", "Root again", 0, ""),
		in("2", "Other", 0, "", "99"),
	}
	tasks, rep := ValidateBatch(accepted, batch, DefaultLimits())
	require.True(t, rep.OK(), rep.Errors)
	assert.Len(t, tasks, 2)
	require.Len(t, rep.Warnings, 2)
	assert.True(t, strings.HasPrefix(rep.Warnings[0], "duplicate task id 1"))
	assert.Contains(t, rep.Warnings[1], "dependency 99 does not exist")
}

func TestValidateBatch_RejectsGrammarBreakingValues(t *testing.T) {
	batch := []Input{
		{ID: "1 2", Title: "Space in id", Level: lvl(0), Priority: "High"},
		{ID: "3", Title: "Bold **title**", Level: lvl(0), Priority: "High"},
		{ID: "4", Title: "Two\nlines", Level: lvl(0), Priority: "High"},
	}
	_, rep := ValidateBatch(nil, batch, DefaultLimits())
	assert.Len(t, rep.Errors, 3)
}

func TestMerge_SkipsExistingIDs(t *testing.T) {
	accepted := []Task{{ID: "1", Title: "Original"}}
	batch := []Task{{ID: "1", Title: "Replacement"}, {ID: "2", Title: "New"}, {ID: "2", Title: "Dup"}}
	merged, added := Merge(accepted, batch)
	require.Len(t, merged, 2)
	assert.Equal(t, "Original", merged[0].Title)
	assert.Equal(t, "New", merged[1].Title)
	assert.Equal(t, []string{"2"}, added)

	merged[0].Title = "mutated"
	assert.Equal(t, "Original", accepted[0].Title)
}
