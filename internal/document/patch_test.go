package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patchDoc = `## Work Breakdown Structure

- [ ] **Setup** (Priority: High)
  - Task ID: 1
  - [ ] **Write docs** (Priority: Low)
    - Task ID: 1.1
- [ ] **Release** (Priority: High)
  - Task ID: 2
  - [ ] **Write docs** (Priority: Low)
    - Task ID: 2.1
`

func TestSetCheckbox_Idempotent(t *testing.T) {
	out, changed, err := SetCheckbox(patchDoc, Mark{ID: "1", Title: "Setup"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out, "- [x] **Setup** (Priority: High)")

	again, changed, err := SetCheckbox(out, Mark{ID: "1", Title: "Setup"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, out, again)

	// Only one line differs.
	before, after := strings.Split(patchDoc, "\n"), strings.Split(out, "\n")
	require.Equal(t, len(before), len(after))
	diff := 0
	for i := range before {
		if before[i] != after[i] {
			diff++
		}
	}
	assert.Equal(t, 1, diff)
}

func TestSetCheckbox_DuplicateTitleUsesTaskID(t *testing.T) {
	out, changed, err := SetCheckbox(patchDoc, Mark{ID: "2.1", Title: "Write docs"})
	require.NoError(t, err)
	assert.True(t, changed)
	res := Parse(out)
	for _, tk := range res.Tasks {
		assert.Equal(t, tk.ID == "2.1", tk.Completed, tk.ID)
	}
}

func TestSetCheckbox_NotFound(t *testing.T) {
	out, changed, err := SetCheckbox(patchDoc, Mark{ID: "9", Title: "Nope"})
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, patchDoc, out)
}

func TestSetCheckboxes_Many(t *testing.T) {
	out, changed, missing := SetCheckboxes(patchDoc, []Mark{
		{ID: "1.1", Title: "Write docs"},
		{ID: "1", Title: "Setup"},
		{ID: "7", Title: "Ghost"},
	})
	assert.Equal(t, 2, changed)
	require.Len(t, missing, 1)
	assert.Equal(t, "Ghost", missing[0].Title)
	assert.Equal(t, 2, strings.Count(out, "- [x]"))
}
