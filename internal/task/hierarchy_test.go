package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []Task {
	return []Task{
		{ID: "b", Title: "Second root", Level: 0, Order: 2},
		{ID: "a", Title: "First root", Level: 0, Order: 1},
		{ID: "a2", Title: "Later child", Level: 1, ParentID: "a", Order: 5},
		{ID: "a1", Title: "Earlier child", Level: 1, ParentID: "a", Order: 1},
		{ID: "a1x", Title: "Grandchild", Level: 2, ParentID: "a1"},
	}
}

func TestLinkChildren_OrderAndIdempotence(t *testing.T) {
	tasks := sampleTree()
	LinkChildren(tasks)
	assert.Equal(t, []string{"a1", "a2"}, tasks[1].Children)
	assert.Equal(t, []string{"a1x"}, tasks[3].Children)
	assert.Nil(t, tasks[0].Children)

	before := CloneAll(tasks)
	LinkChildren(tasks)
	assert.Equal(t, before, tasks)
}

func TestNumberer_SiblingPositionsUseOrder(t *testing.T) {
	tasks := sampleTree()
	LinkChildren(tasks)
	n := NewNumberer(tasks)
	assert.Equal(t, "1", n.Number("a"))
	assert.Equal(t, "2", n.Number("b"))
	assert.Equal(t, "1.1", n.Number("a1"))
	assert.Equal(t, "1.2", n.Number("a2"))
	assert.Equal(t, "1.1.1", n.Number("a1x"))
	assert.Equal(t, "", n.Number("missing"))
}

func TestNumberer_EqualOrderKeepsInsertion(t *testing.T) {
	tasks := []Task{
		{ID: "x", Level: 0},
		{ID: "y", Level: 0},
		{ID: "z", Level: 0},
	}
	LinkChildren(tasks)
	n := NewNumberer(tasks)
	assert.Equal(t, "1", n.Number("x"))
	assert.Equal(t, "3", n.Number("z"))
}

func TestWalk_DocumentOrder(t *testing.T) {
	tasks := sampleTree()
	tasks = append(tasks, Task{ID: "lost", Level: 1, ParentID: "gone"})
	LinkChildren(tasks)
	var got []string
	Walk(tasks, func(t *Task) { got = append(got, t.ID) })
	require.Len(t, got, 6)
	assert.Equal(t, []string{"a", "a1", "a1x", "a2", "b", "lost"}, got)
}
