package planning

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/logger"
	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/types"
)

type fakeJournal struct {
	mu       sync.Mutex
	sessions []journal.SessionEntry
	steps    []journal.StepEntry
}

func (f *fakeJournal) RecordSession(_ context.Context, e journal.SessionEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, e)
	return nil
}

func (f *fakeJournal) RecordStep(_ context.Context, e journal.StepEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps = append(f.steps, e)
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestManager(t *testing.T) (*Manager, afero.Fs, *fakeJournal) {
	t.Helper()
	fs := afero.NewMemMapFs()
	j := &fakeJournal{}
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(Options{
		Store:           document.NewStore(fs, document.StoreOptions{Logger: logger.Discard()}),
		Journal:         j,
		Logger:          logger.Discard(),
		Limits:          task.DefaultLimits(),
		OutputDir:       "out",
		WBSFilename:     "WBS.md",
		ExportByDefault: true,
		Now:             c.now,
	})
	return m, fs, j
}

func lvl(n int) *int { return &n }

func item(id, title string, level int, parent string, deps ...string) task.Input {
	return task.Input{ID: id, Title: title, Level: lvl(level), Priority: "medium", ParentID: parent, Dependencies: deps}
}

func firstStep(tasks ...task.Input) StepInput {
	return StepInput{
		Text:             "Break the problem down",
		StepNumber:       1,
		TotalSteps:       3,
		NextStepNeeded:   true,
		ProblemStatement: "Ship the storefront",
		ProjectName:      "Shop",
		Tasks:            tasks,
	}
}

func TestStep_CreatesPlanAndExportsProgressively(t *testing.T) {
	m, fs, j := newTestManager(t)
	ctx := context.Background()

	res, err := m.Step(ctx, firstStep(
		item("1", "Backend", 0, ""),
		item("1.1", "Schema", 1, "1"),
		item("1.2", "API", 1, "1", "1.1"),
	))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SessionID, "plan-"))
	assert.Equal(t, StatusActive, res.Status)
	assert.Equal(t, []string{"1", "1.1", "1.2"}, res.TasksAdded)
	assert.Equal(t, 3, res.Summary.TotalTasks)
	assert.Equal(t, 3, res.Summary.ByPriority["Medium"])
	assert.Equal(t, 2, res.Summary.LeafTasks)

	require.NotNil(t, res.Export)
	assert.Empty(t, res.Export.Error)
	assert.Equal(t, "out/Shop_WBS.md", res.Export.Path)

	data, err := afero.ReadFile(fs, "out/Shop_WBS.md")
	require.NoError(t, err)
	parsed := document.Parse(string(data))
	assert.Equal(t, "Shop", parsed.ProjectName)
	assert.Len(t, parsed.Tasks, 3)

	require.Len(t, j.sessions, 1)
	require.Len(t, j.steps, 1)
	assert.Equal(t, 3, j.steps[0].TasksAdded)
}

func TestStep_RejectedBatchLeavesPlanUnchanged(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Step(ctx, firstStep(item("A", "Alpha", 0, ""), item("B", "Beta", 0, "")))
	require.NoError(t, err)

	// C and D depend on each other.
	_, err = m.Step(ctx, StepInput{
		SessionID: res.SessionID, Text: "wire deps", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true,
		Tasks: []task.Input{item("C", "Gamma", 0, "", "D"), item("D", "Delta", 0, "", "C")},
	})
	require.Error(t, err)
	assert.Equal(t, types.KindStructural, types.KindOf(err))

	_, err = m.Step(ctx, StepInput{
		SessionID: res.SessionID, Text: "orphan", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true,
		Tasks: []task.Input{item("X.1", "Orphan", 1, "X")},
	})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	p, err := m.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, p.Tasks, 2)
	assert.Len(t, p.Steps, 1)
}

func TestStep_DuplicateIDsKeepFirst(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	res, err := m.Step(ctx, firstStep(item("1", "First", 0, ""), item("1", "Second", 0, "")))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, res.TasksAdded)
	assert.NotEmpty(t, res.Warnings)

	p, err := m.Get(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, "First", p.Tasks[0].Title)
}

func TestStep_SessionResolution(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Step(ctx, StepInput{Text: "no plan yet", StepNumber: 1, TotalSteps: 1, NextStepNeeded: true})
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	first, err := m.Step(ctx, firstStep())
	require.NoError(t, err)

	// Without a session id the most recently updated active plan is used.
	res, err := m.Step(ctx, StepInput{Text: "continue", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, res.SessionID)
	assert.Equal(t, 2, res.StepsRecorded)

	// Unique prefixes resolve.
	res, err = m.Step(ctx, StepInput{SessionID: first.SessionID[:7], Text: "again", StepNumber: 3, TotalSteps: 3, NextStepNeeded: true})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, res.SessionID)

	_, err = m.Step(ctx, StepInput{SessionID: "plan-missing", Text: "x", StepNumber: 1, TotalSteps: 1, NextStepNeeded: true})
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestStep_InvalidInput(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Step(context.Background(), StepInput{Text: "  ", StepNumber: 0, TotalSteps: 1, ActionType: "deploy"})
	require.Error(t, err)
	var e *types.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, types.KindValidation, e.Kind)
	assert.Len(t, e.Details, 3)
}

func TestStep_CompletionExportsAndLocksPlan(t *testing.T) {
	m, fs, _ := newTestManager(t)
	ctx := context.Background()

	off := false
	in := firstStep(item("1", "Only", 0, ""))
	in.ExportToFile = &off
	res, err := m.Step(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, res.Export, "export disabled and plan still open")

	res, err = m.Step(ctx, StepInput{SessionID: res.SessionID, Text: "done", StepNumber: 2, TotalSteps: 2, NextStepNeeded: false})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	require.NotNil(t, res.Export)
	ok, _ := afero.Exists(fs, res.Export.Path)
	assert.True(t, ok)

	_, err = m.Step(ctx, StepInput{SessionID: res.SessionID, Text: "more", StepNumber: 3, TotalSteps: 3, NextStepNeeded: true})
	assert.Equal(t, types.KindPrecondition, types.KindOf(err))
}

func TestStep_GenerateMarkdownDoesNotComplete(t *testing.T) {
	m, fs, _ := newTestManager(t)
	in := firstStep()
	in.GenerateMarkdown = true
	in.OutputPath = "docs/"
	res, err := m.Step(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, res.Status)
	require.NotNil(t, res.Export)
	assert.Equal(t, "docs/Shop_WBS.md", res.Export.Path)
	ok, _ := afero.Exists(fs, "docs/Shop_WBS.md")
	assert.True(t, ok)
}

func TestStep_OutputPathIsSticky(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	in := firstStep(item("1", "One", 0, ""))
	in.OutputPath = "plans/custom.md"
	res, err := m.Step(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "plans/custom.md", res.Export.Path)

	res, err = m.Step(ctx, StepInput{
		SessionID: res.SessionID, Text: "more", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true,
		OutputPath: "elsewhere.md", Tasks: []task.Input{item("2", "Two", 0, "")},
	})
	require.NoError(t, err)
	assert.Equal(t, "plans/custom.md", res.Export.Path)
}

func TestStep_RevisionAndBranches(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.limits.MaxBranches = 1
	ctx := context.Background()

	res, err := m.Step(ctx, firstStep())
	require.NoError(t, err)
	id := res.SessionID

	_, err = m.Step(ctx, StepInput{SessionID: id, Text: "r", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true, IsRevision: true, RevisesStep: 7})
	assert.Equal(t, types.KindValidation, types.KindOf(err))

	_, err = m.Step(ctx, StepInput{SessionID: id, Text: "r", StepNumber: 2, TotalSteps: 3, NextStepNeeded: true, IsRevision: true, RevisesStep: 1})
	require.NoError(t, err)

	_, err = m.Step(ctx, StepInput{SessionID: id, Text: "b", StepNumber: 3, TotalSteps: 3, NextStepNeeded: true, BranchID: "alt"})
	assert.Equal(t, types.KindValidation, types.KindOf(err), "branch id without origin step")

	res, err = m.Step(ctx, StepInput{SessionID: id, Text: "b", StepNumber: 3, TotalSteps: 4, NextStepNeeded: true, BranchFromStep: 1, BranchID: "alt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alt"}, res.Branches)

	_, err = m.Step(ctx, StepInput{SessionID: id, Text: "b2", StepNumber: 4, TotalSteps: 4, NextStepNeeded: true, BranchFromStep: 1, BranchID: "other"})
	assert.Equal(t, types.KindValidation, types.KindOf(err), "branch cap")

	p, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, p.Branches["alt"], 1)
	assert.Len(t, p.Steps, 3)
}

func TestPauseResume(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	res, err := m.Step(ctx, firstStep())
	require.NoError(t, err)

	s, err := m.Pause(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, s.Status)

	_, err = m.Step(ctx, StepInput{SessionID: res.SessionID, Text: "x", StepNumber: 2, TotalSteps: 2, NextStepNeeded: true})
	assert.Equal(t, types.KindPrecondition, types.KindOf(err))

	_, err = m.Pause(ctx, res.SessionID)
	assert.Equal(t, types.KindPrecondition, types.KindOf(err))

	s, err = m.Resume(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, s.Status)
}

func TestList_MostRecentFirst(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	a, err := m.Step(ctx, firstStep())
	require.NoError(t, err)
	in := firstStep()
	in.ProjectName = "Other"
	b, err := m.Step(ctx, in)
	require.NoError(t, err)

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.SessionID, list[0].ID)
	assert.Equal(t, a.SessionID, list[1].ID)
}

func TestGet_ReturnsCopy(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	res, err := m.Step(ctx, firstStep(item("1", "One", 0, "")))
	require.NoError(t, err)

	p, err := m.Get(ctx, res.SessionID)
	require.NoError(t, err)
	p.Tasks[0].Title = "mutated"

	again, err := m.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "One", again.Tasks[0].Title)
}

func TestStep_ConcurrentStepsOnOnePlan(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()
	res, err := m.Step(ctx, firstStep())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + "-task"
			_, err := m.Step(ctx, StepInput{
				SessionID: res.SessionID, Text: "parallel", StepNumber: i + 2, TotalSteps: 30, NextStepNeeded: true,
				Tasks: []task.Input{item(id, "Task "+id, 0, "")},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	p, err := m.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, p.Steps, 21)
	assert.Len(t, p.Tasks, 20)
}

func TestDocument_RendersWithoutWriting(t *testing.T) {
	m, fs, _ := newTestManager(t)
	off := false
	in := firstStep(item("1", "One", 0, ""))
	in.ExportToFile = &off
	res, err := m.Step(context.Background(), in)
	require.NoError(t, err)

	doc, err := m.Document(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Contains(t, doc, "# Project: Shop")
	assert.Contains(t, doc, "- [ ] **One** (Priority: Medium)")
	ok, _ := afero.DirExists(fs, "out")
	assert.False(t, ok)
}
