package app

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/wbsplan/internal/config"
	"github.com/josephgoksu/wbsplan/internal/execution"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/logger"
	"github.com/josephgoksu/wbsplan/internal/planning"
	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/types"
)

func defaultConfig(t *testing.T) *types.AppConfig {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	var cfg types.AppConfig
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, config.Validate(&cfg))
	return &cfg
}

func lvl(n int) *int { return &n }

func TestNewContext_PlanExecuteAndJournal(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig(t)
	cfg.Journal.Path = ":memory:"
	cfg.Execution.ProgressReports = false

	c, err := NewContext(cfg, Options{Fs: afero.NewMemMapFs(), Logger: logger.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, c.Journal)
	assert.Nil(t, c.Watcher)

	step, err := c.Planning.Step(ctx, planning.StepInput{
		Text:             "Break down the release",
		StepNumber:       1,
		TotalSteps:       1,
		ProblemStatement: "Ship v2",
		ProjectName:      "Release",
		Tasks: []task.Input{
			{ID: "1", Title: "Release", Level: lvl(0), Priority: "High"},
			{ID: "1.1", Title: "Changelog", Level: lvl(1), Priority: "Medium", ParentID: "1"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, step.Export)
	require.Empty(t, step.Export.Error)

	start, err := c.Execution.Begin(ctx, step.Export.Path)
	require.NoError(t, err)
	_, err = c.Execution.Complete(ctx, start.SessionID, "1.1", "written", "")
	require.NoError(t, err)

	planningSessions, err := c.Journal.Sessions(ctx, journal.KindPlanning)
	require.NoError(t, err)
	require.Len(t, planningSessions, 1)
	assert.Equal(t, "Release", planningSessions[0].ProjectName)

	steps, err := c.Journal.Steps(ctx, step.SessionID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 2, steps[0].TasksAdded)

	completions, err := c.Journal.Completions(ctx, start.SessionID)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, []string{"1"}, completions[0].AutoCompleted)

	status, err := c.Execution.Status(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, execution.Progress{Completed: 2, Total: 2, Percent: 100}, status.Progress)
}

func TestNewContext_SkipJournal(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Journal.Path = ":memory:"
	c, err := NewContext(cfg, Options{Fs: afero.NewMemMapFs(), Logger: logger.Discard(), SkipJournal: true})
	require.NoError(t, err)
	assert.Nil(t, c.Journal)
	assert.NoError(t, c.Close())
}

func TestNewContext_NilConfig(t *testing.T) {
	_, err := NewContext(nil, Options{})
	assert.Error(t, err)
}
