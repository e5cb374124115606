package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/wbsplan/types"
)

func TestRootCmd(t *testing.T) {
	env := newTestEnv(t)
	output, err := env.run(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "wbsplan builds hierarchical work breakdown structures")
	assert.Contains(t, output, "Usage:")
	for _, sub := range []string{"mcp", "render", "check", "done", "history", "config"} {
		assert.Contains(t, output, sub)
	}
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "0.1.0", GetVersion())
}

func TestConfigCmd_ShowsEffectiveSettings(t *testing.T) {
	env := newTestEnv(t)
	output, err := env.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, output, env.cfgPath)
	assert.Contains(t, output, "wbs_filename: WBS.md")
	assert.Contains(t, output, "level: error")
}

func TestRootCmd_PreRunLoadsConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NotNil(t, rootCmd.PersistentPreRunE)
	require.NotNil(t, rootCmd.PersistentPostRunE)

	_, err := env.run(t, "config")
	require.NoError(t, err)
	require.NotNil(t, appConfig)
	assert.Equal(t, env.outDir, appConfig.Planning.OutputDir)
	assert.Equal(t, filepath.Join(env.dir, "journal.db"), appConfig.Journal.Path)
}

func TestRenderCheckDoneHistory(t *testing.T) {
	env := newTestEnv(t)
	planPath := env.write(t, "plan.yaml", shopPlan)

	output, err := env.run(t, "render", planPath)
	require.NoError(t, err)
	docPath := filepath.Join(env.outDir, "Shop_WBS.md")
	assert.Contains(t, output, docPath)
	assert.Contains(t, output, "4 (2 root, 3 leaf)")

	output, err = env.run(t, "check", docPath)
	require.NoError(t, err)
	assert.Contains(t, output, "progress:   0/4 (0%)")
	assert.Contains(t, output, "executable: 1")
	assert.Contains(t, output, "next:       1.1 Data model (1.1)")

	output, err = env.run(t, "done", docPath, "1.1", "--rationale", "schema merged")
	require.NoError(t, err)
	assert.Contains(t, output, "✓ 1.1 Data model")
	assert.Contains(t, output, "next: 1.2 API (1.2)")

	output, err = env.run(t, "done", docPath, "1.2")
	require.NoError(t, err)
	assert.Contains(t, output, "also completed: 1")
	assert.Contains(t, output, "progress: 3/4 (75%)")

	doc, err := os.ReadFile(docPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "- [x] **Backend**")
	assert.Contains(t, string(doc), "- [x] **API**")
	assert.Contains(t, string(doc), "- [ ] **Frontend**")

	output, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(output, "plan-"), output)
	assert.Equal(t, 2, strings.Count(output, "exec-"), output)

	output, err = env.run(t, "history", "plan-")
	require.NoError(t, err)
	assert.Contains(t, output, "2 steps")
	assert.Contains(t, output, "+2 tasks  Break down the backend")

	_, err = env.run(t, "history", "exec-")
	assert.Equal(t, types.KindValidation, types.KindOf(err), "two execution sessions share the prefix")

	_, err = env.run(t, "history", "--kind", "bogus")
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestDone_BlockedTask(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "render", env.write(t, "plan.yaml", shopPlan))
	require.NoError(t, err)
	docPath := filepath.Join(env.outDir, "Shop_WBS.md")

	_, err = env.run(t, "done", docPath, "2")
	assert.Equal(t, types.KindPrecondition, types.KindOf(err))

	_, err = env.run(t, "done", docPath, "1")
	assert.Equal(t, types.KindPrecondition, types.KindOf(err), "parent tasks cannot be completed directly")
}

func TestRender_StdoutAndOutputDir(t *testing.T) {
	env := newTestEnv(t)
	planPath := env.write(t, "plan.yaml", shopPlan)

	output, err := env.run(t, "render", planPath, "--stdout")
	require.NoError(t, err)
	assert.Contains(t, output, "# Project: Shop")
	assert.NoFileExists(t, filepath.Join(env.outDir, "Shop_WBS.md"))

	docs := filepath.Join(env.dir, "docs") + "/"
	_, err = env.run(t, "render", planPath, "-o", docs)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(docs, "Shop_WBS.md"))
}

func TestRender_RejectsCycle(t *testing.T) {
	env := newTestEnv(t)
	planPath := env.write(t, "plan.yaml", `project_name: Loop
problem_statement: cyclic
wbs_items:
  - {id: A, title: A, level: 0, priority: Low, dependencies: [B]}
  - {id: B, title: B, level: 0, priority: Low, dependencies: [A]}
`)
	_, err := env.run(t, "render", planPath)
	assert.Equal(t, types.KindStructural, types.KindOf(err))
}

func TestCheck_Formats(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "render", env.write(t, "plan.yaml", shopPlan))
	require.NoError(t, err)
	docPath := filepath.Join(env.outDir, "Shop_WBS.md")

	output, err := env.run(t, "check", docPath, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, output, `"executable_tasks": 1`)

	output, err = env.run(t, "check", docPath, "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, output, "blocked_tasks: 2")

	_, err = env.run(t, "check", filepath.Join(env.dir, "missing.md"))
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestPrintError(t *testing.T) {
	var sb strings.Builder
	PrintError(&sb, types.Structural("dependency cycle detected", "A -> B -> A"))
	assert.Equal(t, "Error (structural): dependency cycle detected\n  - A -> B -> A\n", sb.String())
}
