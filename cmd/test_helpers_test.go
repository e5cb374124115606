package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated working area with its own config file.
type testEnv struct {
	dir     string
	cfgPath string
	outDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	env := &testEnv{
		dir:     dir,
		cfgPath: filepath.Join(dir, "wbsplan.yaml"),
		outDir:  filepath.Join(dir, "out"),
	}
	cfg := fmt.Sprintf(`log:
  level: error
planning:
  output_dir: %s
execution:
  tracking_dir: %s
  progress_reports: false
journal:
  path: %s
`, env.outDir, filepath.Join(dir, "track"), filepath.Join(dir, "journal.db"))
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0o644))
	return env
}

// run executes the root command with args and returns combined output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { _ = closeConfig() })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetFlags restores every flag to its default so values from an earlier
// Execute do not leak into the next one.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

const shopPlan = `project_name: Shop
problem_statement: Build an online shop
steps:
  - planning_step: Identify the main areas
    wbs_items:
      - {id: "1", title: Backend, level: 0, priority: High}
      - {id: "2", title: Frontend, level: 0, priority: Medium, dependencies: ["1.1"]}
  - planning_step: Break down the backend
    wbs_items:
      - {id: "1.1", title: Data model, level: 1, priority: High, parent_id: "1"}
      - {id: "1.2", title: API, level: 1, priority: High, parent_id: "1", dependencies: ["1.1"]}
`
