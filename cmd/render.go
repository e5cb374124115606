/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	mcppresenter "github.com/josephgoksu/wbsplan/internal/mcp"
	"github.com/josephgoksu/wbsplan/internal/planning"
	"github.com/josephgoksu/wbsplan/internal/task"
)

// planFile is the YAML input of the render command. Either Steps or the
// single-step shorthand Tasks may be given.
type planFile struct {
	ProjectName      string               `yaml:"project_name"`
	ProblemStatement string               `yaml:"problem_statement"`
	OutputPath       string               `yaml:"output_path"`
	Tasks            []task.Input         `yaml:"wbs_items"`
	Steps            []planning.StepInput `yaml:"steps"`
}

var (
	renderOutput string
	renderStdout bool
)

var renderCmd = &cobra.Command{
	Use:   "render <plan.yaml>",
	Short: "Render a YAML plan into a Markdown plan document",
	Long: `Replay the planning steps of a YAML file through the planning engine and
write the resulting plan document.

The file holds project_name, problem_statement and either a list of steps
(each with planning_step and wbs_items) or a top-level wbs_items list.
Every batch is validated exactly as the planning tool validates it.`,
	Example: `  wbsplan render plan.yaml
  wbsplan render plan.yaml -o docs/
  wbsplan render plan.yaml --stdout`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAppContext(true)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		data, err := c.Documents.Read(args[0])
		if err != nil {
			return fmt.Errorf("read plan file: %w", err)
		}
		steps, outputPath, err := planSteps(data, args[0])
		if err != nil {
			return err
		}
		if renderOutput != "" {
			outputPath = renderOutput
		}

		ctx := cmd.Context()
		var last *planning.StepResult
		for i, in := range steps {
			if last != nil {
				in.SessionID = last.SessionID
			}
			final := i == len(steps)-1
			noExport := false
			in.ExportToFile = &noExport
			in.NextStepNeeded = !final || renderStdout
			if in.OutputPath == "" {
				in.OutputPath = outputPath
			}
			res, err := c.Planning.Step(ctx, in)
			if err != nil {
				return fmt.Errorf("step %d: %w", in.StepNumber, err)
			}
			for _, w := range res.Warnings {
				c.Logger.Warn(w, "step", in.StepNumber)
			}
			last = res
		}

		out := cmd.OutOrStdout()
		if renderStdout {
			doc, err := c.Planning.Document(ctx, last.SessionID)
			if err != nil {
				return err
			}
			fmt.Fprint(out, doc)
			return nil
		}
		if last.Export == nil {
			return fmt.Errorf("plan document was not written")
		}
		if last.Export.Error != "" {
			return fmt.Errorf("write %s: %s", last.Export.Path, last.Export.Error)
		}
		fmt.Fprintln(out, mcppresenter.FormatExport(last.Export))
		fmt.Fprintf(out, "- **Tasks**: %d (%d root, %d leaf)\n", last.Summary.TotalTasks, last.Summary.RootTasks, last.Summary.LeafTasks)
		return nil
	},
}

// planSteps decodes a plan file into numbered planning steps and the output
// path it names, if any.
func planSteps(data []byte, name string) ([]planning.StepInput, string, error) {
	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, "", fmt.Errorf("parse plan file: %w", err)
	}
	steps := pf.Steps
	if len(steps) == 0 {
		if len(pf.Tasks) == 0 {
			return nil, "", fmt.Errorf("plan file %s has no steps or wbs_items", name)
		}
		steps = []planning.StepInput{{
			Text:  "Imported from " + filepath.Base(name),
			Tasks: pf.Tasks,
		}}
	}

	for i := range steps {
		s := &steps[i]
		s.StepNumber = i + 1
		s.TotalSteps = len(steps)
		if strings.TrimSpace(s.Text) == "" {
			s.Text = fmt.Sprintf("Step %d", i+1)
		}
		if i == 0 {
			if s.ProjectName == "" {
				s.ProjectName = pf.ProjectName
			}
			if s.ProblemStatement == "" {
				s.ProblemStatement = pf.ProblemStatement
			}
			if s.ProblemStatement == "" {
				s.ProblemStatement = s.ProjectName
			}
		}
	}
	return steps, pf.OutputPath, nil
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file or directory (default: planning.output_dir)")
	renderCmd.Flags().BoolVar(&renderStdout, "stdout", false, "print the document instead of writing it")
	rootCmd.AddCommand(renderCmd)
}
