package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/session"
	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/internal/util"
	"github.com/josephgoksu/wbsplan/types"
)

// Journal receives an audit record of plans and steps. *journal.SQLiteJournal
// satisfies it.
type Journal interface {
	RecordSession(ctx context.Context, e journal.SessionEntry) error
	RecordStep(ctx context.Context, e journal.StepEntry) error
}

// Options configures a Manager.
type Options struct {
	Store           *document.Store
	Journal         Journal
	Logger          *slog.Logger
	Limits          task.Limits
	OutputDir       string
	WBSFilename     string
	ExportByDefault bool
	Now             func() time.Time
}

// Manager owns all planning sessions of a process.
type Manager struct {
	plans   *session.Store[*Plan]
	store   *document.Store
	journal Journal
	log     *slog.Logger
	limits  task.Limits

	outputDir       string
	wbsFilename     string
	exportByDefault bool
	now             func() time.Time
}

// NewManager creates a planning manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		plans:           session.NewStore[*Plan](),
		store:           opts.Store,
		journal:         opts.Journal,
		log:             opts.Logger,
		limits:          opts.Limits,
		outputDir:       opts.OutputDir,
		wbsFilename:     opts.WBSFilename,
		exportByDefault: opts.ExportByDefault,
		now:             opts.Now,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.wbsFilename == "" {
		m.wbsFilename = "WBS.md"
	}
	return m
}

// Step applies one planning step. A plan is resolved from the session id, or
// created when a problem statement is given, or else the most recently updated
// active plan is used.
func (m *Manager) Step(ctx context.Context, in StepInput) (*StepResult, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	switch {
	case in.SessionID != "":
		id, err := m.resolve(in.SessionID)
		if err != nil {
			return nil, err
		}
		return m.stepExisting(ctx, id, in)
	case in.ProblemStatement != "":
		return m.stepNew(ctx, in)
	}

	id, ok := m.latestActive(ctx)
	if !ok {
		return nil, types.Validation("problem_statement is required to start a planning session")
	}
	return m.stepExisting(ctx, id, in)
}

func (m *Manager) stepNew(ctx context.Context, in StepInput) (*StepResult, error) {
	now := m.now()
	p := &Plan{
		ID:               util.NewID(util.PlanPrefix),
		ProblemStatement: in.ProblemStatement,
		ProjectName:      in.ProjectName,
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.ProjectName == "" {
		p.ProjectName = defaultProjectName
	}

	// Nothing is stored until the first step is accepted.
	res, err := m.apply(ctx, p, in)
	if err != nil {
		return nil, err
	}
	if err := m.plans.Create(p.ID, p); err != nil {
		return nil, fmt.Errorf("store plan: %w", err)
	}
	m.log.Info("planning session created", "session_id", p.ID, "project", p.ProjectName)
	if m.journal != nil {
		entry := journal.SessionEntry{ID: p.ID, Kind: journal.KindPlanning, ProjectName: p.ProjectName, CreatedAt: p.CreatedAt}
		if err := m.journal.RecordSession(ctx, entry); err != nil {
			m.log.Warn("journal session record failed", "session_id", p.ID, "error", err)
		}
	}
	m.recordStep(ctx, p.ID, in, res)
	return res, nil
}

func (m *Manager) stepExisting(ctx context.Context, id string, in StepInput) (*StepResult, error) {
	var res *StepResult
	err := m.plans.With(ctx, id, func(p **Plan) error {
		var err error
		res, err = m.apply(ctx, *p, in)
		return err
	})
	if err != nil {
		return nil, m.mapStoreError(id, err)
	}
	m.recordStep(ctx, id, in, res)
	return res, nil
}

// apply validates the step against p and, only if everything passes, commits
// it. A rejected step leaves p unchanged.
func (m *Manager) apply(ctx context.Context, p *Plan, in StepInput) (*StepResult, error) {
	switch p.Status {
	case StatusCompleted:
		return nil, types.Precondition(fmt.Sprintf("plan %s is completed", p.ID))
	case StatusPaused:
		return nil, types.Precondition(fmt.Sprintf("plan %s is paused; resume it first", p.ID))
	}

	if in.IsRevision {
		if in.RevisesStep == 0 || !p.hasStep(in.RevisesStep) {
			return nil, types.Validation(fmt.Sprintf("revises_step %d does not reference a recorded step", in.RevisesStep))
		}
	}

	newBranch := false
	if (in.BranchFromStep > 0) != (in.BranchID != "") {
		return nil, types.Validation("branch_from_step and branch_id must be given together")
	}
	if in.BranchID != "" {
		if !p.hasStep(in.BranchFromStep) {
			return nil, types.Validation(fmt.Sprintf("branch_from_step %d does not reference a recorded step", in.BranchFromStep))
		}
		if _, ok := p.Branches[in.BranchID]; !ok {
			newBranch = true
			if m.limits.MaxBranches > 0 && len(p.BranchOrder) >= m.limits.MaxBranches {
				return nil, types.Validation(fmt.Sprintf("plan already has the maximum of %d branches", m.limits.MaxBranches))
			}
		}
	}

	batch, rep := task.ValidateBatch(p.Tasks, in.Tasks, m.limits)
	if !rep.OK() {
		return nil, types.Validation("task batch rejected", rep.Errors...)
	}
	merged, added := task.Merge(p.Tasks, batch)
	if m.limits.MaxTasks > 0 && len(merged) > m.limits.MaxTasks {
		return nil, types.Validation(fmt.Sprintf("plan would have %d tasks, above the maximum of %d", len(merged), m.limits.MaxTasks))
	}
	if cycles := task.DetectCycles(merged); len(cycles) > 0 {
		return nil, types.Structural("dependency cycle detected", cycles...)
	}
	task.LinkChildren(merged)

	// Commit.
	now := m.now()
	step := Step{
		Number:            in.StepNumber,
		TotalSteps:        in.TotalSteps,
		Text:              in.Text,
		NextStepNeeded:    in.NextStepNeeded,
		TasksAdded:        added,
		Refine:            in.Refine,
		IsRevision:        in.IsRevision,
		RevisesStep:       in.RevisesStep,
		BranchFromStep:    in.BranchFromStep,
		BranchID:          in.BranchID,
		ActionRequired:    in.ActionRequired,
		ActionType:        in.ActionType,
		ActionDescription: in.ActionDescription,
		Timestamp:         now,
	}
	p.Tasks = merged
	p.Steps = append(p.Steps, step)
	if in.BranchID != "" {
		if p.Branches == nil {
			p.Branches = make(map[string][]Step)
		}
		if newBranch {
			p.BranchOrder = append(p.BranchOrder, in.BranchID)
		}
		p.Branches[in.BranchID] = append(p.Branches[in.BranchID], step)
	}
	if in.ProjectName != "" && p.ProjectName == defaultProjectName {
		p.ProjectName = in.ProjectName
	}
	if !in.NextStepNeeded {
		p.Status = StatusCompleted
	}
	p.UpdatedAt = now

	log := m.log.With("session_id", p.ID, "step", in.StepNumber)
	for _, w := range rep.Warnings {
		log.Warn("planning step warning", "warning", w)
	}
	log.Info("planning step accepted", "tasks_added", len(added), "total_tasks", len(p.Tasks), "status", p.Status)

	res := &StepResult{
		SessionID:         p.ID,
		ProjectName:       p.ProjectName,
		Status:            p.Status,
		StepNumber:        in.StepNumber,
		TotalSteps:        in.TotalSteps,
		NextStepNeeded:    in.NextStepNeeded,
		StepsRecorded:     len(p.Steps),
		TasksAdded:        added,
		Branches:          append([]string(nil), p.BranchOrder...),
		Summary:           Summarize(p.Tasks),
		Warnings:          rep.Warnings,
		ActionRequired:    in.ActionRequired,
		ActionType:        in.ActionType,
		ActionDescription: in.ActionDescription,
	}

	if m.shouldExport(in, len(added) > 0) {
		res.Export = m.export(ctx, p, in.OutputPath)
		if res.Export.Error != "" {
			res.Warnings = append(res.Warnings, "document export failed: "+res.Export.Error)
		}
	}
	return res, nil
}

// shouldExport writes progressively when tasks were added, and always when the
// plan completes or markdown is requested explicitly.
func (m *Manager) shouldExport(in StepInput, tasksAdded bool) bool {
	if !in.NextStepNeeded || in.GenerateMarkdown {
		return true
	}
	toFile := m.exportByDefault
	if in.ExportToFile != nil {
		toFile = *in.ExportToFile
	}
	return toFile && tasksAdded
}

func (m *Manager) recordStep(ctx context.Context, id string, in StepInput, res *StepResult) {
	if m.journal == nil {
		return
	}
	entry := journal.StepEntry{
		SessionID:   id,
		StepNumber:  in.StepNumber,
		TotalSteps:  in.TotalSteps,
		Text:        in.Text,
		TasksAdded:  len(res.TasksAdded),
		IsRevision:  in.IsRevision,
		RevisesStep: in.RevisesStep,
		BranchID:    in.BranchID,
		CreatedAt:   m.now(),
	}
	if err := m.journal.RecordStep(ctx, entry); err != nil {
		m.log.Warn("journal step record failed", "session_id", id, "error", err)
	}
}

// Get returns a copy of the plan identified by id or a unique id prefix.
func (m *Manager) Get(ctx context.Context, idOrPrefix string) (*Plan, error) {
	id, err := m.resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	var out *Plan
	err = m.plans.With(ctx, id, func(p **Plan) error {
		out = (*p).clone()
		return nil
	})
	if err != nil {
		return nil, m.mapStoreError(id, err)
	}
	return out, nil
}

// List returns all plans, most recently updated first.
func (m *Manager) List(ctx context.Context) ([]PlanSummary, error) {
	out := make([]PlanSummary, 0, m.plans.Len())
	for _, id := range m.plans.Keys() {
		err := m.plans.With(ctx, id, func(p **Plan) error {
			out = append(out, (*p).summary())
			return nil
		})
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Pause stops an active plan from accepting steps.
func (m *Manager) Pause(ctx context.Context, idOrPrefix string) (*PlanSummary, error) {
	return m.transition(ctx, idOrPrefix, StatusActive, StatusPaused)
}

// Resume reactivates a paused plan.
func (m *Manager) Resume(ctx context.Context, idOrPrefix string) (*PlanSummary, error) {
	return m.transition(ctx, idOrPrefix, StatusPaused, StatusActive)
}

func (m *Manager) transition(ctx context.Context, idOrPrefix string, from, to Status) (*PlanSummary, error) {
	id, err := m.resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	var out PlanSummary
	err = m.plans.With(ctx, id, func(pp **Plan) error {
		p := *pp
		if p.Status != from {
			return types.Precondition(fmt.Sprintf("plan %s is %s, expected %s", p.ID, p.Status, from))
		}
		p.Status = to
		p.UpdatedAt = m.now()
		out = p.summary()
		return nil
	})
	if err != nil {
		return nil, m.mapStoreError(id, err)
	}
	m.log.Info("planning session status changed", "session_id", id, "status", to)
	return &out, nil
}

// latestActive returns the most recently updated active plan.
func (m *Manager) latestActive(ctx context.Context) (string, bool) {
	var (
		bestID string
		best   time.Time
	)
	for _, id := range m.plans.Keys() {
		_ = m.plans.With(ctx, id, func(p **Plan) error {
			if (*p).Status == StatusActive && (bestID == "" || (*p).UpdatedAt.After(best)) {
				bestID, best = id, (*p).UpdatedAt
			}
			return nil
		})
	}
	return bestID, bestID != ""
}

func (m *Manager) resolve(idOrPrefix string) (string, error) {
	id, err := m.plans.Resolve(idOrPrefix)
	if err != nil {
		if errors.Is(err, session.ErrAmbiguous) {
			return "", types.Validation(err.Error())
		}
		return "", types.NotFound(fmt.Sprintf("planning session %s not found", idOrPrefix))
	}
	return id, nil
}

func (m *Manager) mapStoreError(id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return types.NotFound(fmt.Sprintf("planning session %s not found", id))
	}
	return err
}

func validateInput(in *StepInput) error {
	err := task.Validator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, task.FormatFieldError(fe))
	}
	return types.Validation("invalid planning step", msgs...)
}
