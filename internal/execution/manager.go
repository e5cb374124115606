package execution

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/docwatch"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/session"
	"github.com/josephgoksu/wbsplan/internal/task"
	"github.com/josephgoksu/wbsplan/internal/util"
	"github.com/josephgoksu/wbsplan/types"
)

// Journal receives an audit record of sessions and completions.
// *journal.SQLiteJournal satisfies it.
type Journal interface {
	RecordSession(ctx context.Context, e journal.SessionEntry) error
	RecordCompletion(ctx context.Context, e journal.CompletionEntry) error
}

// Watcher reports external edits of documents under execution.
// *docwatch.Watcher satisfies it.
type Watcher interface {
	Watch(path, key string, onChange docwatch.ChangeHandler) error
	Unwatch(path, key string)
	Expect(path string, data []byte)
}

// Options configures a Manager.
type Options struct {
	Store           *document.Store
	Journal         Journal
	Watcher         Watcher
	Logger          *slog.Logger
	Heuristic       Heuristic
	TrackingDir     string
	StatusFormat    string
	ProgressReports bool
	Now             func() time.Time
}

// Manager owns all execution sessions of a process.
type Manager struct {
	sessions *session.Store[*Session]
	store    *document.Store
	journal  Journal
	watcher  Watcher
	log      *slog.Logger
	heur     Heuristic

	trackingDir     string
	statusFormat    string
	progressReports bool
	now             func() time.Time
}

// NewManager creates an execution manager.
func NewManager(opts Options) *Manager {
	m := &Manager{
		sessions:        session.NewStore[*Session](),
		store:           opts.Store,
		journal:         opts.Journal,
		watcher:         opts.Watcher,
		log:             opts.Logger,
		heur:            opts.Heuristic,
		trackingDir:     opts.TrackingDir,
		statusFormat:    opts.StatusFormat,
		progressReports: opts.ProgressReports,
		now:             opts.Now,
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Begin parses the document at path and starts a session over it. Tasks
// already checked in the document start out completed.
func (m *Manager) Begin(ctx context.Context, path string) (*StartResult, error) {
	data, err := m.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NotFound(fmt.Sprintf("plan document %s not found", path))
		}
		return nil, types.IO("read plan document", err)
	}

	parsed := document.Parse(string(data))
	if len(parsed.Tasks) == 0 {
		return nil, types.Validation(fmt.Sprintf("plan document %s contains no tasks", path), parsed.Warnings...)
	}
	if cycles := task.DetectCycles(parsed.Tasks); len(cycles) > 0 {
		return nil, types.Structural("plan document has a dependency cycle", cycles...)
	}

	now := m.now()
	s := &Session{
		ID:               util.NewID(util.ExecPrefix),
		DocumentPath:     path,
		ProjectName:      parsed.ProjectName,
		ProblemStatement: parsed.ProblemStatement,
		Tasks:            make(map[string]*task.Task, len(parsed.Tasks)),
		Numbers:          make(map[string]string, len(parsed.Tasks)),
		Warnings:         append([]string(nil), parsed.Warnings...),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	numbers := task.NewNumberer(parsed.Tasks)
	for i := range parsed.Tasks {
		t := parsed.Tasks[i].Clone()
		if _, dup := s.Tasks[t.ID]; dup {
			continue
		}
		s.Tasks[t.ID] = &t
		s.Order = append(s.Order, t.ID)
		s.Numbers[t.ID] = numbers.Number(t.ID)
		if t.Completed {
			s.Completed = append(s.Completed, t.ID)
		}
	}
	for _, id := range s.Order {
		for _, dep := range s.Tasks[id].Dependencies {
			if _, ok := s.Tasks[dep]; !ok {
				s.Warnings = append(s.Warnings, fmt.Sprintf("task %s: dependency %s is not in the document and is treated as satisfied", id, dep))
			}
		}
	}

	// Parents whose subtrees are already checked complete now; nothing else
	// would complete them.
	var reconciled []string
	for _, id := range s.sortedIDs() {
		if t := s.Tasks[id]; t.Completed && t.IsLeaf() {
			reconciled = append(reconciled, s.propagate(t)...)
		}
	}
	if len(reconciled) > 0 {
		marks := make([]document.Mark, 0, len(reconciled))
		for _, id := range reconciled {
			marks = append(marks, document.Mark{ID: id, Title: s.Tasks[id].Title})
		}
		_, warns := m.writeBack(ctx, s, marks)
		s.Warnings = append(s.Warnings, warns...)
	}

	if err := m.sessions.Create(s.ID, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	log := m.log.With("session_id", s.ID)
	for _, w := range s.Warnings {
		log.Warn("plan document warning", "warning", w)
	}
	log.Info("execution session started", "document", path, "tasks", len(s.Tasks), "completed", len(s.Completed))

	if m.watcher != nil {
		id := s.ID
		if err := m.watcher.Watch(path, id, func(string) { m.markDrift(id) }); err != nil {
			log.Warn("document watch failed", "error", err)
		}
	}
	if m.journal != nil {
		entry := journal.SessionEntry{ID: s.ID, Kind: journal.KindExecution, ProjectName: s.ProjectName, DocumentPath: path, CreatedAt: now}
		if err := m.journal.RecordSession(ctx, entry); err != nil {
			log.Warn("journal session record failed", "error", err)
		}
	}

	res := &StartResult{
		SessionID:        s.ID,
		ProjectName:      s.ProjectName,
		ProblemStatement: s.ProblemStatement,
		DocumentPath:     path,
		Progress:         s.progress(),
		Executable:       len(s.executable()),
		Reconciled:       reconciled,
		Warnings:         s.Warnings,
	}
	for _, t := range s.available() {
		res.Available = append(res.Available, *s.view(t))
	}
	res.Message = fmt.Sprintf("Execution session started: %d tasks available, %d ready to execute", len(res.Available), res.Executable)
	return res, nil
}

// Advance offers the first executable task and makes it the session's current
// task. The session is done when nothing is executable.
func (m *Manager) Advance(ctx context.Context, idOrPrefix string) (*AdvanceResult, error) {
	var res *AdvanceResult
	err := m.with(ctx, idOrPrefix, func(s *Session) error {
		ready := s.executable()
		res = &AdvanceResult{
			SessionID:  s.ID,
			Executable: len(ready),
			Progress:   s.progress(),
		}
		if len(ready) == 0 {
			res.Done = true
			res.Blocked = len(s.available())
			switch {
			case res.Blocked > 0:
				res.Message = fmt.Sprintf("No executable tasks: %d remaining tasks are blocked by dependencies", res.Blocked)
			case res.Progress.Completed == res.Progress.Total:
				res.Message = "All tasks completed!"
			default:
				res.Message = fmt.Sprintf("No executable tasks: %d tasks remain open", res.Progress.Total-res.Progress.Completed)
			}
			s.CurrentTaskID = ""
			return nil
		}
		head := ready[0]
		s.CurrentTaskID = head.ID
		s.UpdatedAt = m.now()
		res.Task = s.view(head)
		res.Complex = m.heur.IsComplex(head)
		if len(ready) > 1 {
			res.NextTask = s.view(ready[1])
		}
		res.Message = fmt.Sprintf("Next task: %s %s", s.Numbers[head.ID], head.Title)
		m.log.Info("task offered", "session_id", s.ID, "task_id", head.ID, "complex", res.Complex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Complete records that taskID was executed. The task must be an incomplete
// leaf whose dependencies are complete. Ancestors whose subtrees become
// complete are completed too, and all of them are checked in the document.
func (m *Manager) Complete(ctx context.Context, idOrPrefix, taskID, rationale, note string) (*CompleteResult, error) {
	var (
		res   *CompleteResult
		entry journal.CompletionEntry
	)
	err := m.with(ctx, idOrPrefix, func(s *Session) error {
		t, ok := s.Tasks[taskID]
		switch {
		case !ok:
			return types.Precondition(fmt.Sprintf("task %s is not in this session", taskID))
		case t.Completed:
			return types.Precondition(fmt.Sprintf("task %s is already completed", taskID))
		case !t.IsLeaf():
			return types.Precondition(fmt.Sprintf("task %s has subtasks; complete its leaf tasks instead", taskID))
		}
		if pending := s.pendingDependencies(t); len(pending) > 0 {
			return types.Precondition(fmt.Sprintf("task %s is blocked by incomplete dependencies", taskID), pending...)
		}

		now := m.now()
		t.Completed = true
		s.Completed = append(s.Completed, t.ID)
		auto := s.propagate(t)
		rec := Record{
			Step:          len(s.History) + 1,
			TaskID:        t.ID,
			Title:         t.Title,
			Rationale:     rationale,
			ActionNote:    note,
			AutoCompleted: auto,
			Timestamp:     now,
		}
		s.History = append(s.History, rec)
		if s.CurrentTaskID == t.ID {
			s.CurrentTaskID = ""
		}
		s.UpdatedAt = now

		log := m.log.With("session_id", s.ID, "task_id", t.ID)
		log.Info("task completed", "auto_completed", auto)

		res = &CompleteResult{
			SessionID:     s.ID,
			TaskID:        t.ID,
			Title:         t.Title,
			AutoCompleted: auto,
		}

		marks := []document.Mark{{ID: t.ID, Title: t.Title}}
		for _, id := range auto {
			marks = append(marks, document.Mark{ID: id, Title: s.Tasks[id].Title})
		}
		updated, warns := m.writeBack(ctx, s, marks)
		res.DocumentUpdated = updated
		res.Warnings = append(res.Warnings, warns...)

		if m.progressReports && m.trackingDir != "" {
			if path, err := m.writeSnapshot(ctx, s); err != nil {
				log.Warn("status snapshot failed", "error", err)
				res.Warnings = append(res.Warnings, "status snapshot failed: "+err.Error())
			} else {
				log.Debug("status snapshot written", "path", path)
			}
		}

		res.Progress = s.progress()
		ready := s.executable()
		if len(ready) > 0 {
			res.NextTask = s.view(ready[0])
		}
		res.Done = len(ready) == 0
		switch {
		case res.Progress.Completed == res.Progress.Total:
			res.Message = fmt.Sprintf("Task completed: %s. All tasks completed!", t.Title)
		case res.Done:
			res.Message = fmt.Sprintf("Task completed: %s. No further tasks are executable", t.Title)
		default:
			res.Message = fmt.Sprintf("Task completed: %s. Next: %s", t.Title, res.NextTask.Title)
		}

		entry = journal.CompletionEntry{
			SessionID:     s.ID,
			Step:          rec.Step,
			TaskID:        t.ID,
			Title:         t.Title,
			Rationale:     rationale,
			ActionNote:    note,
			AutoCompleted: auto,
			CreatedAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if m.journal != nil {
		if err := m.journal.RecordCompletion(ctx, entry); err != nil {
			m.log.Warn("journal completion record failed", "session_id", res.SessionID, "error", err)
		}
	}
	return res, nil
}

// writeBack checks the boxes for marks in the session document. Failures are
// returned as warnings; the in-memory completion stands either way.
func (m *Manager) writeBack(ctx context.Context, s *Session, marks []document.Mark) (bool, []string) {
	var (
		warnings []string
		changed  int
	)
	_, err := m.store.Update(ctx, s.DocumentPath, func(current []byte) ([]byte, error) {
		warnings, changed = nil, 0
		if current == nil {
			return nil, fmt.Errorf("plan document %s is missing", s.DocumentPath)
		}
		out, n, missing := document.SetCheckboxes(string(current), marks)
		changed = n
		for _, mk := range missing {
			warnings = append(warnings, fmt.Sprintf("task line for %s (%q) not found in document", mk.ID, mk.Title))
		}
		if changed == 0 {
			return nil, nil
		}
		if m.watcher != nil {
			m.watcher.Expect(s.DocumentPath, []byte(out))
		}
		return []byte(out), nil
	})
	if err != nil {
		m.log.Warn("document write-back failed", "session_id", s.ID, "path", s.DocumentPath, "error", err)
		return false, append(warnings, "document write-back failed: "+err.Error())
	}
	for _, w := range warnings {
		m.log.Warn("document write-back warning", "session_id", s.ID, "warning", w)
	}
	return changed > 0, warnings
}

// Status returns a view of the session.
func (m *Manager) Status(ctx context.Context, idOrPrefix string) (*StatusResult, error) {
	var res StatusResult
	err := m.with(ctx, idOrPrefix, func(s *Session) error {
		res = m.status(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *Manager) status(s *Session) StatusResult {
	ready := s.executable()
	avail := s.available()
	res := StatusResult{
		SessionID:       s.ID,
		ProjectName:     s.ProjectName,
		DocumentPath:    s.DocumentPath,
		Progress:        s.progress(),
		Executable:      len(ready),
		Blocked:         len(avail) - len(ready),
		HistoryLength:   len(s.History),
		DocumentChanged: s.DocumentChanged,
		Done:            len(ready) == 0,
		UpdatedAt:       s.UpdatedAt,
	}
	res.Remaining = res.Progress.Total - res.Progress.Completed
	if s.CurrentTaskID != "" {
		res.CurrentTask = s.view(s.Tasks[s.CurrentTaskID])
	}
	if len(ready) > 0 {
		res.NextTask = s.view(ready[0])
	}
	return res
}

// History returns a copy of the session's completion records.
func (m *Manager) History(ctx context.Context, idOrPrefix string) ([]Record, error) {
	var out []Record
	err := m.with(ctx, idOrPrefix, func(s *Session) error {
		out = append([]Record(nil), s.History...)
		return nil
	})
	return out, err
}

// List returns all sessions, oldest first.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, m.sessions.Len())
	for _, id := range m.sessions.Keys() {
		err := m.sessions.With(ctx, id, func(s **Session) error {
			out = append(out, (*s).summary())
			return nil
		})
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// End stops watching the session's document and forgets the session.
func (m *Manager) End(ctx context.Context, idOrPrefix string) error {
	var path, id string
	err := m.with(ctx, idOrPrefix, func(s *Session) error {
		path, id = s.DocumentPath, s.ID
		return nil
	})
	if err != nil {
		return err
	}
	if m.watcher != nil {
		m.watcher.Unwatch(path, id)
	}
	m.sessions.Delete(id)
	m.log.Info("execution session ended", "session_id", id)
	return nil
}

func (m *Manager) markDrift(id string) {
	_ = m.sessions.With(context.Background(), id, func(s **Session) error {
		if !(*s).DocumentChanged {
			(*s).DocumentChanged = true
			(*s).Warnings = append((*s).Warnings, "plan document was changed outside this session")
		}
		return nil
	})
}

func (m *Manager) with(ctx context.Context, idOrPrefix string, fn func(s *Session) error) error {
	id, err := m.sessions.Resolve(idOrPrefix)
	if err != nil {
		if errors.Is(err, session.ErrAmbiguous) {
			return types.Validation(err.Error())
		}
		return types.NotFound(fmt.Sprintf("execution session %s not found", idOrPrefix))
	}
	err = m.sessions.With(ctx, id, func(s **Session) error { return fn(*s) })
	if errors.Is(err, session.ErrNotFound) {
		return types.NotFound(fmt.Sprintf("execution session %s not found", id))
	}
	return err
}
