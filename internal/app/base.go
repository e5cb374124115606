// Package app wires the engine's components together. CLI commands and the
// MCP server both build a Context and stay thin adapters over it.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/josephgoksu/wbsplan/internal/config"
	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/docwatch"
	"github.com/josephgoksu/wbsplan/internal/execution"
	"github.com/josephgoksu/wbsplan/internal/journal"
	"github.com/josephgoksu/wbsplan/internal/planning"
	"github.com/josephgoksu/wbsplan/types"
)

// Context holds shared dependencies for all app operations.
type Context struct {
	Config    *types.AppConfig
	Logger    *slog.Logger
	Documents *document.Store
	Journal   *journal.SQLiteJournal
	Watcher   *docwatch.Watcher
	Planning  *planning.Manager
	Execution *execution.Manager
}

// Options overrides how a Context is built. The zero value uses the OS
// filesystem and enables the journal and watcher as configured.
type Options struct {
	Fs     afero.Fs
	Logger *slog.Logger
	// SkipJournal leaves the journal closed even when journal.path is set.
	SkipJournal bool
	// SkipWatcher disables document watching regardless of configuration.
	SkipWatcher bool
}

// NewContext builds the planning and execution managers from cfg.
func NewContext(cfg *types.AppConfig, opts Options) (*Context, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	c := &Context{
		Config: cfg,
		Logger: log,
		Documents: document.NewStore(fsys, document.StoreOptions{
			WriteTimeout: cfg.Document.WriteTimeout,
			WriteRetries: cfg.Document.WriteRetries,
			Logger:       log,
		}),
	}

	if cfg.Journal.Path != "" && !opts.SkipJournal {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		c.Journal = j
	}

	if cfg.Execution.WatchDocuments && !opts.SkipWatcher {
		w, err := docwatch.New(log)
		if err != nil {
			// Drift detection is best-effort.
			log.Warn("document watcher unavailable", "error", err)
		} else {
			c.Watcher = w
		}
	}

	popts := planning.Options{
		Store:           c.Documents,
		Logger:          log.With("component", "planning"),
		Limits:          config.Limits(cfg),
		OutputDir:       cfg.Planning.OutputDir,
		WBSFilename:     cfg.Planning.WBSFilename,
		ExportByDefault: cfg.Planning.ExportByDefault,
	}
	eopts := execution.Options{
		Store:  c.Documents,
		Logger: log.With("component", "execution"),
		Heuristic: execution.Heuristic{
			Keywords:        cfg.Execution.ComplexityKeywords,
			LongDescription: cfg.Execution.LongDescriptionThreshold,
		},
		TrackingDir:     cfg.Execution.TrackingDir,
		StatusFormat:    cfg.Execution.StatusFormat,
		ProgressReports: cfg.Execution.ProgressReports,
	}
	// Assign interfaces only when set so the managers never see a typed nil.
	if c.Journal != nil {
		popts.Journal = c.Journal
		eopts.Journal = c.Journal
	}
	if c.Watcher != nil {
		eopts.Watcher = c.Watcher
	}

	c.Planning = planning.NewManager(popts)
	c.Execution = execution.NewManager(eopts)
	return c, nil
}

// Close releases the watcher and journal.
func (c *Context) Close() error {
	var errs []error
	if c.Watcher != nil {
		errs = append(errs, c.Watcher.Close())
	}
	if c.Journal != nil {
		errs = append(errs, c.Journal.Close())
	}
	return errors.Join(errs...)
}
