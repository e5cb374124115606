package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/afero"
)

// Default write-back bounds.
const (
	DefaultWriteTimeout = 5 * time.Second
	DefaultWriteRetries = 3
)

// WriteResult describes a completed write.
type WriteResult struct {
	Path  string `json:"path" yaml:"path"`
	Bytes int    `json:"bytes" yaml:"bytes"`
	Lines int    `json:"lines" yaml:"lines"`
}

// Store reads and writes plan documents on an afero filesystem.
type Store struct {
	fs      afero.Fs
	timeout time.Duration
	retries uint
	log     *slog.Logger
}

// StoreOptions bounds write-back.
type StoreOptions struct {
	WriteTimeout time.Duration
	WriteRetries int
	Logger       *slog.Logger
}

// NewStore creates a document store. Zero options fall back to defaults.
func NewStore(fsys afero.Fs, opts StoreOptions) *Store {
	s := &Store{
		fs:      fsys,
		timeout: opts.WriteTimeout,
		retries: DefaultWriteRetries,
		log:     opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultWriteTimeout
	}
	if opts.WriteRetries > 0 {
		s.retries = uint(opts.WriteRetries)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Fs exposes the underlying filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Read returns the document at path.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path is an existing regular file.
func (s *Store) Exists(path string) bool {
	ok, err := afero.Exists(s.fs, path)
	if err != nil || !ok {
		return false
	}
	isDir, _ := afero.IsDir(s.fs, path)
	return !isDir
}

// IsDir reports whether path is an existing directory.
func (s *Store) IsDir(path string) bool {
	ok, _ := afero.DirExists(s.fs, path)
	return ok
}

// Write replaces the document at path. The write is detached from ctx
// cancellation so an abandoned request cannot leave a half-written file, but it
// is bounded by the store timeout and retried with exponential backoff.
func (s *Store) Write(ctx context.Context, path string, data []byte) (WriteResult, error) {
	return s.Update(ctx, path, func([]byte) ([]byte, error) { return data, nil })
}

// Update performs a read-modify-write of path. fn receives the current bytes
// (nil when the file does not exist) and returns the new content. Returning
// nil content with a nil error skips the write.
func (s *Store) Update(ctx context.Context, path string, fn func(current []byte) ([]byte, error)) (WriteResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	attempt := 0
	op := func() (WriteResult, error) {
		attempt++
		current, err := afero.ReadFile(s.fs, path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return WriteResult{}, err
		}
		next, err := fn(current)
		if err != nil {
			return WriteResult{}, backoff.Permanent(err)
		}
		if next == nil {
			return WriteResult{Path: path, Bytes: len(current), Lines: countLines(current)}, nil
		}
		if err := s.writeAtomic(path, next); err != nil {
			s.log.Warn("document write failed", "path", path, "attempt", attempt, "error", err)
			return WriteResult{}, err
		}
		return WriteResult{Path: path, Bytes: len(next), Lines: countLines(next)}, nil
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(newBackOff()),
		backoff.WithMaxTries(s.retries),
		backoff.WithMaxElapsedTime(s.timeout),
	)
	if err != nil {
		return WriteResult{}, fmt.Errorf("write document %s: %w", path, err)
	}
	return res, nil
}

func (s *Store) writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte("\n"))
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
