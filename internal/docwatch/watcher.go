// Package docwatch notices when a plan document is changed by someone other
// than this process. Execution sessions keep in-memory state, so an external
// edit means the document and the session have drifted.
package docwatch

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"
)

// knownHashLimit bounds how many recent content hashes are remembered per file.
const knownHashLimit = 16

// ChangeHandler is called with the cleaned path of a drifted document.
type ChangeHandler func(path string)

type target struct {
	handlers map[string]ChangeHandler
	known    []string
}

// Watcher watches document files through their parent directories, because
// atomic rewrites replace the file and would drop a per-file watch.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu      sync.Mutex
	targets map[string]*target
	dirs    map[string]int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a watcher.
func New(log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher: fw,
		log:     log,
		targets: make(map[string]*target),
		dirs:    make(map[string]int),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Add(1)
	go w.eventLoop()
	return w, nil
}

// Watch registers onChange for path under key (usually a session id). The
// current content is recorded as known.
func (w *Watcher) Watch(path, key string, onChange ChangeHandler) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.targets[abs]
	if !ok {
		if w.dirs[dir] == 0 {
			if err := w.watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
		}
		w.dirs[dir]++
		t = &target{handlers: make(map[string]ChangeHandler)}
		w.targets[abs] = t
	}
	t.handlers[key] = onChange
	if data, err := os.ReadFile(abs); err == nil {
		t.remember(Hash(data))
	}
	return nil
}

// Unwatch removes the handler registered under key for path.
func (w *Watcher) Unwatch(path, key string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	t, ok := w.targets[abs]
	if !ok {
		return
	}
	delete(t.handlers, key)
	if len(t.handlers) > 0 {
		return
	}
	delete(w.targets, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Expect records content this process is about to write so the resulting
// events are not reported as drift.
func (w *Watcher) Expect(path string, data []byte) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.targets[abs]; ok {
		t.remember(Hash(data))
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("document watch error", "error", err)
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	t, ok := w.targets[path]
	w.mu.Unlock()
	if !ok {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	sum := Hash(data)

	w.mu.Lock()
	if t.knows(sum) {
		w.mu.Unlock()
		return
	}
	t.remember(sum)
	handlers := make([]ChangeHandler, 0, len(t.handlers))
	for _, h := range t.handlers {
		handlers = append(handlers, h)
	}
	w.mu.Unlock()

	w.log.Warn("plan document changed externally", "path", path)
	for _, h := range handlers {
		h(path)
	}
}

func (t *target) knows(sum string) bool {
	for _, k := range t.known {
		if k == sum {
			return true
		}
	}
	return false
}

func (t *target) remember(sum string) {
	if t.knows(sum) {
		return
	}
	t.known = append(t.known, sum)
	if len(t.known) > knownHashLimit {
		t.known = t.known[len(t.known)-knownHashLimit:]
	}
}

// Hash returns the hex blake3 digest of data.
func Hash(data []byte) string {
	h := blake3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
