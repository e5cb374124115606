package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

const (
	// CrashLogDir is the directory for crash logs relative to the base path
	CrashLogDir = "crash_logs"

	// MaxCrashLogs is the maximum number of crash logs to keep
	MaxCrashLogs = 10
)

// crashContext stores context for crash logging.
type crashContext struct {
	mu       sync.RWMutex
	command  string
	version  string
	basePath string
}

var globalContext = &crashContext{}

// SetBasePath sets the directory under which crash_logs/ is created.
func SetBasePath(path string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.basePath = path
}

// SetVersion sets the application version for crash logs.
func SetVersion(version string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.version = version
}

// SetCommand sets the current command being executed.
func SetCommand(cmd string) {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	globalContext.command = cmd
}

// HandlePanic recovers a panic, writes a crash log and exits with status 1.
// Usage: defer logger.HandlePanic()
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}
	path, err := WriteCrashLog(r, debug.Stack(), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[CRASH] failed to write crash log: %v\n", err)
		fmt.Fprintf(os.Stderr, "[CRASH] panic: %v\n%s\n", r, debug.Stack())
	} else {
		fmt.Fprintf(os.Stderr, "\nwbsplan crashed. A crash log has been saved to:\n  %s\n", path)
	}
	os.Exit(1)
}

// WriteCrashLog writes a crash report and prunes old ones. It returns the
// path written.
func WriteCrashLog(panicValue any, stack []byte, at time.Time) (string, error) {
	dir := crashLogDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create crash log dir: %w", err)
	}
	if err := cleanOldCrashLogs(dir, MaxCrashLogs-1); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] failed to clean old crash logs: %v\n", err)
	}

	globalContext.mu.RLock()
	command, version := globalContext.command, globalContext.version
	globalContext.mu.RUnlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "WBSPLAN CRASH LOG\n\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Version:   %s\n", version)
	fmt.Fprintf(&sb, "Command:   %s\n", command)
	fmt.Fprintf(&sb, "Go:        %s\n", runtime.Version())
	fmt.Fprintf(&sb, "OS/Arch:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "\nPanic: %v\n\n%s", panicValue, stack)

	path := filepath.Join(dir, fmt.Sprintf("crash_%s.log", at.Format("20060102_150405.000")))
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write crash log: %w", err)
	}
	return path, nil
}

func crashLogDir() string {
	globalContext.mu.RLock()
	base := globalContext.basePath
	globalContext.mu.RUnlock()
	if base == "" {
		base = ".wbsplan"
	}
	return filepath.Join(base, CrashLogDir)
}

// ListCrashLogs returns crash log paths, oldest first.
func ListCrashLogs() ([]string, error) {
	dir := crashLogDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var logs []string
	for _, e := range entries {
		if isCrashLog(e) {
			logs = append(logs, filepath.Join(dir, e.Name()))
		}
	}
	return logs, nil
}

// cleanOldCrashLogs keeps at most keep crash logs. os.ReadDir sorts by name,
// and names embed the timestamp, so the oldest come first.
func cleanOldCrashLogs(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var logs []os.DirEntry
	for _, e := range entries {
		if isCrashLog(e) {
			logs = append(logs, e)
		}
	}
	for i := 0; i < len(logs)-keep; i++ {
		if err := os.Remove(filepath.Join(dir, logs[i].Name())); err != nil {
			return fmt.Errorf("remove old crash log %s: %w", logs[i].Name(), err)
		}
	}
	return nil
}

func isCrashLog(e os.DirEntry) bool {
	return !e.IsDir() && strings.HasPrefix(e.Name(), "crash_") && strings.HasSuffix(e.Name(), ".log")
}
