package config

import (
	"os"
	"path/filepath"
)

// GetGlobalConfigDir returns the path to the global configuration directory (~/.wbsplan).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wbsplan"), nil
}

// DefaultJournalPath returns ~/.wbsplan/journal.db, or a local path when the
// home directory is unknown.
func DefaultJournalPath() string {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return filepath.Join(".wbsplan", "journal.db")
	}
	return filepath.Join(dir, "journal.db")
}
