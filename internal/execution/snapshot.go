package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status snapshot formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "markdown"
)

// Snapshot is the progress report written to the tracking directory.
type Snapshot struct {
	Status      StatusResult `json:"status" yaml:"status"`
	History     []Record     `json:"history" yaml:"history"`
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
}

// RenderSnapshot encodes snap in format and returns the file extension to use.
func RenderSnapshot(snap Snapshot, format string) ([]byte, string, error) {
	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode snapshot: %w", err)
		}
		return append(data, '\n'), ".json", nil
	case FormatYAML:
		data, err := yaml.Marshal(snap)
		if err != nil {
			return nil, "", fmt.Errorf("encode snapshot: %w", err)
		}
		return data, ".yaml", nil
	case FormatMarkdown:
		return []byte(snapshotMarkdown(snap)), ".md", nil
	default:
		return nil, "", fmt.Errorf("unknown status format %q", format)
	}
}

func snapshotMarkdown(snap Snapshot) string {
	st := snap.Status
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Execution Status: %s\n\n", st.ProjectName)
	fmt.Fprintf(&sb, "- **Session ID**: %s\n", st.SessionID)
	fmt.Fprintf(&sb, "- **Document**: %s\n", st.DocumentPath)
	fmt.Fprintf(&sb, "- **Progress**: %d/%d (%d%%)\n", st.Progress.Completed, st.Progress.Total, st.Progress.Percent)
	fmt.Fprintf(&sb, "- **Executable**: %d\n", st.Executable)
	fmt.Fprintf(&sb, "- **Blocked**: %d\n", st.Blocked)
	if st.DocumentChanged {
		sb.WriteString("- **Document changed externally**: yes\n")
	}
	if !snap.GeneratedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Generated**: %s\n", snap.GeneratedAt.UTC().Format(time.RFC3339))
	}

	sb.WriteString("\n## History\n\n")
	if len(snap.History) == 0 {
		sb.WriteString("_No tasks completed yet._\n")
	}
	for _, r := range snap.History {
		fmt.Fprintf(&sb, "%d. **%s** (%s)", r.Step, r.Title, r.TaskID)
		if len(r.AutoCompleted) > 0 {
			fmt.Fprintf(&sb, " - also completed: %s", strings.Join(r.AutoCompleted, ", "))
		}
		sb.WriteString("\n")
		if r.Rationale != "" {
			fmt.Fprintf(&sb, "   - Rationale: %s\n", r.Rationale)
		}
		if r.ActionNote != "" {
			fmt.Fprintf(&sb, "   - Note: %s\n", r.ActionNote)
		}
	}
	return sb.String()
}

// writeSnapshot stores the session's progress report. Failures are returned
// for the caller to downgrade.
func (m *Manager) writeSnapshot(ctx context.Context, s *Session) (string, error) {
	snap := Snapshot{
		Status:      m.status(s),
		History:     append([]Record(nil), s.History...),
		GeneratedAt: m.now(),
	}
	data, ext, err := RenderSnapshot(snap, m.statusFormat)
	if err != nil {
		return "", err
	}
	path := filepath.Join(m.trackingDir, s.ID+"_status"+ext)
	if _, err := m.store.Write(ctx, path, data); err != nil {
		return "", err
	}
	return path, nil
}
