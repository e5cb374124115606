package planning

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/josephgoksu/wbsplan/internal/document"
	"github.com/josephgoksu/wbsplan/internal/util"
)

// export renders p and writes it to its output path. The first export fixes
// the path for the rest of the plan's life.
func (m *Manager) export(ctx context.Context, p *Plan, callerPath string) *ExportResult {
	if p.OutputPath == "" {
		p.OutputPath = m.resolveOutputPath(p, callerPath)
	}
	out := &ExportResult{Path: p.OutputPath}
	if m.store == nil {
		out.Error = "no document store configured"
		return out
	}

	content := document.Render(sourceOf(p), document.RenderOptions{GeneratedAt: m.now()})
	wr, err := m.store.Write(ctx, p.OutputPath, []byte(content))
	if err != nil {
		m.log.Warn("plan export failed", "session_id", p.ID, "path", p.OutputPath, "error", err)
		out.Error = err.Error()
		return out
	}
	m.log.Debug("plan exported", "session_id", p.ID, "path", wr.Path, "bytes", wr.Bytes)
	out.Bytes = wr.Bytes
	out.Lines = wr.Lines
	return out
}

// resolveOutputPath picks the document path: the caller's path (a directory
// gets the default file name) or the configured output directory.
func (m *Manager) resolveOutputPath(p *Plan, callerPath string) string {
	name := util.SanitizeFilename(p.ProjectName) + "_" + m.wbsFilename
	if callerPath == "" {
		return filepath.Join(m.outputDir, name)
	}
	if strings.HasSuffix(callerPath, "/") || filepath.Ext(callerPath) == "" ||
		(m.store != nil && m.store.IsDir(callerPath)) {
		return filepath.Join(callerPath, name)
	}
	return callerPath
}

// Document renders the current plan document without writing it.
func (m *Manager) Document(ctx context.Context, idOrPrefix string) (string, error) {
	p, err := m.Get(ctx, idOrPrefix)
	if err != nil {
		return "", err
	}
	return document.Render(sourceOf(p), document.RenderOptions{GeneratedAt: m.now()}), nil
}

// Export writes the plan document now, regardless of step flags.
func (m *Manager) Export(ctx context.Context, idOrPrefix, outputPath string) (*ExportResult, error) {
	id, err := m.resolve(idOrPrefix)
	if err != nil {
		return nil, err
	}
	var out *ExportResult
	err = m.plans.With(ctx, id, func(p **Plan) error {
		out = m.export(ctx, *p, outputPath)
		return nil
	})
	if err != nil {
		return nil, m.mapStoreError(id, err)
	}
	return out, nil
}

func sourceOf(p *Plan) document.Source {
	return document.Source{
		SessionID:        p.ID,
		ProjectName:      p.ProjectName,
		ProblemStatement: p.ProblemStatement,
		Status:           string(p.Status),
		Steps:            len(p.Steps),
		Tasks:            p.Tasks,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
