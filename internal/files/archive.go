package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/exporter"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
)

// exportName matches <name>_<8 hex checksum>.<ext>
var exportName = regexp.MustCompile(`^(.+)_([0-9a-f]{8})\.([a-z]+)$`)

// ExportFile describes one shared document on disk
type ExportFile struct {
	Name         string              `json:"name"`
	Path         string              `json:"-"`
	DocumentName string              `json:"document_name"`
	Kind         domain.ReportKind   `json:"kind,omitempty"`
	Format       domain.ReportFormat `json:"format"`
	Checksum     string              `json:"checksum"`
	Size         int64               `json:"size"`
	ModTime      time.Time           `json:"modified_at"`
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Kind   domain.ReportKind
	Format domain.ReportFormat
	Since  time.Time
	Until  time.Time
}

func (f Filter) match(e ExportFile) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Format != "" && e.Format != f.Format {
		return false
	}
	if !f.Since.IsZero() && e.ModTime.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.ModTime.Before(f.Until) {
		return false
	}
	return true
}

// Archive provides read and retention operations over the exports directory
type Archive struct {
	dir    string
	logger *slog.Logger
}

// NewArchive creates an archive over dir
func NewArchive(dir string, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Archive{
		dir:    dir,
		logger: logger.With(slog.String("component", "files.archive")),
	}
}

// Dir returns the archive directory
func (a *Archive) Dir() string {
	return a.dir
}

// ParseExportName splits an exported file name into its parts.
// It reports false for names the file sink does not produce.
func ParseExportName(name string) (ExportFile, bool) {
	m := exportName.FindStringSubmatch(name)
	if m == nil {
		return ExportFile{}, false
	}
	format, err := domain.ParseReportFormat(m[3])
	if err != nil || string(format) != m[3] {
		return ExportFile{}, false
	}

	e := ExportFile{
		Name:         name,
		DocumentName: m[1],
		Format:       format,
		Checksum:     m[2],
	}
	switch m[1] {
	case exporter.PriceDocumentName:
		e.Kind = domain.ReportKindPrice
	case exporter.QuantityDocumentName:
		e.Kind = domain.ReportKindQuantity
	}
	return e, true
}

// List returns matching exports, newest first. A missing directory is an
// empty archive.
func (a *Archive) List(ctx context.Context, filter Filter) ([]ExportFile, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []ExportFile{}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("read exports directory", err)
	}

	exports := make([]ExportFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		e, ok := ParseExportName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		e.Path = filepath.Join(a.dir, e.Name)
		e.Size = info.Size()
		e.ModTime = info.ModTime()
		if filter.match(e) {
			exports = append(exports, e)
		}
	}

	sort.SliceStable(exports, func(i, j int) bool {
		if exports[i].ModTime.Equal(exports[j].ModTime) {
			return exports[i].Name < exports[j].Name
		}
		return exports[i].ModTime.After(exports[j].ModTime)
	})
	return exports, nil
}

// Latest returns the most recent export matching filter
func (a *Archive) Latest(ctx context.Context, filter Filter) (ExportFile, bool, error) {
	exports, err := a.List(ctx, filter)
	if err != nil || len(exports) == 0 {
		return ExportFile{}, false, err
	}
	return exports[0], true, nil
}

// Open opens an export by file name for reading. Names that are not plain
// export file names are reported as not found.
func (a *Archive) Open(name string) (*os.File, ExportFile, error) {
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return nil, ExportFile{}, apperrors.NewNotFoundError("export " + name)
	}
	e, ok := ParseExportName(name)
	if !ok {
		return nil, ExportFile{}, apperrors.NewNotFoundError("export " + name)
	}

	e.Path = filepath.Join(a.dir, name)
	f, err := os.Open(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ExportFile{}, apperrors.NewNotFoundError("export " + name)
	}
	if err != nil {
		return nil, ExportFile{}, apperrors.NewStorageError("open export", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ExportFile{}, apperrors.NewStorageError("stat export", err)
	}
	e.Size = info.Size()
	e.ModTime = info.ModTime()
	return f, e, nil
}

// Prune removes exports last modified before now minus maxAge and returns
// how many were removed. A non-positive maxAge keeps everything.
func (a *Archive) Prune(ctx context.Context, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	expired, err := a.List(ctx, Filter{Until: now.Add(-maxAge)})
	if err != nil {
		return 0, err
	}

	var (
		removed int
		errs    []error
	)
	for _, e := range expired {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", e.Name, err))
			continue
		}
		removed++
	}

	if removed > 0 {
		a.logger.InfoContext(ctx, "Pruned exports",
			slog.Int("removed", removed),
			slog.Duration("max_age", maxAge))
	}
	return removed, errors.Join(errs...)
}
