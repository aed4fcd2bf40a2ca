package share

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fieldreport/internal/config"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
)

// FileSink writes documents into a local directory
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates a sink writing into dir
func NewFileSink(dir string, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &FileSink{
		dir:    dir,
		logger: logger.With(slog.String("component", "share.file")),
	}
}

// Name returns the sink identifier
func (s *FileSink) Name() string {
	return config.SinkFile
}

// Put writes the document atomically. The file name carries a checksum
// prefix so sharing the same document twice overwrites one file.
func (s *FileSink) Put(ctx context.Context, doc *domain.Document) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}

	target := filepath.Join(s.dir, fileName(doc))
	tmp, err := os.CreateTemp(s.dir, ".export-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, fmt.Errorf("move into %s: %w", target, err)
	}

	s.logger.InfoContext(ctx, "Document written",
		slog.String("path", target),
		slog.Int("bytes", doc.Size()))

	return &Receipt{
		DocumentID: doc.ID,
		Name:       doc.FileName(),
		Sink:       s.Name(),
		Location:   target,
		Bytes:      doc.Size(),
		Checksum:   doc.Checksum,
	}, nil
}

func fileName(doc *domain.Document) string {
	short := doc.Checksum
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return doc.FileName()
	}
	return fmt.Sprintf("%s_%s%s", doc.Name, short, doc.Format.Extension())
}
