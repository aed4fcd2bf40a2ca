package share

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"fieldreport/internal/config"
	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/infrastructure"
	"fieldreport/internal/security"
	"fieldreport/pkg/contracts/domain"
)

// DriveSink uploads documents into a Google Drive folder
type DriveSink struct {
	service  *drive.Service
	folderID string
	logger   *slog.Logger
}

// NewDriveSinkFromCredentials authenticates with a service account key file,
// plain or sealed under passphrase
func NewDriveSinkFromCredentials(ctx context.Context, folderID, credentialsFile, passphrase string, logger *slog.Logger) (*DriveSink, error) {
	creds, err := security.LoadCredentials(credentialsFile, []byte(passphrase))
	if err != nil {
		return nil, apperrors.NewConfigError("load drive credentials", err)
	}
	defer security.Wipe(creds)

	return NewDriveSink(ctx, folderID, logger,
		option.WithCredentialsJSON(creds),
		option.WithScopes(drive.DriveFileScope),
	)
}

// NewDriveSink creates a sink from explicit client options
func NewDriveSink(ctx context.Context, folderID string, logger *slog.Logger, opts ...option.ClientOption) (*DriveSink, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveSink{
		service:  service,
		folderID: folderID,
		logger:   logger.With(slog.String("component", "share.drive")),
	}, nil
}

// Name returns the sink identifier
func (s *DriveSink) Name() string {
	return config.SinkDrive
}

// Put creates a new Drive file holding the document
func (s *DriveSink) Put(ctx context.Context, doc *domain.Document) (*Receipt, error) {
	meta := &drive.File{
		Name:        doc.FileName(),
		MimeType:    doc.MIMEType,
		Description: fmt.Sprintf("%s report %s", doc.Kind, doc.ID),
	}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}

	created, err := s.service.Files.Create(meta).
		Media(bytes.NewReader(doc.Content), googleapi.ContentType(doc.MIMEType)).
		Fields("id", "name", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("upload to drive: %w", err)
	}

	location := created.WebViewLink
	if location == "" {
		location = "drive://" + created.Id
	}

	s.logger.InfoContext(ctx, "Document uploaded",
		slog.String("file_id", created.Id),
		slog.String("name", created.Name),
		slog.Int("bytes", doc.Size()))

	return &Receipt{
		DocumentID: doc.ID,
		Name:       doc.FileName(),
		Sink:       s.Name(),
		Location:   location,
		Bytes:      doc.Size(),
		Checksum:   doc.Checksum,
	}, nil
}
