package share

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/exporter"
	"fieldreport/pkg/contracts/domain"
	"fieldreport/pkg/contracts/events"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Put(ctx context.Context, doc *domain.Document) (*Receipt, error) {
	args := m.Called(ctx, doc)
	receipt, _ := args.Get(0).(*Receipt)
	return receipt, args.Error(1)
}

type mockConverter struct {
	mock.Mock
}

func (m *mockConverter) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	args := m.Called(ctx, html)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.ExportEvent
	failed []bool
}

func (n *recordingNotifier) BroadcastExport(_ context.Context, event events.ExportEvent, failed bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.failed = append(n.failed, failed)
}

func TestPublisherSharesDocumentAsIs(t *testing.T) {
	doc := testDocument(domain.ReportFormatCSV, "a;b\n")
	sink := new(mockSink)
	sink.On("Put", mock.Anything, doc).Return(&Receipt{
		DocumentID: doc.ID, Name: doc.FileName(), Sink: "mock", Location: "mem://1", Bytes: doc.Size(), Checksum: doc.Checksum,
	}, nil)
	notifier := &recordingNotifier{}

	publisher := NewPublisher(sink, nil, notifier, nil, testLogger())
	receipt, err := publisher.ExportAndShare(context.Background(), doc, Intent{Format: domain.ReportFormatCSV})
	require.NoError(t, err)

	assert.Equal(t, "mem://1", receipt.Location)
	sink.AssertExpectations(t)
	require.Len(t, notifier.events, 1)
	assert.False(t, notifier.failed[0])
	assert.Equal(t, doc.ID, notifier.events[0].DocumentID)
	assert.Equal(t, "mem://1", notifier.events[0].Location)
}

func TestPublisherConvertsHTMLToPDF(t *testing.T) {
	html := testDocument(domain.ReportFormatHTML, "<h1>Rapport Prix</h1>")
	pdf := []byte("%PDF-1.4 printed")

	converter := new(mockConverter)
	converter.On("ConvertHTML", mock.Anything, html.Content).Return(pdf, nil)

	sink := new(mockSink)
	sink.On("Put", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.Format == domain.ReportFormatPDF &&
			string(d.Content) == string(pdf) &&
			d.Checksum == exporter.Checksum(pdf) &&
			d.ID == exporter.DocumentID(domain.ReportKindPrice, d.Checksum) &&
			d.FileName() == "Rapport_Prix.pdf"
	})).Return(&Receipt{Sink: "mock", Location: "mem://pdf"}, nil)

	publisher := NewPublisher(sink, converter, nil, nil, testLogger())
	receipt, err := publisher.ExportAndShare(context.Background(), html, Intent{Format: domain.ReportFormatPDF})
	require.NoError(t, err)
	assert.Equal(t, "mem://pdf", receipt.Location)

	converter.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestPublisherFailures(t *testing.T) {
	tests := []struct {
		name       string
		doc        *domain.Document
		intent     Intent
		converter  func() exporter.PDFConverter
		sinkErr    error
		wantReason string
		wantCause  error
	}{
		{
			name:       "sink refuses",
			doc:        testDocument(domain.ReportFormatHTML, "<p/>"),
			sinkErr:    errors.New("connection refused"),
			wantReason: "Le document n'a pas pu être partagé.",
		},
		{
			name:       "sharing disabled",
			doc:        testDocument(domain.ReportFormatHTML, "<p/>"),
			sinkErr:    ErrSharingDisabled,
			wantReason: "Le partage est désactivé.",
			wantCause:  ErrSharingDisabled,
		},
		{
			name:       "unsupported conversion",
			doc:        testDocument(domain.ReportFormatCSV, "a"),
			intent:     Intent{Format: domain.ReportFormatPDF},
			wantReason: "Format de partage non pris en charge.",
		},
		{
			name:       "no pdf converter",
			doc:        testDocument(domain.ReportFormatHTML, "<p/>"),
			intent:     Intent{Format: domain.ReportFormatPDF},
			wantReason: "La génération PDF n'est pas disponible.",
			wantCause:  exporter.ErrPDFUnavailable,
		},
		{
			name:   "conversion fails",
			doc:    testDocument(domain.ReportFormatHTML, "<p/>"),
			intent: Intent{Format: domain.ReportFormatPDF},
			converter: func() exporter.PDFConverter {
				c := new(mockConverter)
				c.On("ConvertHTML", mock.Anything, mock.Anything).Return(nil, errors.New("chrome crashed"))
				return c
			},
			wantReason: "La conversion en PDF a échoué.",
		},
		{
			name:       "nil document",
			wantReason: "Aucun document à partager.",
			wantCause:  exporter.ErrNilReport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := new(mockSink)
			if tt.sinkErr != nil {
				sink.On("Put", mock.Anything, mock.Anything).Return(nil, tt.sinkErr)
			}
			var converter exporter.PDFConverter
			if tt.converter != nil {
				converter = tt.converter()
			}
			notifier := &recordingNotifier{}

			publisher := NewPublisher(sink, converter, notifier, nil, testLogger())
			receipt, err := publisher.ExportAndShare(context.Background(), tt.doc, tt.intent)
			assert.Nil(t, receipt)

			var shareErr *ShareError
			require.ErrorAs(t, err, &shareErr)
			assert.Equal(t, tt.wantReason, shareErr.Reason)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
			if tt.wantCause != nil {
				assert.ErrorIs(t, err, tt.wantCause)
			}
			if tt.sinkErr == nil {
				sink.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
			}

			if tt.doc == nil {
				assert.Empty(t, notifier.events)
				return
			}
			require.Len(t, notifier.events, 1)
			assert.True(t, notifier.failed[0])
			assert.Equal(t, tt.wantReason, notifier.events[0].Reason)
			assert.True(t, notifier.events[0].Recoverable)
		})
	}
}
