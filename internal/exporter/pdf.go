package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrPDFUnavailable is returned when a PDF is requested without a converter
var ErrPDFUnavailable = errors.New("pdf conversion is not configured")

// PDFConverter prints a standalone HTML page to PDF
type PDFConverter interface {
	ConvertHTML(ctx context.Context, html []byte) ([]byte, error)
}

// PDFOptions configures the headless browser used for printing
type PDFOptions struct {
	ChromePath string
	Headless   bool
	Timeout    time.Duration
}

// ChromePDFConverter prints pages with a headless Chrome instance.
// A browser is started per conversion and closed afterwards.
type ChromePDFConverter struct {
	options PDFOptions
	logger  *slog.Logger
}

// NewChromePDFConverter creates a converter with the given browser options
func NewChromePDFConverter(options PDFOptions, logger *slog.Logger) *ChromePDFConverter {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}
	return &ChromePDFConverter{
		options: options,
		logger:  logger.With(slog.String("component", "pdf_converter")),
	}
}

// ConvertHTML loads html into a blank page and prints it on A4 paper
func (c *ChromePDFConverter) ConvertHTML(ctx context.Context, html []byte) ([]byte, error) {
	start := time.Now()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", c.options.Headless))
	if c.options.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.options.ChromePath))
	}

	ctx, cancelTimeout := context.WithTimeout(ctx, c.options.Timeout)
	defer cancelTimeout()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		c.logger.ErrorContext(ctx, "pdf conversion failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to print pdf: %w", err)
	}

	c.logger.DebugContext(ctx, "pdf conversion completed",
		slog.Int("bytes", len(pdf)),
		slog.Duration("duration", time.Since(start)))
	return pdf, nil
}
