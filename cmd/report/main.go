// Command report fetches one survey report from the backend and writes the
// rendered document to a file, or hands it to the configured share sink.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"fieldreport/internal/config"
	"fieldreport/internal/dataprocessing"
	"fieldreport/internal/exporter"
	"fieldreport/internal/infrastructure"
	"fieldreport/internal/locale"
	"fieldreport/internal/services"
	"fieldreport/internal/share"
	"fieldreport/internal/source"
	"fieldreport/pkg/contracts/domain"
)

type options struct {
	configFile string
	kind       domain.ReportKind
	format     domain.ReportFormat
	query      domain.ReportQuery
	out        string
	share      bool
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadFile(opts.configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	if err := execute(ctx, cfg, opts, os.Stdout, logger); err != nil {
		logger.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseOptions(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(output)

	configFile := fs.String("config", "", "YAML config file (defaults to FIELDREPORT_CONFIG_FILE or config.yaml)")
	kind := fs.String("kind", "price", "report kind: price or quantity")
	format := fs.String("format", "", "document format: html, pdf, csv or xlsx (defaults to html, or pdf with -share)")
	date := fs.String("date", "", "mission date filter (YYYY-MM-DD)")
	user := fs.String("user", "", "surveyor id filter")
	mission := fs.String("mission", "", "mission id filter")
	out := fs.String("out", "", "output file, - for stdout (defaults to <name><ext> in the current directory)")
	shareDoc := fs.Bool("share", false, "send the document to the configured share sink instead of writing it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := &options{
		configFile: *configFile,
		query: domain.ReportQuery{
			Date:      *date,
			UserID:    *user,
			MissionID: *mission,
		},
		out:   *out,
		share: *shareDoc,
	}

	var err error
	if opts.kind, err = domain.ParseReportKind(*kind); err != nil {
		return nil, err
	}
	if *format == "" && opts.share {
		opts.format = domain.ReportFormatPDF
	} else if opts.format, err = domain.ParseReportFormat(*format); err != nil {
		return nil, err
	}
	if opts.share && opts.out != "" {
		return nil, errors.New("-out cannot be combined with -share")
	}

	if err := validator.New().Struct(opts.query); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return opts, nil
}

// execute runs the report pipeline once. A shared PDF is rendered as HTML
// and printed by the publisher.
func execute(ctx context.Context, cfg *config.Config, opts *options, stdout io.Writer, logger *slog.Logger) error {
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}

	dates, err := locale.NewFormatter(cfg.Locale.Tag, cfg.Locale.Timezone)
	if err != nil {
		return err
	}
	src, err := source.NewClient(cfg.Backend, logger, source.WithLocation(dates.Location()))
	if err != nil {
		return err
	}
	builder := dataprocessing.NewBuilderWithConfig(logger, dates, dataprocessing.BuilderConfig{
		GroupingChunks: cfg.Export.GroupingChunks,
	})
	pdf := exporter.NewChromePDFConverter(exporter.PDFOptions{
		ChromePath: cfg.Export.ChromePath,
		Headless:   cfg.Export.Headless,
		Timeout:    cfg.Export.PDFTimeout,
	}, logger)
	renderer := exporter.NewRenderer(logger, pdf)

	var reportOpts []services.ReportServiceOption
	if opts.share {
		if err := paths.EnsureDirectories(); err != nil {
			return err
		}
		sink, err := share.NewSink(ctx, cfg.Share, paths, logger)
		if err != nil {
			return err
		}
		reportOpts = append(reportOpts, services.WithPublisher(share.NewPublisher(sink, pdf, nil, nil, logger)))
	}
	reports := services.NewReportService(src, builder, renderer, logger, reportOpts...)

	if opts.share {
		receipt, err := reports.Share(ctx, opts.kind, opts.query, share.Intent{Format: opts.format})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(receipt)
	}

	doc, err := reports.Document(ctx, opts.kind, opts.query, opts.format)
	if err != nil {
		return err
	}

	if opts.out == "-" {
		_, err = stdout.Write(doc.Content)
		return err
	}

	target := opts.out
	if target == "" {
		target = doc.FileName()
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(target, doc.Content, 0644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	logger.InfoContext(ctx, "Report written",
		slog.String("document_id", doc.ID),
		slog.String("path", target),
		slog.Int("bytes", doc.Size()))
	fmt.Fprintln(stdout, target)
	return nil
}
