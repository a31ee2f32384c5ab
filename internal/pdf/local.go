package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// LocalRenderer prints HTML to PDF with a headless Chrome started per call.
type LocalRenderer struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewLocalRenderer creates a renderer that launches Chrome through rod.
func NewLocalRenderer(maxBytes int64, logger *slog.Logger) *LocalRenderer {
	return &LocalRenderer{maxBytes: maxBytes, logger: logger}
}

// Render loads html into a blank page and prints it on A4 with backgrounds.
func (l *LocalRenderer) Render(ctx context.Context, html, filename string, _ map[string]any) (*Result, error) {
	lnch := launcher.New().Headless(true)
	defer lnch.Cleanup()

	u, err := lnch.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to load report html: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for page load: %w", err)
	}

	width, height := 8.27, 11.69
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        &width,
		PaperHeight:       &height,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf stream: %w", err)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, ErrTooLarge
	}

	pages, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	l.logger.Info("pdf rendered locally", "filename", filename, "bytes", len(data), "pages", pages)
	return &Result{Bytes: data, Pages: pages}, nil
}

// Disabled is the renderer used when neither a service URL nor local
// rendering is configured.
type Disabled struct{}

func (Disabled) Render(context.Context, string, string, map[string]any) (*Result, error) {
	return nil, nil
}

// New picks the renderer for the given settings: the service when a URL is
// set, local Chrome when enabled, otherwise Disabled.
func New(serviceURL string, local bool, opts Options, logger *slog.Logger) Renderer {
	switch {
	case serviceURL != "":
		return NewClient(serviceURL, opts.Timeout, opts.MaxBytes, logger)
	case local:
		return NewLocalRenderer(opts.MaxBytes, logger)
	default:
		logger.Warn("PDF rendering not configured, reports will fail at the PDF stage")
		return Disabled{}
	}
}
