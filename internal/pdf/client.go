// Package pdf turns the rendered report HTML into a PDF, either through the
// external rendering service or a local headless Chrome.
package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"
)

var (
	// ErrTooLarge is returned when the service answers 413 or the PDF
	// exceeds the configured size limit.
	ErrTooLarge = errors.New("pdf too large")
	// ErrTimeout is returned when the service does not answer in time.
	ErrTimeout = errors.New("pdf service timeout")
	// ErrNoOutput is returned when rendering produced neither bytes nor a URL.
	ErrNoOutput = errors.New("pdf rendering returned no output")
	// ErrUnexpectedResponse is returned for responses in an unknown shape.
	ErrUnexpectedResponse = errors.New("unexpected PDF response")
)

const errorBodyLimit = 200

// Result is a rendered PDF. Either Bytes or URL (or both) is set.
type Result struct {
	Bytes []byte
	URL   string
	Pages int
}

// Renderer renders HTML to PDF. A nil Result with a nil error means PDF
// rendering is not configured.
type Renderer interface {
	Render(ctx context.Context, html, filename string, meta map[string]any) (*Result, error)
}

// Options bounds every render call.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Client posts HTML to the PDF service.
type Client struct {
	url        string
	maxBytes   int64
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a service client with the given timeout and size limit.
func NewClient(url string, timeout time.Duration, maxBytes int64, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		maxBytes:   maxBytes,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type renderRequest struct {
	HTML     string         `json:"html"`
	Filename string         `json:"filename"`
	MaxBytes int64          `json:"max_bytes"`
	Meta     map[string]any `json:"meta"`
}

type renderResponse struct {
	PDFBase64 *string `json:"pdf_base64"`
	PDF       *string `json:"pdf"`
	URL       string  `json:"url"`
}

// Render sends one render request. The service may answer with raw
// application/pdf bytes or a JSON envelope carrying base64 bytes and/or a
// URL. Returned bytes are validated as PDF.
func (c *Client) Render(ctx context.Context, html, filename string, meta map[string]any) (*Result, error) {
	if meta == nil {
		meta = map[string]any{}
	}
	jsonData, err := json.Marshal(renderRequest{HTML: html, Filename: filename, MaxBytes: c.maxBytes, Meta: meta})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return nil, ErrTooLarge
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := c.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	ctype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var res Result
	switch ctype {
	case "application/pdf":
		if c.maxBytes > 0 && int64(len(body)) > c.maxBytes {
			return nil, ErrTooLarge
		}
		res.Bytes = body
	case "application/json":
		var env renderResponse
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		encoded := env.PDFBase64
		if encoded == nil {
			encoded = env.PDF
		}
		if encoded != nil {
			raw, err := base64.StdEncoding.DecodeString(*encoded)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 PDF: %w", err)
			}
			if c.maxBytes > 0 && int64(len(raw)) > c.maxBytes {
				return nil, ErrTooLarge
			}
			res.Bytes = raw
		}
		res.URL = env.URL
		if res.Bytes == nil && res.URL == "" {
			return nil, ErrUnexpectedResponse
		}
	default:
		return nil, fmt.Errorf("%w: content type %q", ErrUnexpectedResponse, ctype)
	}

	if len(res.Bytes) > 0 {
		pages, err := Inspect(res.Bytes)
		if err != nil {
			return nil, err
		}
		res.Pages = pages
	}
	c.logger.Info("pdf rendered", "filename", filename, "bytes", len(res.Bytes), "url", res.URL != "", "pages", res.Pages)
	return &res, nil
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	if c.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	// base64 inflates by 4/3; leave room for a JSON envelope around it.
	limit := c.maxBytes*4/3 + 4096
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
