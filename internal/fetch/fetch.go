// Package fetch retrieves the raw markup of a source page.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "tabload/1.0 (+https://github.com/Parnalkhole/ExtractTransformLoadGDP)"
	DefaultMaxBytes  = 32 << 20
)

var (
	// ErrTooLarge is returned when a page exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("fetch: page exceeds maximum size")

	// ErrEmptySource is returned when no source location is configured.
	ErrEmptySource = errors.New("fetch: empty source")
)

// Error reports a failed retrieval. Status is the HTTP status code when the
// remote answered, zero otherwise.
type Error struct {
	Source string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: http %d: %v", e.Source, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
	// Client replaces the default HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Fetcher reads a page from an http(s) URL, a file:// URL or a local path
// and returns it decoded to UTF-8.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
	}
}

// Fetch makes exactly one attempt to read source.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &Error{Source: source, Err: ErrEmptySource}
	}

	u, err := url.Parse(source)
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, source)
	case "file":
		return f.fetchFile(source, u.Path)
	case "":
		return f.fetchFile(source, source)
	default:
		return nil, &Error{Source: source, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &Error{Source: source, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &Error{Source: source, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	data, err := f.decode(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &Error{Source: source, Status: resp.StatusCode, Err: err}
	}
	return data, nil
}

func (f *Fetcher) fetchFile(source, path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}
	defer file.Close()

	data, err := f.decode(file, "")
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}
	return data, nil
}

// decode reads at most maxBytes and converts the page to UTF-8. A charset
// in the Content-Type header wins; otherwise valid UTF-8 is returned as is and
// anything else is sniffed from a BOM or a <meta charset> declaration.
func (f *Fetcher) decode(r io.Reader, contentType string) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, ErrTooLarge
	}
	if !declaresCharset(contentType) && utf8.Valid(raw) {
		return raw, nil
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	data, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	return data, nil
}

func declaresCharset(contentType string) bool {
	_, params, err := mime.ParseMediaType(contentType)
	return err == nil && params["charset"] != ""
}
