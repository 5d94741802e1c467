package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

const defaultProgressInterval = 200 * time.Millisecond

// progressReader wraps an io.Reader and reports progress during reads
type progressReader struct {
	reader      io.Reader
	total       int64
	transferred int64
	emit        domain.ProgressFunc
	lastEmit    time.Time
	interval    time.Duration
}

func newProgressReader(r io.Reader, total int64, interval time.Duration, emit domain.ProgressFunc) *progressReader {
	return &progressReader{
		reader:   r,
		total:    total,
		emit:     emit,
		lastEmit: time.Now(),
		interval: interval,
	}
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.emit != nil && (time.Since(pr.lastEmit) >= pr.interval || err == io.EOF) {
			pr.emit(pr.transferred, pr.total)
			pr.lastEmit = time.Now()
		}
	}
	return n, err
}

// HTTPTransport implements domain.Transport over plain HTTP(S) GET
type HTTPTransport struct {
	fs        afero.Fs
	client    *http.Client
	userAgent string
	interval  time.Duration
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(fs afero.Fs, config *domain.TransportConfig) *HTTPTransport {
	interval := config.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &HTTPTransport{
		fs:        fs,
		client:    &http.Client{Timeout: config.Timeout},
		userAgent: config.UserAgent,
		interval:  interval,
	}
}

// Fetch streams url into dest. The body is written to dest+".part" and
// renamed into place only after the whole body has been received.
func (t *HTTPTransport) Fetch(ctx context.Context, url, dest string, progress domain.ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, transportError(url, err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, transportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, transportError(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	if err := t.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, domain.FSError("mkdir", filepath.Dir(dest), err)
	}

	tmp := dest + ".part"
	out, err := t.fs.Create(tmp)
	if err != nil {
		return 0, domain.FSError("create", tmp, err)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = -1
	}
	if progress != nil {
		progress(0, total)
	}

	n, err := io.Copy(out, newProgressReader(resp.Body, total, t.interval, progress))
	if err != nil {
		out.Close()
		_ = t.fs.Remove(tmp)
		return n, transportError(url, err)
	}
	if err := out.Close(); err != nil {
		_ = t.fs.Remove(tmp)
		return n, domain.FSError("close", tmp, err)
	}
	if progress != nil {
		progress(n, total)
	}

	if err := t.fs.Rename(tmp, dest); err != nil {
		return n, domain.FSError("rename", dest, err)
	}
	return n, nil
}

func transportError(url string, err error) error {
	return &domain.OpError{Op: "download", Kind: domain.KindTransport, Path: url, Err: err}
}
