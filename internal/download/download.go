// Package download streams model files from a URL into a local directory.
//
// A transfer either leaves a complete file at the destination or nothing:
// the partially written file is removed on every failure path, so a later
// existence check never mistakes a truncated file for a finished one.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"gptlocal/internal/common/fsutil"
)

// DefaultBlockSize is the chunk size read from the response and written to disk.
const DefaultBlockSize = 1 << 20

// Progress is called after every block with bytes written so far and the
// declared total (0 when the server did not send a Content-Length).
type Progress func(written, total int64)

// Downloader performs blocking, single-stream downloads.
type Downloader struct {
	HTTP      *http.Client
	BlockSize int
	// LockReleaseDelay is waited after a successful transfer, before the path
	// is returned. See DefaultLockReleaseDelay.
	LockReleaseDelay time.Duration
	Progress         Progress
	Logger           zerolog.Logger

	create func(path string) (io.WriteCloser, error)
}

// New returns a Downloader with platform defaults.
func New(hc *http.Client, logger zerolog.Logger) *Downloader {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Downloader{
		HTTP:             hc,
		BlockSize:        DefaultBlockSize,
		LockReleaseDelay: DefaultLockReleaseDelay,
		Logger:           logger,
	}
}

// Download fetches url into dir/filename and returns the destination path.
func (d *Downloader) Download(ctx context.Context, filename, dir, url string) (string, error) {
	dest := filepath.Join(dir, filename)
	fail := func(err error) (string, error) {
		downloadsTotal.WithLabelValues("failed").Inc()
		return "", &DownloadError{URL: url, Path: dest, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fail(err)
	}
	hc := d.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	d.Logger.Info().Str("url", url).Str("path", dest).Int64("size", total).Msg("downloading model")

	written, err := d.copyTo(ctx, dest, resp.Body, total)
	if err != nil {
		d.cleanup(dest)
		return fail(err)
	}
	if written == 0 {
		d.cleanup(dest)
		return fail(ErrEmptyBody)
	}
	if total != 0 && written != total {
		d.cleanup(dest)
		downloadsTotal.WithLabelValues("incomplete").Inc()
		return "", &IncompleteDownloadError{Path: dest, Expected: total, Written: written}
	}

	if d.LockReleaseDelay > 0 {
		t := time.NewTimer(d.LockReleaseDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}

	downloadsTotal.WithLabelValues("ok").Inc()
	d.Logger.Info().Str("path", dest).Int64("bytes", written).Msg("model downloaded")
	return dest, nil
}

func (d *Downloader) copyTo(ctx context.Context, dest string, body io.Reader, total int64) (written int64, err error) {
	open := d.create
	if open == nil {
		open = func(p string) (io.WriteCloser, error) { return os.Create(p) }
	}
	f, err := open(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, cerr)
		}
	}()

	size := d.BlockSize
	if size <= 0 {
		size = DefaultBlockSize
	}
	buf := make([]byte, size)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := readBlock(body, buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("write %s: %w", dest, werr)
			}
			written += int64(n)
			downloadBytesTotal.Add(float64(n))
			if d.Progress != nil {
				d.Progress(written, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}

// cleanup removes a partial artifact; a failure to do so is logged, never returned.
func (d *Downloader) cleanup(dest string) {
	d.Logger.Warn().Str("path", dest).Msg("removing interrupted download")
	if err := fsutil.RemoveIfExists(dest); err != nil {
		d.Logger.Error().Err(err).Str("path", dest).Msg("remove partial download")
	}
}

// readBlock fills buf unless the reader ends or fails first. Unlike
// io.ReadFull it passes io.EOF through unchanged, so a clean end of body is
// distinguishable from a connection cut short (io.ErrUnexpectedEOF).
func readBlock(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
