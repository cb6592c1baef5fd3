package download

import (
	"errors"
	"fmt"
)

// ErrEmptyBody is wrapped in a DownloadError when the server sends no bytes.
var ErrEmptyBody = errors.New("empty response body")

// DownloadError reports a network or filesystem failure during a transfer.
// Any partially written file has been removed by the time it is returned.
type DownloadError struct {
	URL  string
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// IsDownloadError reports whether err is (or wraps) a *DownloadError.
func IsDownloadError(err error) bool {
	var de *DownloadError
	return errors.As(err, &de)
}

// IncompleteDownloadError signals that the server declared a size that does
// not match the number of bytes written.
type IncompleteDownloadError struct {
	Path     string
	Expected int64
	Written  int64
}

func (e *IncompleteDownloadError) Error() string {
	return fmt.Sprintf("incomplete download of %s: wrote %d of %d bytes", e.Path, e.Written, e.Expected)
}

// IsIncomplete reports whether err is (or wraps) an *IncompleteDownloadError.
func IsIncomplete(err error) bool {
	var ie *IncompleteDownloadError
	return errors.As(err, &ie)
}
