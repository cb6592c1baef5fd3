package resolver

import (
	"errors"
	"fmt"
)

// InvalidDirectoryError reports an explicitly supplied directory that does not exist.
type InvalidDirectoryError struct{ Dir string }

func (e *InvalidDirectoryError) Error() string { return "invalid model directory: " + e.Dir }

// DirectoryCreationError reports a failure to create the default model directory.
type DirectoryCreationError struct {
	Dir string
	Err error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("failed to create model download directory at %s: %v; specify a model directory explicitly", e.Dir, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// DownloadDisabledError reports a missing model file when downloads are not allowed.
type DownloadDisabledError struct{ Path string }

func (e *DownloadDisabledError) Error() string {
	return "model file not found at " + e.Path + " and downloads are disabled"
}

// UnknownModelError reports a filename that the catalog does not list.
type UnknownModelError struct{ Filename string }

func (e *UnknownModelError) Error() string { return "model filename not in catalog: " + e.Filename }

// ChecksumMismatchError reports a downloaded file whose MD5 differs from the catalog.
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected md5 %s, got %s", e.Path, e.Expected, e.Actual)
}

// IsInvalidDirectory reports whether err is (or wraps) an *InvalidDirectoryError.
func IsInvalidDirectory(err error) bool {
	var e *InvalidDirectoryError
	return errors.As(err, &e)
}

// IsDirectoryCreation reports whether err is (or wraps) a *DirectoryCreationError.
func IsDirectoryCreation(err error) bool {
	var e *DirectoryCreationError
	return errors.As(err, &e)
}

// IsDownloadDisabled reports whether err is (or wraps) a *DownloadDisabledError.
func IsDownloadDisabled(err error) bool {
	var e *DownloadDisabledError
	return errors.As(err, &e)
}

// IsUnknownModel reports whether err is (or wraps) an *UnknownModelError.
func IsUnknownModel(err error) bool {
	var e *UnknownModelError
	return errors.As(err, &e)
}

// IsChecksumMismatch reports whether err is (or wraps) a *ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var e *ChecksumMismatchError
	return errors.As(err, &e)
}
