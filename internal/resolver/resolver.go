// Package resolver maps a model name to a model file on local disk, fetching
// it from the remote catalog when it is missing and downloads are allowed.
package resolver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"gptlocal/internal/catalog"
	"gptlocal/internal/common/fsutil"
)

// DefaultSuffix is the model file extension appended by Canonicalize.
const DefaultSuffix = ".bin"

// Canonicalize appends suffix to name unless it already ends with it.
// Applying it twice gives the same result as applying it once.
func Canonicalize(name, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	if strings.HasSuffix(name, suffix) {
		return name
	}
	return name + suffix
}

// CatalogSource lists the downloadable models.
type CatalogSource interface {
	Fetch(ctx context.Context) ([]catalog.Entry, error)
}

// Downloader writes url into dir/filename and returns the resulting path.
type Downloader interface {
	Download(ctx context.Context, filename, dir, url string) (string, error)
}

// Config holds resolver settings. Zero values select the defaults.
type Config struct {
	// DefaultDir is used, and created, when a request names no directory.
	// Empty means ~/.cache/gpt4all.
	DefaultDir string
	// Suffix is the model file extension; empty means DefaultSuffix.
	Suffix string
	// DownloadBase is prefixed to the filename of entries without a url.
	DownloadBase string
	// VerifyChecksum checks downloads against the catalog md5sum when present.
	VerifyChecksum bool
}

// Request names a model and where to look for it.
type Request struct {
	Name          string
	Dir           string
	AllowDownload bool
}

// Resolver implements model lookup. It keeps no state between calls.
type Resolver struct {
	cfg        Config
	catalog    CatalogSource
	downloader Downloader
	log        zerolog.Logger
}

// New returns a Resolver. catalog and downloader are only used for missing files.
func New(cfg Config, cat CatalogSource, dl Downloader, logger zerolog.Logger) *Resolver {
	return &Resolver{cfg: cfg, catalog: cat, downloader: dl, log: logger}
}

// Filename returns the canonical filename for name under this resolver's suffix.
func (r *Resolver) Filename(name string) string { return Canonicalize(name, r.cfg.Suffix) }

// Resolve returns the absolute path of the requested model file.
//
// An existing file is returned as is, without looking at its content and
// without touching the network. A missing file is downloaded only when
// req.AllowDownload is set and the catalog lists its filename.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	filename := r.Filename(req.Name)

	dir, err := r.directory(req.Dir)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(dir, filename)
	if _, err := os.Stat(dest); err == nil {
		r.log.Debug().Str("path", dest).Msg("found model file")
		return dest, nil
	}

	if !req.AllowDownload {
		return "", &DownloadDisabledError{Path: dest}
	}
	if r.catalog == nil || r.downloader == nil {
		return "", fmt.Errorf("resolve %s: no catalog or downloader configured", filename)
	}

	entries, err := r.catalog.Fetch(ctx)
	if err != nil {
		return "", err
	}
	entry, ok := catalog.Find(entries, filename)
	if !ok {
		return "", &UnknownModelError{Filename: filename}
	}

	path, err := r.downloader.Download(ctx, filename, dir, entry.DownloadURL(r.cfg.DownloadBase))
	if err != nil {
		return "", err
	}
	if r.cfg.VerifyChecksum && entry.MD5Sum != "" {
		if err := verifyMD5(path, entry.MD5Sum); err != nil {
			if rmErr := fsutil.RemoveIfExists(path); rmErr != nil {
				r.log.Error().Err(rmErr).Str("path", path).Msg("remove corrupt download")
			}
			return "", err
		}
	}
	return path, nil
}

// directory picks and validates the target directory.
func (r *Resolver) directory(requested string) (string, error) {
	if requested == "" {
		dir := r.cfg.DefaultDir
		if dir == "" {
			d, err := fsutil.DefaultModelDir()
			if err != nil {
				return "", &DirectoryCreationError{Dir: "~/.cache/gpt4all", Err: err}
			}
			dir = d
		}
		dir, err := absDir(dir)
		if err != nil {
			return "", &DirectoryCreationError{Dir: dir, Err: err}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", &DirectoryCreationError{Dir: dir, Err: err}
		}
		return dir, nil
	}

	dir, err := absDir(requested)
	if err != nil || !fsutil.IsDir(dir) {
		return "", &InvalidDirectoryError{Dir: requested}
	}
	return dir, nil
}

func absDir(dir string) (string, error) {
	expanded, err := fsutil.ExpandHome(dir)
	if err != nil {
		return dir, err
	}
	return filepath.Abs(expanded)
}

func verifyMD5(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return &ChecksumMismatchError{Path: path, Expected: want, Actual: got}
	}
	return nil
}
