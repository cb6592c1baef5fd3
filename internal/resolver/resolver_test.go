package resolver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"gptlocal/internal/catalog"
	"gptlocal/internal/download"
)

type fakeCatalog struct {
	entries []catalog.Entry
	err     error
	calls   int
}

func (f *fakeCatalog) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	f.calls++
	return f.entries, f.err
}

type fakeDownloader struct {
	content string
	err     error
	calls   int
	gotURL  string
}

func (f *fakeDownloader) Download(ctx context.Context, filename, dir, url string) (string, error) {
	f.calls++
	f.gotURL = url
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(dir, filename)
	return p, os.WriteFile(p, []byte(f.content), 0o644)
}

func newTestResolver(cfg Config, cat *fakeCatalog, dl *fakeDownloader) *Resolver {
	return New(cfg, cat, dl, zerolog.Nop())
}

func TestCanonicalizeIdempotent(t *testing.T) {
	for _, in := range []string{"", "model", "model.bin", "model.gguf", "a.bin.bin", ".bin"} {
		once := Canonicalize(in, "")
		if twice := Canonicalize(once, ""); twice != once {
			t.Fatalf("%q: once=%q twice=%q", in, once, twice)
		}
	}
	if got := Canonicalize("m", ".gguf"); got != "m.gguf" {
		t.Fatalf("custom suffix: %q", got)
	}
	if got := Canonicalize("ggml-model", ""); got != "ggml-model.bin" {
		t.Fatalf("default suffix: %q", got)
	}
}

func TestResolve_ExistingFileSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "m.bin")
	if err := os.WriteFile(want, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, allow := range []bool{true, false} {
		cat, dl := &fakeCatalog{}, &fakeDownloader{}
		got, err := newTestResolver(Config{}, cat, dl).Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: allow})
		if err != nil {
			t.Fatalf("allow=%v: %v", allow, err)
		}
		if got != want {
			t.Fatalf("allow=%v: got %q want %q", allow, got, want)
		}
		if cat.calls != 0 || dl.calls != 0 {
			t.Fatalf("allow=%v: network touched (catalog=%d download=%d)", allow, cat.calls, dl.calls)
		}
	}
}

func TestResolve_DownloadDisabled(t *testing.T) {
	cat, dl := &fakeCatalog{}, &fakeDownloader{}
	_, err := newTestResolver(Config{}, cat, dl).Resolve(context.Background(), Request{Name: "m", Dir: t.TempDir()})
	if !IsDownloadDisabled(err) {
		t.Fatalf("expected DownloadDisabledError, got %v", err)
	}
	if cat.calls != 0 || dl.calls != 0 {
		t.Fatalf("network touched")
	}
}

func TestResolve_InvalidDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := newTestResolver(Config{}, &fakeCatalog{}, &fakeDownloader{}).Resolve(context.Background(), Request{Name: "m", Dir: missing, AllowDownload: true})
	if !IsInvalidDirectory(err) {
		t.Fatalf("expected InvalidDirectoryError, got %v", err)
	}
	if _, statErr := os.Stat(missing); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("explicit directory must not be created")
	}
}

func TestResolve_DefaultDirectoryCreated(t *testing.T) {
	def := filepath.Join(t.TempDir(), "cache", "gpt4all")
	_, err := newTestResolver(Config{DefaultDir: def}, &fakeCatalog{}, &fakeDownloader{}).Resolve(context.Background(), Request{Name: "m"})
	if !IsDownloadDisabled(err) {
		t.Fatalf("expected DownloadDisabledError, got %v", err)
	}
	if fi, err := os.Stat(def); err != nil || !fi.IsDir() {
		t.Fatalf("default dir not created: %v", err)
	}
}

func TestResolve_DefaultDirectoryCreationFails(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := newTestResolver(Config{DefaultDir: filepath.Join(blocker, "sub")}, &fakeCatalog{}, &fakeDownloader{}).Resolve(context.Background(), Request{Name: "m"})
	if !IsDirectoryCreation(err) {
		t.Fatalf("expected DirectoryCreationError, got %v", err)
	}
}

func TestResolve_UnknownModelCreatesNothing(t *testing.T) {
	dir := t.TempDir()
	cat := &fakeCatalog{entries: []catalog.Entry{{Filename: "other.bin"}}}
	dl := &fakeDownloader{}
	_, err := newTestResolver(Config{}, cat, dl).Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true})
	if !IsUnknownModel(err) {
		t.Fatalf("expected UnknownModelError, got %v", err)
	}
	if dl.calls != 0 {
		t.Fatalf("downloader must not run for unknown models")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("directory not empty: %v", entries)
	}
}

func TestResolve_DownloadURLSelection(t *testing.T) {
	cases := []struct {
		entry catalog.Entry
		want  string
	}{
		{catalog.Entry{Filename: "m.bin"}, "https://mirror.example/models/m.bin"},
		{catalog.Entry{Filename: "m.bin", URL: "https://hf.example/m.bin"}, "https://hf.example/m.bin"},
	}
	for _, c := range cases {
		dir := t.TempDir()
		cat := &fakeCatalog{entries: []catalog.Entry{c.entry}}
		dl := &fakeDownloader{content: "w"}
		r := newTestResolver(Config{DownloadBase: "https://mirror.example/models"}, cat, dl)
		p, err := r.Resolve(context.Background(), Request{Name: "m.bin", Dir: dir, AllowDownload: true})
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if dl.gotURL != c.want {
			t.Fatalf("url=%q want %q", dl.gotURL, c.want)
		}
		if p != filepath.Join(dir, "m.bin") {
			t.Fatalf("path=%q", p)
		}
		if cat.calls != 1 {
			t.Fatalf("catalog fetched %d times", cat.calls)
		}
	}
}

func TestResolve_CatalogFetchedEveryTime(t *testing.T) {
	cat := &fakeCatalog{entries: []catalog.Entry{{Filename: "m.bin"}}}
	dl := &fakeDownloader{err: errors.New("boom")}
	r := newTestResolver(Config{}, cat, dl)
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true}); err == nil {
			t.Fatalf("expected download error")
		}
	}
	if cat.calls != 2 {
		t.Fatalf("catalog fetched %d times, want 2", cat.calls)
	}
}

func TestResolve_ChecksumVerification(t *testing.T) {
	sum := md5.Sum([]byte("good"))
	good := hex.EncodeToString(sum[:])
	entries := []catalog.Entry{{Filename: "m.bin", MD5Sum: good}}

	dir := t.TempDir()
	r := newTestResolver(Config{VerifyChecksum: true}, &fakeCatalog{entries: entries}, &fakeDownloader{content: "good"})
	if _, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true}); err != nil {
		t.Fatalf("matching checksum: %v", err)
	}

	dir = t.TempDir()
	r = newTestResolver(Config{VerifyChecksum: true}, &fakeCatalog{entries: entries}, &fakeDownloader{content: "evil"})
	_, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true})
	if !IsChecksumMismatch(err) {
		t.Fatalf("expected ChecksumMismatchError, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "m.bin")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("corrupt file must be removed")
	}

	// verification off: mismatching content is accepted
	dir = t.TempDir()
	r = newTestResolver(Config{}, &fakeCatalog{entries: entries}, &fakeDownloader{content: "evil"})
	if _, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true}); err != nil {
		t.Fatalf("unverified download: %v", err)
	}
}

func TestResolve_EndToEndWithDownloader(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/models.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"filename":"tiny.bin","url":"` + srvURL + `/files/tiny.bin"}]`))
	})
	mux.HandleFunc("/files/tiny.bin", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tiny-weights"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	dl := download.New(srv.Client(), zerolog.Nop())
	dl.LockReleaseDelay = 0
	r := New(Config{}, catalog.NewClient(srv.URL+"/models.json", srv.Client()), dl, zerolog.Nop())

	dir := t.TempDir()
	p, err := r.Resolve(context.Background(), Request{Name: "tiny", Dir: dir, AllowDownload: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b, _ := os.ReadFile(p); string(b) != "tiny-weights" {
		t.Fatalf("content=%q", b)
	}
	// second call finds the file without downloading
	srv.Close()
	if p2, err := r.Resolve(context.Background(), Request{Name: "tiny.bin", Dir: dir}); err != nil || p2 != p {
		t.Fatalf("second resolve: %q %v", p2, err)
	}
}

func TestResolve_EmptyDownloadLeavesNothingBehind(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"filename":"m.bin"}]`))
	})
	mux.HandleFunc("/files/m.bin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dl := download.New(srv.Client(), zerolog.Nop())
	dl.LockReleaseDelay = 0
	r := New(Config{DownloadBase: srv.URL + "/files"}, catalog.NewClient(srv.URL+"/models.json", srv.Client()), dl, zerolog.Nop())

	dir := t.TempDir()
	if _, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir, AllowDownload: true}); !download.IsDownloadError(err) {
		t.Fatalf("expected DownloadError, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), Request{Name: "m", Dir: dir}); !IsDownloadDisabled(err) {
		t.Fatalf("empty file must not satisfy a later lookup: %v", err)
	}
}
