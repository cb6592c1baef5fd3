package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const catalogJSON = `[
  {"filename":"ggml-gpt4all-j-v1.3-groovy.bin","name":"Groovy","filesize":"3785248281","md5sum":"81a09a0ddf89690372fc296ff7f625af","isDefault":"true"},
  {"filename":"ggml-mpt-7b-chat.bin","url":"https://huggingface.co/x/resolve/main/ggml-mpt-7b-chat.bin"}
]`

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	entries, err := NewClient(srv.URL, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].MD5Sum == "" || entries[0].Name != "Groovy" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
}

func TestClientFetch_BadStatusAndBody(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()
	if _, err := NewClient(bad.URL, nil).Fetch(context.Background()); err == nil {
		t.Fatalf("expected status error")
	}

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not a list"))
	}))
	defer garbage.Close()
	if _, err := NewClient(garbage.URL, nil).Fetch(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFindAndDownloadURL(t *testing.T) {
	entries := []Entry{
		{Filename: "a.bin"},
		{Filename: "b.bin", URL: "https://mirror.example/b.bin"},
	}
	if _, ok := Find(entries, "a"); ok {
		t.Fatalf("match must be exact")
	}
	a, ok := Find(entries, "a.bin")
	if !ok {
		t.Fatalf("a.bin not found")
	}
	if got := a.DownloadURL("https://host/models/"); got != "https://host/models/a.bin" {
		t.Fatalf("default url = %q", got)
	}
	if got := a.DownloadURL(""); got != DefaultDownloadBase+"/a.bin" {
		t.Fatalf("fallback url = %q", got)
	}
	b, _ := Find(entries, "b.bin")
	if got := b.DownloadURL("https://host"); got != "https://mirror.example/b.bin" {
		t.Fatalf("override url = %q", got)
	}
}
