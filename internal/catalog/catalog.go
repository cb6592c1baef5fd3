// Package catalog fetches the remote list of downloadable models.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	// DefaultURL is the published models.json catalog.
	DefaultURL = "https://gpt4all.io/models/models.json"
	// DefaultDownloadBase is prefixed to a filename when an entry carries no url.
	DefaultDownloadBase = "https://gpt4all.io/models"
)

// Entry is one record of the catalog. Filename is the unique key.
type Entry struct {
	Filename    string `json:"filename"`
	URL         string `json:"url,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Filesize    string `json:"filesize,omitempty"`
	MD5Sum      string `json:"md5sum,omitempty"`
	Parameters  string `json:"parameters,omitempty"`
	Quant       string `json:"quant,omitempty"`
	Type        string `json:"type,omitempty"`
	IsDefault   string `json:"isDefault,omitempty"`
}

// DownloadURL returns the entry's url, or base/filename when the entry has none.
func (e Entry) DownloadURL(base string) string {
	if e.URL != "" {
		return e.URL
	}
	if base == "" {
		base = DefaultDownloadBase
	}
	return strings.TrimRight(base, "/") + "/" + e.Filename
}

// Find returns the entry whose filename equals filename exactly.
func Find(entries []Entry, filename string) (Entry, bool) {
	for _, e := range entries {
		if e.Filename == filename {
			return e, true
		}
	}
	return Entry{}, false
}

// Client fetches the catalog over HTTP. Nothing is cached between calls.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a Client for url, falling back to DefaultURL.
func NewClient(url string, hc *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{URL: url, HTTP: hc}
}

// Fetch downloads and decodes the catalog.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}
	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return entries, nil
}
