package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gptlocal/internal/catalog"
	"gptlocal/internal/llm"
	"gptlocal/internal/resolver"
)

// Config holds runtime parameters for the library, CLI and HTTP server.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	Model     string `json:"model" yaml:"model" toml:"model"`
	// AllowDownload defaults to true when unset.
	AllowDownload   *bool  `json:"allow_download" yaml:"allow_download" toml:"allow_download"`
	Threads         int    `json:"threads" yaml:"threads" toml:"threads"`
	ContextSize     int    `json:"context_size" yaml:"context_size" toml:"context_size"`
	CatalogURL      string `json:"catalog_url" yaml:"catalog_url" toml:"catalog_url"`
	DownloadBaseURL string `json:"download_base_url" yaml:"download_base_url" toml:"download_base_url"`
	ModelSuffix     string `json:"model_suffix" yaml:"model_suffix" toml:"model_suffix"`
	VerifyChecksum  bool   `json:"verify_checksum" yaml:"verify_checksum" toml:"verify_checksum"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFile         string `json:"log_file" yaml:"log_file" toml:"log_file"`
	// Header and Footer default to true when unset.
	Header   *bool              `json:"header" yaml:"header" toml:"header"`
	Footer   *bool              `json:"footer" yaml:"footer" toml:"footer"`
	Sampling llm.SamplingParams `json:"sampling" yaml:"sampling" toml:"sampling"`
	CORS     CORSConfig         `json:"cors" yaml:"cors" toml:"cors"`
}

// CORSConfig enables cross-origin requests on the HTTP server.
type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
}

// Defaults used for unset fields.
const (
	DefaultAddr     = ":4891"
	DefaultLogLevel = "info"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// WithDefaults returns c with unset fields filled in. ModelsDir is left
// empty so the resolver falls back to its per-user cache directory.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.CatalogURL == "" {
		c.CatalogURL = catalog.DefaultURL
	}
	if c.DownloadBaseURL == "" {
		c.DownloadBaseURL = catalog.DefaultDownloadBase
	}
	if c.ModelSuffix == "" {
		c.ModelSuffix = resolver.DefaultSuffix
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Sampling = c.Sampling.WithDefaults()
	return c
}

// DownloadsAllowed reports the effective allow_download setting.
func (c Config) DownloadsAllowed() bool { return c.AllowDownload == nil || *c.AllowDownload }

// HeaderEnabled reports the effective header setting.
func (c Config) HeaderEnabled() bool { return c.Header == nil || *c.Header }

// FooterEnabled reports the effective footer setting.
func (c Config) FooterEnabled() bool { return c.Footer == nil || *c.Footer }

// ResolverConfig projects the resolver settings.
func (c Config) ResolverConfig() resolver.Config {
	return resolver.Config{
		DefaultDir:     c.ModelsDir,
		Suffix:         c.ModelSuffix,
		DownloadBase:   c.DownloadBaseURL,
		VerifyChecksum: c.VerifyChecksum,
	}
}
