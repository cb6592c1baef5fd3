package config

import (
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/gptlocal-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidFiles(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "threads: [unclosed\n",
		"bad.yml":  "threads: not-a-number\n",
		"bad.json": `{ "addr": ":8080", "models_dir": }`,
		"bad.toml": "addr=:8080\nmodels_dir\n",
	}
	for name, content := range cases {
		p := writeTempFile(t, d, name, content)
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestLoad_ExtensionCaseInsensitive(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "CFG.YAML", "model: upper\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model != "upper" {
		t.Fatalf("model=%q", cfg.Model)
	}
}
