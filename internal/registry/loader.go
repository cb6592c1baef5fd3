package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gptlocal/internal/common/fsutil"
	"gptlocal/pkg/types"
)

// LoadDir lists the model files in dir whose name ends with suffix
// (case-insensitive). ID is the filename; Path is absolute. Results are
// sorted by ID. Subdirectories are ignored.
func LoadDir(dir, suffix string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	suffix = strings.ToLower(suffix)
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), suffix) {
			continue
		}
		var size int64
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		models = append(models, types.Model{ID: name, Path: filepath.Join(abs, name), SizeBytes: size})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
