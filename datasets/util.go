package datasets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hollowgrove/datacrate/loaders"
)

// classDirs returns the immediate subdirectories of srcDir, one per class,
// sorted by name. Class indices are assigned in this order, so the ordering
// is part of the dataset contract.
//
// When srcDir contains no subdirectories at all, srcDir itself is treated as
// a single class named after its base name.
func classDirs(srcDir string) ([]string, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("source directory %s does not exist: %w", srcDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", srcDir)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", srcDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(srcDir, e.Name()))
		}
	}
	if len(dirs) == 0 {
		dirs = []string{srcDir}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// classFiles returns the files in dir matching the context's extension,
// sorted by name.
func classFiles(dir string, ctx *loaders.LoadContext) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read class directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ctx.Matches(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// equalDims reports whether two per-example shapes match exactly.
func equalDims(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
