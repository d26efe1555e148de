package loaders

import (
	"path/filepath"
	"strings"
)

// This package provides the per-file loading strategies used by the dataset
// maker. A Loader turns one raw file on disk into a numeric array; the
// LoadContext pairs a Loader with the file extension it handles so the
// directory walker knows which files to feed it.
//
// Arrays are represented as contiguous float32 buffers along with shape
// metadata. These are trivial to convert into gomlx tensors (or any other
// tensor type) once examples have been stacked into a bundle; see the
// datasets package.

// Loader decodes a single file into a flat row-major buffer plus the shape
// of that buffer (per example, without a batch dimension).
//
// Every file loaded within one dataset run must decode to an identical
// shape; the dataset maker treats a mismatch as fatal.
type Loader interface {
	Load(path string) (data []float32, dims []int, err error)
}

// LoadContext holds a concrete Loader together with the file extension it
// is configured for. The dataset maker only ever talks to the context.
type LoadContext struct {
	loader Loader
	ext    string
}

// NewContext returns a LoadContext delegating to loader for files with the
// given extension. The extension is normalized: lowercased, leading dot
// stripped ("JPG", ".jpg" and "jpg" are all equivalent).
func NewContext(loader Loader, ext string) *LoadContext {
	return &LoadContext{
		loader: loader,
		ext:    strings.ToLower(strings.TrimPrefix(ext, ".")),
	}
}

// Load decodes the file at path using the configured loader.
func (c *LoadContext) Load(path string) ([]float32, []int, error) {
	return c.loader.Load(path)
}

// Extension returns the normalized file extension (no dot) this context is
// configured to handle.
func (c *LoadContext) Extension() string {
	return c.ext
}

// Matches reports whether name has the configured extension.
func (c *LoadContext) Matches(name string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(name), "."), c.ext)
}
