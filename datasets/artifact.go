package datasets

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Serialized artifact: a gzip-compressed gob stream carrying a versioned
// envelope around the Bundle. gob encodes float32 exactly, so a write
// followed by a read reproduces the arrays bit for bit.

// ArtifactExt is the required extension for dataset artifacts.
const ArtifactExt = ".dsb"

// artifactVersion is bumped when the on-disk format changes.
const artifactVersion = "dataset.v1"

type artifactEnvelope struct {
	Version string
	Bundle  Bundle
}

// SaveBundle validates b and writes it to path. The file is assembled in a
// temporary file next to path and renamed into place, so an existing
// artifact at path is left untouched if anything fails.
func SaveBundle(path string, b *Bundle) error {
	if !strings.EqualFold(filepath.Ext(path), ArtifactExt) {
		return fmt.Errorf("artifact path %s must have the %s extension", path, ArtifactExt)
	}
	if err := b.validate(); err != nil {
		return fmt.Errorf("refusing to save inconsistent bundle: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	enc := gob.NewEncoder(zw)
	if err := enc.Encode(artifactEnvelope{Version: artifactVersion, Bundle: *b}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to compress artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place at %s: %w", path, err)
	}
	return nil
}

// ReadBundle reads an artifact previously written by SaveBundle.
func ReadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("artifact %s is not gzip-compressed: %w", path, err)
	}
	defer zr.Close()

	var env artifactEnvelope
	if err := gob.NewDecoder(zr).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	if env.Version != artifactVersion {
		return nil, fmt.Errorf("artifact %s has version %q, want %q", path, env.Version, artifactVersion)
	}
	if err := env.Bundle.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s is inconsistent: %w", path, err)
	}
	return &env.Bundle, nil
}
