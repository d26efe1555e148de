package datasets

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowgrove/datacrate/loaders"
)

// stubLoader decodes any file into a fixed shape whose values are derived
// from the file contents, so tests can tell examples apart.
type stubLoader struct {
	dims []int
	fail string // base name that triggers a decode error
}

func (s *stubLoader) Load(path string) ([]float32, []int, error) {
	if s.fail != "" && filepath.Base(path) == s.fail {
		return nil, nil, fmt.Errorf("failed to decode %s: stub failure", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	size := 1
	for _, d := range s.dims {
		size *= d
	}
	buf := make([]float32, size)
	seed := float32(0)
	if len(raw) > 0 {
		seed = float32(raw[0])
	}
	for i := range buf {
		buf[i] = seed
	}
	return buf, s.dims, nil
}

// mismatchLoader returns a different shape for one file.
type mismatchLoader struct {
	odd string
}

func (m *mismatchLoader) Load(path string) ([]float32, []int, error) {
	if filepath.Base(path) == m.odd {
		return make([]float32, 4), []int{4}, nil
	}
	return make([]float32, 6), []int{6}, nil
}

// writeTree lays out class directories with numbered data files. Each file's
// first byte is its class index, which the stub loader echoes into the
// feature values.
func writeTree(t *testing.T, root string, classes []string, filesPerClass int) {
	t.Helper()
	for ci, class := range classes {
		dir := filepath.Join(root, class)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create class dir: %v", err)
		}
		for i := 0; i < filesPerClass; i++ {
			path := filepath.Join(dir, fmt.Sprintf("f%03d.dat", i))
			if err := os.WriteFile(path, []byte{byte(ci)}, 0o644); err != nil {
				t.Fatalf("failed to write data file: %v", err)
			}
		}
	}
}

func TestMaker_ThreeClassScenario(t *testing.T) {
	tmp := t.TempDir()
	classes := []string{"0_black", "1_red", "2_blue"}
	writeTree(t, tmp, classes, 3)

	ctx := loaders.NewContext(&stubLoader{dims: []int{90, 160, 3}}, "dat")
	b, err := NewMaker(ctx, tmp).CreateDataSet()
	if err != nil {
		t.Fatalf("CreateDataSet failed: %v", err)
	}

	wantShape := []int{9, 90, 160, 3}
	if !equalDims(b.DataShape, wantShape) {
		t.Fatalf("data shape %v, want %v", b.DataShape, wantShape)
	}
	if !equalDims(b.TargetShape, []int{9, 3}) {
		t.Fatalf("target shape %v, want [9 3]", b.TargetShape)
	}
	for i, want := range classes {
		if b.TargetNames[i] != want {
			t.Fatalf("TargetNames[%d] = %q, want %q", i, b.TargetNames[i], want)
		}
	}

	// every one-hot row sums to 1, and the first three rows are class 0
	for i := 0; i < 9; i++ {
		row := b.Target[i*3 : (i+1)*3]
		sum := float32(0)
		for _, v := range row {
			sum += v
		}
		if sum != 1 {
			t.Fatalf("target row %d sums to %v, want 1", i, sum)
		}
	}
	for i := 0; i < 3; i++ {
		row := b.Target[i*3 : (i+1)*3]
		if row[0] != 1 || row[1] != 0 || row[2] != 0 {
			t.Fatalf("target row %d = %v, want [1 0 0]", i, row)
		}
	}

	// stub encodes the class index into the features
	featSize := b.FeatureSize()
	if b.Data[0] != 0 || b.Data[3*featSize] != 1 || b.Data[6*featSize] != 2 {
		t.Fatalf("feature values not grouped by class")
	}
}

func TestMaker_EmptyClassKeepsName(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, []string{"a", "c"}, 2)
	if err := os.MkdirAll(filepath.Join(tmp, "b"), 0o755); err != nil {
		t.Fatalf("failed to create empty class dir: %v", err)
	}

	ctx := loaders.NewContext(&stubLoader{dims: []int{2}}, "dat")
	b, err := NewMaker(ctx, tmp).CreateDataSet()
	if err != nil {
		t.Fatalf("CreateDataSet failed: %v", err)
	}

	if len(b.TargetNames) != 3 || b.TargetNames[1] != "b" {
		t.Fatalf("TargetNames = %v, want the empty class retained", b.TargetNames)
	}
	if b.NumExamples() != 4 {
		t.Fatalf("NumExamples = %d, want 4", b.NumExamples())
	}
	// no row may label the empty class
	for i := 0; i < 4; i++ {
		if b.Target[i*3+1] != 0 {
			t.Fatalf("row %d labels the empty class", i)
		}
	}
}

func TestMaker_NoSubdirsUsesRootAsClass(t *testing.T) {
	tmp := t.TempDir()
	for i := 0; i < 2; i++ {
		path := filepath.Join(tmp, fmt.Sprintf("f%d.dat", i))
		if err := os.WriteFile(path, []byte{7}, 0o644); err != nil {
			t.Fatalf("failed to write data file: %v", err)
		}
	}

	ctx := loaders.NewContext(&stubLoader{dims: []int{2}}, "dat")
	b, err := NewMaker(ctx, tmp).CreateDataSet()
	if err != nil {
		t.Fatalf("CreateDataSet failed: %v", err)
	}
	if len(b.TargetNames) != 1 || b.TargetNames[0] != filepath.Base(tmp) {
		t.Fatalf("TargetNames = %v, want the source root as single class", b.TargetNames)
	}
	if b.NumExamples() != 2 {
		t.Fatalf("NumExamples = %d, want 2", b.NumExamples())
	}
}

func TestMaker_MissingSourceDir(t *testing.T) {
	ctx := loaders.NewContext(&stubLoader{dims: []int{2}}, "dat")
	if _, err := NewMaker(ctx, filepath.Join(t.TempDir(), "nope")).CreateDataSet(); err == nil {
		t.Fatalf("expected error for missing source dir, got nil")
	}
}

func TestMaker_NoMatchingFiles(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, []string{"a"}, 2)

	ctx := loaders.NewContext(&stubLoader{dims: []int{2}}, "jpg")
	if _, err := NewMaker(ctx, tmp).CreateDataSet(); err == nil {
		t.Fatalf("expected error when no files match the extension, got nil")
	}
}

func TestMaker_ShapeMismatchFatal(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, []string{"a"}, 3)

	ctx := loaders.NewContext(&mismatchLoader{odd: "f001.dat"}, "dat")
	if _, err := NewMaker(ctx, tmp).CreateDataSet(); err == nil {
		t.Fatalf("expected shape mismatch error, got nil")
	}
}

func TestMaker_DecodeFailureLeavesArtifactUntouched(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	writeTree(t, src, []string{"a", "b"}, 2)

	out := filepath.Join(tmp, "dataset.dsb")

	// a first successful run produces the artifact
	good := loaders.NewContext(&stubLoader{dims: []int{2}}, "dat")
	if err := NewMaker(good, src).CreateAndSaveDataSet(out); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}
	before, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read artifact: %v", err)
	}

	// a later run with a failing file must not touch it
	bad := loaders.NewContext(&stubLoader{dims: []int{2}, fail: "f001.dat"}, "dat")
	if err := NewMaker(bad, src).CreateAndSaveDataSet(out); err == nil {
		t.Fatalf("expected decode failure, got nil")
	}
	after, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("artifact disappeared after failed run: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("artifact changed after a failed run")
	}
}
