package datasets

import (
	"fmt"
	"path/filepath"

	"github.com/hollowgrove/datacrate/loaders"
)

// Maker walks a class-labeled directory tree and assembles a Bundle: each
// immediate subdirectory of the source root is one class, each file matching
// the context's extension is one example.
//
// The whole dataset is materialized in memory before anything is written, so
// a decode failure or shape mismatch aborts the run without touching the
// output path.
type Maker struct {
	ctx    *loaders.LoadContext
	srcDir string
}

// NewMaker returns a Maker reading from srcDir through ctx.
func NewMaker(ctx *loaders.LoadContext, srcDir string) *Maker {
	return &Maker{ctx: ctx, srcDir: srcDir}
}

// CreateDataSet enumerates the class directories, loads every matching file
// and stacks the results into a Bundle with one-hot targets.
//
// Class directories are visited in sorted name order and files within a
// class in sorted name order. A class directory with no matching files keeps
// its entry in TargetNames and contributes zero rows. All files must decode
// to one shape; the first file fixes it.
func (m *Maker) CreateDataSet() (*Bundle, error) {
	dirs, err := classDirs(m.srcDir)
	if err != nil {
		return nil, err
	}

	targetNames := make([]string, len(dirs))
	for i, dir := range dirs {
		targetNames[i] = filepath.Base(dir)
	}
	numClasses := len(targetNames)

	var (
		data        []float32
		target      []float32
		exampleDims []int
		numExamples int
	)

	for classIdx, dir := range dirs {
		files, err := classFiles(dir, m.ctx)
		if err != nil {
			return nil, err
		}

		for _, path := range files {
			buf, dims, err := m.ctx.Load(path)
			if err != nil {
				return nil, err
			}
			if exampleDims == nil {
				exampleDims = dims
			} else if !equalDims(dims, exampleDims) {
				return nil, fmt.Errorf("file %s decoded to shape %v, want %v", path, dims, exampleDims)
			}

			data = append(data, buf...)

			row := make([]float32, numClasses)
			row[classIdx] = 1
			target = append(target, row...)
			numExamples++
		}
	}

	if numExamples == 0 {
		return nil, fmt.Errorf("no files with extension %q found under %s", m.ctx.Extension(), m.srcDir)
	}

	b := &Bundle{
		Data:        data,
		DataShape:   append([]int{numExamples}, exampleDims...),
		Target:      target,
		TargetShape: []int{numExamples, numClasses},
		TargetNames: targetNames,
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateAndSaveDataSet builds the dataset and serializes it to outPath.
// Nothing is written unless the whole dataset assembled cleanly.
func (m *Maker) CreateAndSaveDataSet(outPath string) error {
	b, err := m.CreateDataSet()
	if err != nil {
		return err
	}
	return SaveBundle(outPath, b)
}
