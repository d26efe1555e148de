package datasets

import "fmt"

// This package builds, persists and reloads array datasets from class-labeled
// directory trees. A directory tree like
//
//	data_src/
//	  0_black/ img001.jpg img002.jpg ...
//	  1_red/   img001.jpg ...
//	  2_blue/  img001.jpg ...
//
// becomes one Bundle: every file decoded by a loaders.LoadContext and stacked
// into a feature array, one-hot labels derived from the directory a file came
// from, and the directory names kept as the class names.
//
// Notes on gomlx tensors:
//   - Arrays are stored as contiguous float32 buffers along with shape
//     metadata. These are trivial to convert into gomlx tensors (or any other
//     tensor type) in training code; see ToTensors and TrainDataset in
//     gomlx.go.

// Bundle is the in-memory dataset: features, labels and class names.
//
// Data is row-major with DataShape the full shape including the leading
// batch dimension, e.g. [9, 90, 160, 3] for nine 90x160 RGB images.
// Target is either one-hot with TargetShape [N, C], or scalar class ids
// with TargetShape [N] after conversion by a BundleLoader.
type Bundle struct {
	Data        []float32
	DataShape   []int
	Target      []float32
	TargetShape []int
	TargetNames []string
}

// NumExamples returns the leading dimension of the feature array.
func (b *Bundle) NumExamples() int {
	if len(b.DataShape) == 0 {
		return 0
	}
	return b.DataShape[0]
}

// FeatureSize returns the number of values in a single example.
func (b *Bundle) FeatureSize() int {
	if len(b.DataShape) == 0 {
		return 0
	}
	size := 1
	for _, d := range b.DataShape[1:] {
		size *= d
	}
	return size
}

// NumClasses returns the number of classes in the bundle.
func (b *Bundle) NumClasses() int {
	return len(b.TargetNames)
}

// OneHot reports whether the target array still carries one-hot rows.
func (b *Bundle) OneHot() bool {
	return len(b.TargetShape) == 2
}

// validate checks the cross-array invariants before the bundle is persisted
// or handed to a consumer.
func (b *Bundle) validate() error {
	n := b.NumExamples()
	if len(b.TargetShape) == 0 || b.TargetShape[0] != n {
		return fmt.Errorf("data has %d examples but target shape is %v", n, b.TargetShape)
	}
	if len(b.Data) != n*b.FeatureSize() {
		return fmt.Errorf("data buffer length %d does not match shape %v", len(b.Data), b.DataShape)
	}
	if b.OneHot() && b.TargetShape[1] != len(b.TargetNames) {
		return fmt.Errorf("target has %d columns but %d class names", b.TargetShape[1], len(b.TargetNames))
	}
	return nil
}
