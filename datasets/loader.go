package datasets

import (
	"fmt"
	"math/rand"
	"sort"
)

// BundleLoader reconstructs a Bundle from a serialized artifact. Every Load
// call re-reads the artifact from storage; nothing is cached between calls.
type BundleLoader struct {
	path string
}

// NewBundleLoader returns a loader reading the artifact at path.
func NewBundleLoader(path string) *BundleLoader {
	return &BundleLoader{path: path}
}

// LoadOptions controls how the reloaded bundle is presented.
//
// The zero value returns scalar class ids, so callers wanting the stored
// one-hot rows set OneHotLabel explicitly.
type LoadOptions struct {
	// Flatten reshapes Data to [N, product of the remaining dimensions].
	Flatten bool

	// OneHotLabel keeps Target as the stored one-hot rows. When false the
	// target becomes a 1-D array of class ids (argmax per row).
	OneHotLabel bool

	// Shuffle permutes data and target together, preserving row pairing.
	Shuffle bool

	// Seed drives the shuffle and sampling RNG.
	Seed int64

	// PickSize samples that many examples without replacement, keeping the
	// original row order. Zero disables sampling; otherwise it must be
	// smaller than the number of examples.
	PickSize int
}

// Load re-reads the artifact and applies opts. TargetNames pass through
// unchanged.
func (l *BundleLoader) Load(opts LoadOptions) (*Bundle, error) {
	b, err := ReadBundle(l.path)
	if err != nil {
		return nil, err
	}

	if opts.Flatten {
		b.DataShape = []int{b.NumExamples(), b.FeatureSize()}
	}
	if !opts.OneHotLabel {
		toScalarLabels(b)
	}
	if opts.PickSize > 0 {
		if err := sample(b, opts.PickSize, opts.Seed); err != nil {
			return nil, err
		}
	}
	if opts.Shuffle {
		shuffle(b, opts.Seed)
	}
	return b, nil
}

// toScalarLabels converts one-hot target rows to the index of the maximum
// column, giving TargetShape [N].
func toScalarLabels(b *Bundle) {
	if !b.OneHot() {
		return
	}
	n, c := b.TargetShape[0], b.TargetShape[1]
	labels := make([]float32, n)
	for i := 0; i < n; i++ {
		row := b.Target[i*c : (i+1)*c]
		best := 0
		for j := 1; j < c; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		labels[i] = float32(best)
	}
	b.Target = labels
	b.TargetShape = []int{n}
}

// targetCols returns the per-example width of the target array.
func targetCols(b *Bundle) int {
	if b.OneHot() {
		return b.TargetShape[1]
	}
	return 1
}

// reindex rebuilds data and target keeping only the rows in perm, in perm
// order.
func reindex(b *Bundle, perm []int) {
	featSize := b.FeatureSize()
	cols := targetCols(b)

	data := make([]float32, 0, len(perm)*featSize)
	target := make([]float32, 0, len(perm)*cols)
	for _, i := range perm {
		data = append(data, b.Data[i*featSize:(i+1)*featSize]...)
		target = append(target, b.Target[i*cols:(i+1)*cols]...)
	}

	b.Data = data
	b.Target = target
	b.DataShape = append([]int{len(perm)}, b.DataShape[1:]...)
	b.TargetShape = append([]int{len(perm)}, b.TargetShape[1:]...)
}

// sample keeps size examples drawn without replacement, in their original
// relative order.
func sample(b *Bundle, size int, seed int64) error {
	n := b.NumExamples()
	if size >= n {
		return fmt.Errorf("sample size %d must be smaller than the %d examples", size, n)
	}
	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(n)[:size]
	sort.Ints(picked)
	reindex(b, picked)
	return nil
}

// shuffle permutes the examples with a seeded RNG, keeping the data/target
// pairing intact.
func shuffle(b *Bundle, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	reindex(b, rng.Perm(b.NumExamples()))
}
