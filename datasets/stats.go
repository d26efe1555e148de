package datasets

import (
	"gonum.org/v1/gonum/stat"
)

// Summary describes a bundle at a glance: how many examples each class
// contributes and the spread of the raw feature values. The CLI prints it
// after a build so a bad source tree shows up immediately.
type Summary struct {
	NumExamples int
	NumClasses  int

	// ClassCounts[i] is the number of examples labeled TargetNames[i].
	ClassCounts []int

	// FeatureMean and FeatureStd are computed over every value of the
	// feature array.
	FeatureMean float64
	FeatureStd  float64
}

// Summarize computes a Summary for b. Works on both one-hot and scalar-label
// bundles.
func Summarize(b *Bundle) Summary {
	s := Summary{
		NumExamples: b.NumExamples(),
		NumClasses:  b.NumClasses(),
		ClassCounts: make([]int, b.NumClasses()),
	}

	if b.OneHot() {
		c := b.TargetShape[1]
		for i := 0; i < s.NumExamples; i++ {
			row := b.Target[i*c : (i+1)*c]
			for j, v := range row {
				if v == 1 {
					s.ClassCounts[j]++
					break
				}
			}
		}
	} else {
		for _, v := range b.Target {
			idx := int(v)
			if idx >= 0 && idx < len(s.ClassCounts) {
				s.ClassCounts[idx]++
			}
		}
	}

	if len(b.Data) > 0 {
		values := make([]float64, len(b.Data))
		for i, v := range b.Data {
			values[i] = float64(v)
		}
		s.FeatureMean, s.FeatureStd = stat.MeanStdDev(values, nil)
	}
	return s
}
