package datasets

import (
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// ToTensors converts the bundle into gomlx tensors. Data is flattened to
// [N, featureSize] (the shape gomlx dense layers consume); Target keeps its
// stored shape, [N, C] one-hot or [N] scalar ids.
func (b *Bundle) ToTensors() (data, target *tensors.Tensor, err error) {
	if err := b.validate(); err != nil {
		return nil, nil, err
	}

	n := b.NumExamples()
	featSize := b.FeatureSize()

	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		rows[i] = b.Data[i*featSize : (i+1)*featSize]
	}
	data = tensors.FromAnyValue(rows)

	if b.OneHot() {
		c := b.TargetShape[1]
		labels := make([][]float32, n)
		for i := 0; i < n; i++ {
			labels[i] = b.Target[i*c : (i+1)*c]
		}
		target = tensors.FromAnyValue(labels)
	} else {
		target = tensors.FromAnyValue(b.Target)
	}
	return data, target, nil
}

// TrainDataset presents a Bundle as a batch-yielding dataset for gomlx
// training loops: Yield hands out mini-batches in order and returns io.EOF
// once the epoch is exhausted; Reset starts the next epoch.
type TrainDataset struct {
	// BatchSize per Yield call. The final batch of an epoch may be short.
	BatchSize int

	bundle *Bundle
	next   int
}

// NewTrainDataset wraps b for training. batchSize defaults to 32 when zero.
func NewTrainDataset(b *Bundle, batchSize int) (*TrainDataset, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	return &TrainDataset{BatchSize: batchSize, bundle: b}, nil
}

// Name returns the name of the dataset.
func (d *TrainDataset) Name() string {
	return "BundleDataset"
}

// Reset rewinds the dataset to the start of an epoch.
func (d *TrainDataset) Reset() {
	d.next = 0
}

// Yield returns the next mini-batch as gomlx tensors. It returns io.EOF
// when the epoch is done.
func (d *TrainDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	n := d.bundle.NumExamples()
	if d.next >= n {
		return nil, nil, nil, io.EOF
	}

	end := d.next + d.BatchSize
	if end > n {
		end = n
	}

	featSize := d.bundle.FeatureSize()
	rows := make([][]float32, end-d.next)
	for i := d.next; i < end; i++ {
		rows[i-d.next] = d.bundle.Data[i*featSize : (i+1)*featSize]
	}

	var target *tensors.Tensor
	if d.bundle.OneHot() {
		c := d.bundle.TargetShape[1]
		oneHot := make([][]float32, end-d.next)
		for i := d.next; i < end; i++ {
			oneHot[i-d.next] = d.bundle.Target[i*c : (i+1)*c]
		}
		target = tensors.FromAnyValue(oneHot)
	} else {
		target = tensors.FromAnyValue(d.bundle.Target[d.next:end])
	}

	d.next = end
	return nil, []*tensors.Tensor{tensors.FromAnyValue(rows)}, []*tensors.Tensor{target}, nil
}
