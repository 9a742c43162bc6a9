package model

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
)

// UpdateBatch applies one gradient-descent step averaged over batch.
// Parameters are only written once every sample has been backpropagated,
// so a failing sample leaves the network untouched.
func (n *Network) UpdateBatch(batch []Sample, learningRate float64) error {
	if len(batch) == 0 {
		return fmt.Errorf("%w: empty batch", ErrInvalidArgument)
	}
	if !(learningRate > 0) || math.IsInf(learningRate, 1) {
		return fmt.Errorf("%w: learning rate must be finite and > 0 (got %g)", ErrInvalidArgument, learningRate)
	}

	acc := newGradients(n.topology)
	for i, s := range batch {
		if err := n.backprop(s, acc); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}

	scale := -learningRate / float64(len(batch))
	for i := range n.weights {
		floats.AddScaled(n.weights[i].RawMatrix().Data, scale, acc.Weights[i].RawMatrix().Data)
		floats.AddScaled(n.biases[i].RawVector().Data, scale, acc.Biases[i].RawVector().Data)
	}
	return nil
}

// Batcher partitions samples into consecutive batches of at most size
// elements. Batches are sub-slices of the original collection.
type Batcher struct {
	samples []Sample
	size    int
	pos     int
}

// NewBatcher returns a Batcher positioned at the first batch.
func NewBatcher(samples []Sample, size int) *Batcher {
	return &Batcher{samples: samples, size: size}
}

// Next returns the next batch, or false once the collection is exhausted.
func (b *Batcher) Next() ([]Sample, bool) {
	if b.size <= 0 || b.pos >= len(b.samples) {
		return nil, false
	}
	end := b.pos + b.size
	if end > len(b.samples) {
		end = len(b.samples)
	}
	batch := b.samples[b.pos:end:end]
	b.pos = end
	return batch, true
}

// Reset rewinds to the first batch.
func (b *Batcher) Reset() {
	b.pos = 0
}

// Len reports the number of batches in one pass.
func (b *Batcher) Len() int {
	if b.size <= 0 {
		return 0
	}
	return (len(b.samples) + b.size - 1) / b.size
}

// EpochReport describes a completed pass over the training set.
type EpochReport struct {
	Epoch    int
	Batches  int
	Samples  int
	Duration time.Duration
}

// ProgressFunc is notified after every epoch.
type ProgressFunc func(EpochReport)

// TrainOption configures Train.
type TrainOption func(*trainOptions)

type trainOptions struct {
	progress ProgressFunc
	shuffle  *rand.Rand
}

// WithProgress replaces the default per-epoch log line.
func WithProgress(fn ProgressFunc) TrainOption {
	return func(o *trainOptions) {
		o.progress = fn
	}
}

// WithShuffle reorders the samples with rng before every epoch. The
// caller's slice is not modified. Without it samples are visited in order.
func WithShuffle(rng *rand.Rand) TrainOption {
	return func(o *trainOptions) {
		o.shuffle = rng
	}
}

// LogProgress is the default ProgressFunc.
func LogProgress(r EpochReport) {
	log.Printf("epoch=%d completed batches=%d samples=%d elapsed=%s",
		r.Epoch, r.Batches, r.Samples, r.Duration.Round(time.Millisecond))
}

// Train runs mini-batch gradient descent for the given number of epochs.
func (n *Network) Train(samples []Sample, epochs, batchSize int, learningRate float64, opts ...TrainOption) error {
	if epochs <= 0 {
		return fmt.Errorf("%w: epochs must be > 0 (got %d)", ErrInvalidArgument, epochs)
	}
	o := trainOptions{progress: LogProgress}
	for _, opt := range opts {
		opt(&o)
	}

	order := samples
	if o.shuffle != nil {
		order = append([]Sample(nil), samples...)
	}
	for epoch := 0; epoch < epochs; epoch++ {
		if o.shuffle != nil {
			o.shuffle.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}
		report, err := n.TrainEpoch(order, batchSize, learningRate)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		report.Epoch = epoch
		if o.progress != nil {
			o.progress(report)
		}
	}
	return nil
}

// TrainEpoch makes one pass over samples in order, updating after every
// batch. The returned report has Epoch left at zero.
func (n *Network) TrainEpoch(samples []Sample, batchSize int, learningRate float64) (EpochReport, error) {
	if len(samples) == 0 {
		return EpochReport{}, fmt.Errorf("%w: no samples", ErrInvalidArgument)
	}
	if batchSize <= 0 {
		return EpochReport{}, fmt.Errorf("%w: batch size must be > 0 (got %d)", ErrInvalidArgument, batchSize)
	}
	start := time.Now()
	report := EpochReport{}
	batches := NewBatcher(samples, batchSize)
	for {
		batch, ok := batches.Next()
		if !ok {
			break
		}
		if err := n.UpdateBatch(batch, learningRate); err != nil {
			return report, fmt.Errorf("batch %d: %w", report.Batches, err)
		}
		report.Batches++
		report.Samples += len(batch)
	}
	report.Duration = time.Since(start)
	return report, nil
}
