package model

// Sample pairs an input vector with its one-hot target.
type Sample struct {
	Input  []float64
	Target []float64
}

// LabeledSample pairs an input vector with its integer class label.
type LabeledSample struct {
	Input []float64
	Label int
}

// Model defines the minimal training functionality required by the trainer.
type Model interface {
	UpdateBatch(batch []Sample, learningRate float64) error
	Predict(input []float64) ([]float64, error)
}

var _ Model = (*Network)(nil)
