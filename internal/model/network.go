package model

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Network is a fully-connected sigmoid network trained with mini-batch
// gradient descent. A Network is not safe for concurrent use.
type Network struct {
	topology []int
	weights  []*mat.Dense
	biases   []*mat.VecDense
}

// Option configures New.
type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithSeed draws the initial parameters from a source seeded with seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand draws the initial parameters from rng.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// New constructs a network for topology with every weight and bias drawn
// from a standard normal distribution.
func New(topology []int, opts ...Option) (*Network, error) {
	if err := validateTopology(topology); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := &Network{topology: append([]int(nil), topology...)}
	for i := 0; i < len(topology)-1; i++ {
		rows, cols := topology[i+1], topology[i]
		w := make([]float64, rows*cols)
		for j := range w {
			w[j] = o.rng.NormFloat64()
		}
		b := make([]float64, rows)
		for j := range b {
			b[j] = o.rng.NormFloat64()
		}
		n.weights = append(n.weights, mat.NewDense(rows, cols, w))
		n.biases = append(n.biases, mat.NewVecDense(rows, b))
	}
	return n, nil
}

func validateTopology(topology []int) error {
	if len(topology) < 2 {
		return fmt.Errorf("%w: need at least 2 layers, got %d", ErrInvalidTopology, len(topology))
	}
	for i, size := range topology {
		if size <= 0 {
			return fmt.Errorf("%w: layer %d has size %d", ErrInvalidTopology, i, size)
		}
	}
	return nil
}

// Topology returns a copy of the layer sizes.
func (n *Network) Topology() []int {
	return append([]int(nil), n.topology...)
}

// Layers returns the number of connections between consecutive layers.
func (n *Network) Layers() int {
	return len(n.weights)
}

// InputSize returns the expected input vector length.
func (n *Network) InputSize() int {
	return n.topology[0]
}

// OutputSize returns the output vector length.
func (n *Network) OutputSize() int {
	return n.topology[len(n.topology)-1]
}

// Weights returns a copy of the weight matrix of connection i.
func (n *Network) Weights(i int) *mat.Dense {
	return mat.DenseCopyOf(n.weights[i])
}

// Biases returns a copy of the bias vector of connection i.
func (n *Network) Biases(i int) *mat.VecDense {
	return mat.VecDenseCopyOf(n.biases[i])
}

// Clone returns an independent deep copy, for callers that need to run
// inference from more than one goroutine.
func (n *Network) Clone() *Network {
	c := &Network{topology: n.Topology()}
	for i := range n.weights {
		c.weights = append(c.weights, mat.DenseCopyOf(n.weights[i]))
		c.biases = append(c.biases, mat.VecDenseCopyOf(n.biases[i]))
	}
	return c
}
