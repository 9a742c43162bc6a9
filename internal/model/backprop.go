package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gradients holds one weight-gradient matrix and one bias-gradient vector
// per connection, shaped like the network parameters.
type Gradients struct {
	Weights []*mat.Dense
	Biases  []*mat.VecDense
}

func newGradients(topology []int) *Gradients {
	g := &Gradients{}
	for i := 0; i < len(topology)-1; i++ {
		g.Weights = append(g.Weights, mat.NewDense(topology[i+1], topology[i], nil))
		g.Biases = append(g.Biases, mat.NewVecDense(topology[i+1], nil))
	}
	return g
}

// Backprop computes the gradient of the quadratic cost for a single sample
// with respect to every weight and bias. The network is not modified.
func (n *Network) Backprop(s Sample) (*Gradients, error) {
	g := newGradients(n.topology)
	if err := n.backprop(s, g); err != nil {
		return nil, err
	}
	return g, nil
}

// backprop adds the gradients for s into acc.
func (n *Network) backprop(s Sample, acc *Gradients) error {
	if err := n.checkSample(s); err != nil {
		return err
	}
	var tr trace
	n.forward(mat.NewVecDense(len(s.Input), s.Input), &tr)

	last := len(n.weights) - 1
	output := tr.activations[len(tr.activations)-1]

	delta := mat.NewVecDense(output.Len(), nil)
	delta.SubVec(output, mat.NewVecDense(len(s.Target), s.Target))
	delta.MulElemVec(delta, SigmoidPrime(tr.logits[last]))

	for k := last; k >= 0; k-- {
		if k < last {
			next := mat.NewVecDense(n.topology[k+1], nil)
			next.MulVec(n.weights[k+1].T(), delta)
			next.MulElemVec(next, SigmoidPrime(tr.logits[k]))
			delta = next
		}
		acc.Weights[k].RankOne(acc.Weights[k], 1, delta, tr.activations[k])
		acc.Biases[k].AddVec(acc.Biases[k], delta)
	}
	return nil
}

func (n *Network) checkSample(s Sample) error {
	if len(s.Input) != n.InputSize() {
		return fmt.Errorf("%w: input length %d, want %d", ErrShapeMismatch, len(s.Input), n.InputSize())
	}
	if len(s.Target) != n.OutputSize() {
		return fmt.Errorf("%w: target length %d, want %d", ErrShapeMismatch, len(s.Target), n.OutputSize())
	}
	return nil
}

// Cost returns the quadratic cost ½‖a−y‖² averaged over samples.
func (n *Network) Cost(samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrInvalidArgument)
	}
	total := 0.0
	for _, s := range samples {
		if err := n.checkSample(s); err != nil {
			return 0, err
		}
		out, err := n.Predict(s.Input)
		if err != nil {
			return 0, err
		}
		d := floats.Distance(out, s.Target, 2)
		total += 0.5 * d * d
	}
	return total / float64(len(samples)), nil
}
