package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// trace holds the per-layer activations and logits of one forward pass.
// activations[0] is the input.
type trace struct {
	activations []*mat.VecDense
	logits      []*mat.VecDense
}

// FeedForward runs x through every layer and returns the output activation.
func (n *Network) FeedForward(x mat.Vector) (*mat.VecDense, error) {
	if x.Len() != n.InputSize() {
		return nil, fmt.Errorf("%w: input length %d, want %d", ErrShapeMismatch, x.Len(), n.InputSize())
	}
	return n.forward(x, nil), nil
}

// Predict returns the output activations for input. Each value lies in
// (0, 1) and is read as the likelihood of the matching class.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.InputSize() {
		return nil, fmt.Errorf("%w: input length %d, want %d", ErrShapeMismatch, len(input), n.InputSize())
	}
	out := n.forward(mat.NewVecDense(len(input), input), nil)
	return out.RawVector().Data, nil
}

// Classify returns the index of the largest output along with the outputs.
func (n *Network) Classify(input []float64) (int, []float64, error) {
	out, err := n.Predict(input)
	if err != nil {
		return 0, nil, err
	}
	return floats.MaxIdx(out), out, nil
}

// forward assumes x has already been checked against the input size. When
// tr is non-nil every intermediate vector is recorded into it.
func (n *Network) forward(x mat.Vector, tr *trace) *mat.VecDense {
	activation := mat.VecDenseCopyOf(x)
	if tr != nil {
		tr.activations = append(tr.activations[:0], activation)
		tr.logits = tr.logits[:0]
	}
	for i, w := range n.weights {
		logit := mat.NewVecDense(w.RawMatrix().Rows, nil)
		logit.MulVec(w, activation)
		logit.AddVec(logit, n.biases[i])
		activation = Sigmoid(logit)
		if tr != nil {
			tr.logits = append(tr.logits, logit)
			tr.activations = append(tr.activations, activation)
		}
	}
	return activation
}
