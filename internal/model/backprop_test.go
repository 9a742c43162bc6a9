package model

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestBackpropShapes(t *testing.T) {
	topology := []int{3, 4, 2}
	n, _ := New(topology, WithSeed(11))
	g, err := n.Backprop(Sample{Input: []float64{0.1, 0.5, 0.9}, Target: []float64{0, 1}})
	if err != nil {
		t.Fatalf("Backprop: %v", err)
	}
	if len(g.Weights) != 2 || len(g.Biases) != 2 {
		t.Fatalf("expected 2 gradient pairs, got %d/%d", len(g.Weights), len(g.Biases))
	}
	for i := range g.Weights {
		rows, cols := g.Weights[i].Dims()
		if rows != topology[i+1] || cols != topology[i] {
			t.Fatalf("weight gradient %d is %dx%d", i, rows, cols)
		}
		if g.Biases[i].Len() != topology[i+1] {
			t.Fatalf("bias gradient %d has len %d", i, g.Biases[i].Len())
		}
	}
}

func TestBackpropDeterministicAndReadOnly(t *testing.T) {
	n, _ := New([]int{2, 3, 2}, WithSeed(12))
	before := n.Clone()
	s := Sample{Input: []float64{0.4, 0.6}, Target: []float64{1, 0}}
	a, err := n.Backprop(s)
	if err != nil {
		t.Fatalf("Backprop: %v", err)
	}
	b, _ := n.Backprop(s)
	for i := range a.Weights {
		if !mat.Equal(a.Weights[i], b.Weights[i]) || !mat.Equal(a.Biases[i], b.Biases[i]) {
			t.Fatalf("gradients for layer %d differ between runs", i)
		}
		if !mat.Equal(before.weights[i], n.weights[i]) || !mat.Equal(before.biases[i], n.biases[i]) {
			t.Fatalf("Backprop modified layer %d", i)
		}
	}
}

func TestBackpropMatchesFiniteDifference(t *testing.T) {
	n, _ := New([]int{3, 4, 2}, WithSeed(13))
	s := Sample{Input: []float64{0.2, -0.3, 0.8}, Target: []float64{1, 0}}
	g, err := n.Backprop(s)
	if err != nil {
		t.Fatalf("Backprop: %v", err)
	}

	for layer := 0; layer < n.Layers(); layer++ {
		probe := n.Clone()
		params := probe.weights[layer].RawMatrix().Data
		x := append([]float64(nil), params...)
		cost := func(w []float64) float64 {
			copy(params, w)
			c, err := probe.Cost([]Sample{s})
			if err != nil {
				t.Fatalf("Cost: %v", err)
			}
			return c
		}
		numeric := fd.Gradient(nil, cost, x, &fd.Settings{Formula: fd.Central, Step: 1e-6})
		if !floats.EqualApprox(numeric, g.Weights[layer].RawMatrix().Data, 1e-6) {
			t.Fatalf("layer %d weight gradient mismatch:\nnumeric  %v\nanalytic %v",
				layer, numeric, g.Weights[layer].RawMatrix().Data)
		}

		probe = n.Clone()
		bias := probe.biases[layer].RawVector().Data
		xb := append([]float64(nil), bias...)
		biasCost := func(b []float64) float64 {
			copy(bias, b)
			c, _ := probe.Cost([]Sample{s})
			return c
		}
		numericBias := fd.Gradient(nil, biasCost, xb, &fd.Settings{Formula: fd.Central, Step: 1e-6})
		if !floats.EqualApprox(numericBias, g.Biases[layer].RawVector().Data, 1e-6) {
			t.Fatalf("layer %d bias gradient mismatch:\nnumeric  %v\nanalytic %v",
				layer, numericBias, g.Biases[layer].RawVector().Data)
		}
	}
}

func TestBackpropShapeMismatch(t *testing.T) {
	n, _ := New([]int{2, 3, 2}, WithSeed(1))
	cases := []Sample{
		{Input: []float64{1}, Target: []float64{1, 0}},
		{Input: []float64{1, 0}, Target: []float64{1, 0, 0}},
	}
	for _, s := range cases {
		if _, err := n.Backprop(s); !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("Backprop(%v): expected ErrShapeMismatch, got %v", s, err)
		}
	}
}

func TestCostRejectsEmpty(t *testing.T) {
	n, _ := New([]int{2, 1}, WithSeed(1))
	if _, err := n.Cost(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
