package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func sigmoidPrime(z float64) float64 {
	s := sigmoid(z)
	return s * (1 - s)
}

// Sigmoid returns the element-wise logistic function of z.
func Sigmoid(z mat.Vector) *mat.VecDense {
	return apply(z, sigmoid)
}

// SigmoidPrime returns the element-wise derivative of Sigmoid at z.
func SigmoidPrime(z mat.Vector) *mat.VecDense {
	return apply(z, sigmoidPrime)
}

func apply(z mat.Vector, fn func(float64) float64) *mat.VecDense {
	out := mat.NewVecDense(z.Len(), nil)
	for i := 0; i < z.Len(); i++ {
		out.SetVec(i, fn(z.AtVec(i)))
	}
	return out
}
