package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// fileMode is applied to saved parameter files; CreateTemp creates 0600.
const fileMode = 0o644

// parameters is the on-disk record. Biases are stored as rows×1 nested
// arrays so files match the column-vector layout of the weights.
type parameters struct {
	Weights [][][]float64 `json:"weights"`
	Biases  [][][]float64 `json:"biases"`
}

func (n *Network) toParameters() parameters {
	p := parameters{
		Weights: make([][][]float64, len(n.weights)),
		Biases:  make([][][]float64, len(n.biases)),
	}
	for i, w := range n.weights {
		rows, _ := w.Dims()
		p.Weights[i] = make([][]float64, rows)
		for r := 0; r < rows; r++ {
			p.Weights[i][r] = mat.Row(nil, r, w)
		}
	}
	for i, b := range n.biases {
		p.Biases[i] = make([][]float64, b.Len())
		for r := 0; r < b.Len(); r++ {
			p.Biases[i][r] = []float64{b.AtVec(r)}
		}
	}
	return p
}

// WriteTo writes the parameters as a JSON document to w.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(n.toParameters())
	if err != nil {
		return 0, fmt.Errorf("encode parameters: %w", err)
	}
	written, err := w.Write(data)
	return int64(written), err
}

// Save writes the parameters to path. The file is replaced atomically so a
// failed save never leaves a truncated record behind.
func (n *Network) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	if _, err := n.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save parameters: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save parameters: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save parameters: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save parameters: %w", err)
	}
	return nil
}

// ReadFrom replaces every weight and bias with the record read from r. The
// record must match the network topology; on any error the current
// parameters are kept.
func (n *Network) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read parameters: %w", err)
	}
	p, err := decodeParameters(data)
	if err != nil {
		return int64(len(data)), err
	}
	weights, biases, err := p.build(n.topology)
	if err != nil {
		return int64(len(data)), err
	}
	n.weights, n.biases = weights, biases
	return int64(len(data)), nil
}

// Load replaces the parameters with the record stored at path.
func (n *Network) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load parameters: %w", err)
	}
	defer f.Close()
	if _, err := n.ReadFrom(f); err != nil {
		return fmt.Errorf("load parameters %s: %w", path, err)
	}
	return nil
}

// Open builds a network whose topology is taken from the record at path.
// It is the usual way to get a network for inference.
func Open(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open parameters: %w", err)
	}
	p, err := decodeParameters(data)
	if err != nil {
		return nil, fmt.Errorf("open parameters %s: %w", path, err)
	}
	topology, err := p.topology()
	if err != nil {
		return nil, fmt.Errorf("open parameters %s: %w", path, err)
	}
	weights, biases, err := p.build(topology)
	if err != nil {
		return nil, fmt.Errorf("open parameters %s: %w", path, err)
	}
	return &Network{topology: topology, weights: weights, biases: biases}, nil
}

// decodeParameters requires exactly the "weights" and "biases" fields, matched
// case-sensitively, and rejects null anywhere inside them.
func decodeParameters(data []byte) (parameters, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return parameters{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	var p parameters
	for _, f := range []struct {
		name string
		dst  *[][][]float64
	}{{"weights", &p.Weights}, {"biases", &p.Biases}} {
		raw, ok := fields[f.name]
		if !ok {
			return parameters{}, fmt.Errorf("%w: missing %q field", ErrFormat, f.name)
		}
		v, err := decodeTensors(raw)
		if err != nil {
			return parameters{}, fmt.Errorf("%w: %s: %v", ErrFormat, f.name, err)
		}
		*f.dst = v
	}
	for name := range fields {
		if name != "weights" && name != "biases" {
			return parameters{}, fmt.Errorf("%w: unknown field %q", ErrFormat, name)
		}
	}
	return p, nil
}

func decodeTensors(raw json.RawMessage) ([][][]float64, error) {
	var nested [][][]*float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, err
	}
	if nested == nil {
		return nil, errors.New("null value")
	}
	out := make([][][]float64, len(nested))
	for i, m := range nested {
		out[i] = make([][]float64, len(m))
		for r, row := range m {
			out[i][r] = make([]float64, len(row))
			for c, v := range row {
				if v == nil {
					return nil, fmt.Errorf("null element at [%d][%d][%d]", i, r, c)
				}
				out[i][r][c] = *v
			}
		}
	}
	return out, nil
}

// topology infers layer sizes from the weight shapes.
func (p parameters) topology() ([]int, error) {
	if len(p.Weights) == 0 || len(p.Weights[0]) == 0 {
		return nil, fmt.Errorf("%w: no weights", ErrFormat)
	}
	topology := []int{len(p.Weights[0][0])}
	for _, w := range p.Weights {
		topology = append(topology, len(w))
	}
	if err := validateTopology(topology); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return topology, nil
}

func (p parameters) build(topology []int) ([]*mat.Dense, []*mat.VecDense, error) {
	layers := len(topology) - 1
	if len(p.Weights) != layers {
		return nil, nil, fmt.Errorf("%w: %d weight matrices, want %d", ErrFormat, len(p.Weights), layers)
	}
	if len(p.Biases) != layers {
		return nil, nil, fmt.Errorf("%w: %d bias vectors, want %d", ErrFormat, len(p.Biases), layers)
	}
	weights := make([]*mat.Dense, layers)
	biases := make([]*mat.VecDense, layers)
	for i := 0; i < layers; i++ {
		rows, cols := topology[i+1], topology[i]
		w, err := flatten(p.Weights[i], rows, cols)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: weights[%d]: %v", ErrFormat, i, err)
		}
		b, err := flatten(p.Biases[i], rows, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: biases[%d]: %v", ErrFormat, i, err)
		}
		weights[i] = mat.NewDense(rows, cols, w)
		biases[i] = mat.NewVecDense(rows, b)
	}
	return weights, biases, nil
}

func flatten(m [][]float64, rows, cols int) ([]float64, error) {
	if len(m) != rows {
		return nil, fmt.Errorf("%d rows, want %d", len(m), rows)
	}
	out := make([]float64, 0, rows*cols)
	for r, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", r, len(row), cols)
		}
		out = append(out, row...)
	}
	return out, nil
}
