package model

import "errors"

var (
	// ErrInvalidTopology is returned when a layer-size sequence is malformed.
	ErrInvalidTopology = errors.New("model: invalid topology")
	// ErrShapeMismatch is returned when operand dimensions disagree with the topology.
	ErrShapeMismatch = errors.New("model: shape mismatch")
	// ErrFormat is returned when a persisted parameter record cannot be used.
	ErrFormat = errors.New("model: invalid parameter format")
	// ErrInvalidArgument is returned for empty batches and non-positive training knobs.
	ErrInvalidArgument = errors.New("model: invalid argument")
)
