package metrics

import "time"

// Window accumulates throughput stats across one or more epochs.
type Window struct {
	samples  int
	batches  int
	compute  time.Duration
	epochs   int
	lastCost float64
}

// Record adds a finished epoch to the window.
func (w *Window) Record(batches, samples int, computeTime time.Duration, cost float64) {
	w.samples += samples
	w.batches += batches
	w.compute += computeTime
	w.epochs++
	w.lastCost = cost
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Epochs: w.epochs, LastCost: w.lastCost}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.batches > 0 {
		snap.AvgBatchMS = (w.compute.Seconds() * 1000) / float64(w.batches)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Epochs        int
	SamplesPerSec float64
	AvgBatchMS    float64
	LastCost      float64
}

// Accuracy tallies classification results.
type Accuracy struct {
	Correct int
	Total   int
}

// Add records one prediction.
func (a *Accuracy) Add(predicted, label int) {
	a.Total++
	if predicted == label {
		a.Correct++
	}
}

// Merge adds the tally of b into a.
func (a *Accuracy) Merge(b Accuracy) {
	a.Correct += b.Correct
	a.Total += b.Total
}

// Wrong returns the number of misclassified samples.
func (a Accuracy) Wrong() int {
	return a.Total - a.Correct
}

// Percent returns the share of correct predictions in [0, 100].
func (a Accuracy) Percent() float64 {
	if a.Total == 0 {
		return 0
	}
	return 100 * float64(a.Correct) / float64(a.Total)
}
