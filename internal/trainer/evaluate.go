package trainer

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/RoshanGamage01/handwritten-image-classifier/internal/dataset"
	"github.com/RoshanGamage01/handwritten-image-classifier/internal/metrics"
	"github.com/RoshanGamage01/handwritten-image-classifier/internal/model"
)

// Evaluate classifies every sample and tallies the arg-max against its label.
// Samples are split into contiguous chunks, one per physical core, each
// scored by its own clone of net.
func Evaluate(net *model.Network, samples []model.LabeledSample) (metrics.Accuracy, error) {
	return evaluate(net, samples, evalWorkers())
}

func evalWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func evaluate(net *model.Network, samples []model.LabeledSample, workers int) (metrics.Accuracy, error) {
	if workers > len(samples) {
		workers = len(samples)
	}
	if workers <= 1 {
		return tally(net, samples, 0)
	}

	chunk := (len(samples) + workers - 1) / workers
	results := make([]metrics.Accuracy, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(samples))
		if start >= end {
			break
		}
		wg.Add(1)
		go func(w, start, end int, local *model.Network) {
			defer wg.Done()
			results[w], errs[w] = tally(local, samples[start:end], start)
		}(w, start, end, net.Clone())
	}
	wg.Wait()

	var acc metrics.Accuracy
	for w := range results {
		if errs[w] != nil {
			return acc, errs[w]
		}
		acc.Merge(results[w])
	}
	return acc, nil
}

// tally scores samples sequentially; offset is the index of samples[0] in
// the full set and only appears in errors.
func tally(net *model.Network, samples []model.LabeledSample, offset int) (metrics.Accuracy, error) {
	var acc metrics.Accuracy
	for i, s := range samples {
		predicted, _, err := net.Classify(s.Input)
		if err != nil {
			return acc, fmt.Errorf("sample %d: %w", offset+i, err)
		}
		acc.Add(predicted, s.Label)
	}
	return acc, nil
}

// EvalConfig captures the knobs for scoring saved parameters.
type EvalConfig struct {
	ParamsPath string
	TestRoot   string
}

// RunEval opens saved parameters once and scores them against the test shards.
func RunEval(ctx context.Context, cfg EvalConfig) (metrics.Accuracy, error) {
	net, err := model.Open(cfg.ParamsPath)
	if err != nil {
		return metrics.Accuracy{}, err
	}
	log.Printf("params=%s topology=%v workers=%d", cfg.ParamsPath, net.Topology(), evalWorkers())

	test, err := loadLabeled(cfg.TestRoot)
	if err != nil {
		return metrics.Accuracy{}, err
	}
	if err := ctx.Err(); err != nil {
		return metrics.Accuracy{}, err
	}
	acc, err := Evaluate(net, test)
	if err != nil {
		return acc, err
	}
	logAccuracy(acc)
	return acc, nil
}

func loadLabeled(root string) ([]model.LabeledSample, error) {
	records, err := dataset.LoadRecords(root)
	if err != nil {
		return nil, err
	}
	return dataset.LabeledSamples(records)
}

func logAccuracy(acc metrics.Accuracy) {
	log.Printf("correct=%d wrong=%d accuracy=%.2f%%", acc.Correct, acc.Wrong(), acc.Percent())
}
