package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/RoshanGamage01/handwritten-image-classifier/internal/dataset"
	"github.com/RoshanGamage01/handwritten-image-classifier/internal/metrics"
	"github.com/RoshanGamage01/handwritten-image-classifier/internal/model"
)

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Topology     []int
	TrainRoot    string
	TestRoot     string
	ParamsPath   string
	Resume       bool
	Epochs       int
	BatchSize    int
	LearningRate float64
	Shuffle      bool
	LogEvery     int
	Seed         int64
	// Progress, when set, is called after every completed epoch with the
	// 1-based epoch number.
	Progress model.ProgressFunc
}

// Run loads the training shards, trains a network and saves its
// parameters. Cancellation is honoured between epochs; the parameters of
// the last completed epoch are still saved.
func Run(ctx context.Context, cfg RunConfig) error {
	if len(cfg.Topology) < 2 {
		return fmt.Errorf("trainer: %w", model.ErrInvalidTopology)
	}
	if cfg.Epochs <= 0 {
		return errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("trainer: batch size must be > 0")
	}
	if cfg.Topology[0] != dataset.FeatureSize {
		return fmt.Errorf("trainer: input layer %d, want %d: %w",
			cfg.Topology[0], dataset.FeatureSize, model.ErrShapeMismatch)
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 1
	}
	cfg.Seed = resolveSeed(cfg.Seed)
	classes := cfg.Topology[len(cfg.Topology)-1]

	records, err := dataset.LoadRecords(cfg.TrainRoot)
	if err != nil {
		return err
	}
	samples, err := dataset.TrainingSamples(records, classes)
	if err != nil {
		return err
	}
	log.Printf("train_root=%s samples=%d seed=%d", cfg.TrainRoot, len(samples), cfg.Seed)

	var test []model.LabeledSample
	if cfg.TestRoot != "" {
		if test, err = loadLabeled(cfg.TestRoot); err != nil {
			return err
		}
		log.Printf("test_root=%s samples=%d", cfg.TestRoot, len(test))
	}

	net, err := buildNetwork(cfg)
	if err != nil {
		return err
	}

	var opts []model.TrainOption
	if cfg.Shuffle {
		opts = append(opts, model.WithShuffle(rand.New(rand.NewSource(cfg.Seed))))
	}

	var window metrics.Window
	var runErr error
	completed := 0
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		var report model.EpochReport
		epochOpts := append([]model.TrainOption{model.WithProgress(func(r model.EpochReport) { report = r })}, opts...)
		if err := net.Train(samples, 1, cfg.BatchSize, cfg.LearningRate, epochOpts...); err != nil {
			return fmt.Errorf("epoch %d: %w", epoch, err)
		}
		completed++
		report.Epoch = epoch
		if cfg.Progress != nil {
			cfg.Progress(report)
		}

		logNow := epoch%cfg.LogEvery == 0 || epoch == cfg.Epochs
		cost := 0.0
		if logNow {
			if cost, err = net.Cost(samples); err != nil {
				return err
			}
		}
		window.Record(report.Batches, report.Samples, report.Duration, cost)

		if logNow {
			snap := window.Snapshot()
			line := fmt.Sprintf("epoch=%d samples_per_sec=%.1f batch_ms=%.3f cost=%.4f",
				epoch, snap.SamplesPerSec, snap.AvgBatchMS, snap.LastCost)
			if len(test) > 0 {
				acc, err := Evaluate(net, test)
				if err != nil {
					return err
				}
				line += fmt.Sprintf(" accuracy=%.2f", acc.Percent())
			}
			log.Print(line)
		}
	}

	if completed == 0 {
		return runErr
	}
	if err := net.Save(cfg.ParamsPath); err != nil {
		return err
	}
	log.Printf("saved parameters to %s after %d epochs", cfg.ParamsPath, completed)

	if len(test) > 0 {
		acc, err := Evaluate(net, test)
		if err != nil {
			return err
		}
		logAccuracy(acc)
	}
	return runErr
}

// resolveSeed picks a clock seed when none is configured, so initialization
// and shuffling share one logged seed.
func resolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	if seed = time.Now().UnixNano(); seed == 0 {
		seed = 1
	}
	return seed
}

// buildNetwork resumes from saved parameters when asked to and they exist,
// otherwise it draws fresh parameters.
func buildNetwork(cfg RunConfig) (*model.Network, error) {
	net, err := model.New(cfg.Topology, model.WithSeed(cfg.Seed))
	if err != nil {
		return nil, err
	}
	if !cfg.Resume {
		return net, nil
	}
	if _, err := os.Stat(cfg.ParamsPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("no parameters at %s, starting from random initialization", cfg.ParamsPath)
		return net, nil
	}
	if err := net.Load(cfg.ParamsPath); err != nil {
		return nil, err
	}
	log.Printf("resumed from %s", cfg.ParamsPath)
	return net, nil
}
