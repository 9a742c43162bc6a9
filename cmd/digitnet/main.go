package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/cpuid/v2"

	"github.com/RoshanGamage01/handwritten-image-classifier/internal/config"
	"github.com/RoshanGamage01/handwritten-image-classifier/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "configs/digitnet.yaml", "Path to YAML config")
	mode := flag.String("mode", "train", "train or eval")
	trainRoot := flag.String("train-root", "", "Override training shard root")
	testRoot := flag.String("test-root", "", "Override test shard root")
	params := flag.String("params", "", "Override parameter file path")
	epochs := flag.Int("epochs", 0, "Number of epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	learningRate := flag.Float64("learning-rate", 0, "Learning rate")
	seed := flag.Int64("seed", 0, "PRNG seed")
	shuffle := flag.Bool("shuffle", false, "Shuffle samples before every epoch")
	resume := flag.Bool("resume", false, "Resume training from the parameter file")
	logEvery := flag.Int("log-every", 0, "Log every N epochs")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Seed:         *seed,
		Shuffle:      *shuffle,
		TrainRoot:    *trainRoot,
		TestRoot:     *testRoot,
		ParamsPath:   *params,
		Resume:       *resume,
		LogEvery:     *logEvery,
	})

	log.Printf("cpu=%q cores=%d avx2=%t fma3=%t",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.FMA3))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "train":
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		runCfg := trainer.RunConfig{
			Topology:     cfg.Topology,
			TrainRoot:    cfg.TrainRoot,
			TestRoot:     cfg.TestRoot,
			ParamsPath:   cfg.ParamsPath,
			Resume:       cfg.Resume,
			Epochs:       cfg.Epochs,
			BatchSize:    cfg.BatchSize,
			LearningRate: cfg.LearningRate,
			Shuffle:      cfg.Shuffle,
			LogEvery:     cfg.LogEvery,
			Seed:         cfg.Seed,
		}
		if err := trainer.Run(ctx, runCfg); err != nil {
			log.Fatalf("training failed: %v", err)
		}
	case "eval":
		if err := cfg.ValidateEval(); err != nil {
			log.Fatalf("invalid config: %v", err)
		}
		evalCfg := trainer.EvalConfig{ParamsPath: cfg.ParamsPath, TestRoot: cfg.TestRoot}
		if _, err := trainer.RunEval(ctx, evalCfg); err != nil {
			log.Fatalf("evaluation failed: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}
