package dataset

import (
	"fmt"

	"github.com/RoshanGamage01/handwritten-image-classifier/internal/model"
)

// LoadRecords reads every shard beneath root in discovery order.
func LoadRecords(root string) ([]Record, error) {
	shards, err := DiscoverShards(root)
	if err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("no shards discovered under %s", root)
	}
	var records []Record
	for _, shard := range shards {
		rs, err := ReadShard(shard, defaultPendingCap)
		if err != nil {
			return nil, err
		}
		records = append(records, rs...)
	}
	return records, nil
}

// TrainingSamples converts records into inputs with one-hot targets.
func TrainingSamples(records []Record, classes int) ([]model.Sample, error) {
	samples := make([]model.Sample, 0, len(records))
	for _, r := range records {
		input, err := Features(r.Image)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Key, err)
		}
		target, err := OneHot(r.Label, classes)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Key, err)
		}
		samples = append(samples, model.Sample{Input: input, Target: target})
	}
	return samples, nil
}

// LabeledSamples converts records into inputs with integer labels.
func LabeledSamples(records []Record) ([]model.LabeledSample, error) {
	samples := make([]model.LabeledSample, 0, len(records))
	for _, r := range records {
		input, err := Features(r.Image)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Key, err)
		}
		samples = append(samples, model.LabeledSample{Input: input, Label: r.Label})
	}
	return samples, nil
}
