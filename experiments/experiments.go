// Package experiments sweeps search settings over one corpus and records how
// each run went.
package experiments

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"macaronic/experiments/metrics"
	"macaronic/searcher"
	"macaronic/sentence"
)

// RunConfig overrides the base search config for one run.
type RunConfig struct {
	ID         int
	Rollout    searcher.RolloutKind
	Backup     searcher.BackupType
	BeamSize   int
	Goroutines int
}

func (c RunConfig) apply(base searcher.Config) searcher.Config {
	base.Rollout = c.Rollout
	base.Backup = c.Backup
	if c.BeamSize > 0 {
		base.BeamSize = c.BeamSize
	}
	if c.Goroutines > 0 {
		base.Goroutines = c.Goroutines
	}
	return base
}

// RolloutSweep pairs every rollout kind with every backup type.
func RolloutSweep(base searcher.Config) []RunConfig {
	var configs []RunConfig
	for _, rollout := range []searcher.RolloutKind{searcher.RandomWalk, searcher.BeamSearch, searcher.BeamSearchPerSentence} {
		for _, backup := range []searcher.BackupType{searcher.Ave, searcher.Max} {
			configs = append(configs, RunConfig{
				ID:       len(configs) + 1,
				Rollout:  rollout,
				Backup:   backup,
				BeamSize: base.BeamSize,
			})
		}
	}
	return configs
}

// BeamSweep varies the beam width of the base rollout.
func BeamSweep(base searcher.Config, sizes []int) []RunConfig {
	var configs []RunConfig
	for _, size := range sizes {
		configs = append(configs, RunConfig{
			ID:       len(configs) + 1,
			Rollout:  base.Rollout,
			Backup:   base.Backup,
			BeamSize: size,
		})
	}
	return configs
}

// Run searches once per config from start. A config the searcher rejects
// aborts the sweep; so does a done context, returning the runs so far.
func Run(ctx context.Context, name string, game searcher.Game, start sentence.State, base searcher.Config, configs []RunConfig, collector metrics.Collector) ([]metrics.RunRecord, error) {
	if collector == nil {
		collector = metrics.NewCollector()
	}
	log.Info().Msgf("starting %s experiment with %d runs...", name, len(configs))

	var records []metrics.RunRecord
	for i, rc := range configs {
		config := rc.apply(base)
		log.Info().Msgf("starting run %d of %d with rollout=%v backup=%v beam_size=%d goroutines=%d...",
			i+1, len(configs), config.Rollout, config.Backup, config.BeamSize, config.Goroutines)

		tree, err := searcher.New(game, config, searcher.WithCollector(collector))
		if err != nil {
			return records, fmt.Errorf("run %d: %w", rc.ID, err)
		}
		result, err := tree.Search(ctx, start)
		records = append(records, metrics.RunRecord{
			ID:           rc.ID,
			BeamSize:     config.BeamSize,
			Value:        result.Value,
			Objective:    result.Best.Value,
			Swaps:        result.Best.State.Total(),
			SearchMetric: result.Metric,
		})
		if err != nil {
			return records, fmt.Errorf("run %d: %w", rc.ID, err)
		}

		log.Info().Msgf("completed run %d of %d with objective %.4f after %d iterations", i+1, len(configs), result.Best.Value, result.Iterations)
	}

	log.Info().Msgf("completed %s experiment", name)
	return records, nil
}
