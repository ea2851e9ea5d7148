package experiments

import "macaronic/searcher"

// GoroutineSweep runs the per-sentence beam at each level of parallelism,
// to measure how search throughput scales with goroutines.
func GoroutineSweep(base searcher.Config, counts []int) []RunConfig {
	var configs []RunConfig
	for _, n := range counts {
		configs = append(configs, RunConfig{
			ID:         len(configs) + 1,
			Rollout:    searcher.BeamSearchPerSentence,
			Backup:     base.Backup,
			BeamSize:   base.BeamSize,
			Goroutines: n,
		})
	}
	return configs
}
