package searcher

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"macaronic/sentence"
)

// RolloutKind selects how a newly expanded node is valued.
type RolloutKind int

const (
	RandomWalk RolloutKind = iota
	BeamSearch
	BeamSearchPerSentence
)

var rolloutNames = map[RolloutKind]string{
	RandomWalk:            "random_walk",
	BeamSearch:            "beam_search",
	BeamSearchPerSentence: "beam_search_per_sentence",
}

func (k RolloutKind) String() string {
	if name, ok := rolloutNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RolloutKind(%d)", int(k))
}

func ParseRolloutKind(name string) (RolloutKind, error) {
	for k, n := range rolloutNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown rollout function %q", name)
}

// BackupType selects how rollout values aggregate in a node.
type BackupType int

const (
	Ave BackupType = iota // Mean of backed up values
	Max                   // Best backed up value
)

func (b BackupType) String() string {
	switch b {
	case Ave:
		return "ave"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("BackupType(%d)", int(b))
	}
}

func ParseBackupType(name string) (BackupType, error) {
	switch name {
	case "ave":
		return Ave, nil
	case "max":
		return Max, nil
	default:
		return 0, fmt.Errorf("unknown backup type %q", name)
	}
}

type Config struct {
	sentence.Rules

	BeamSize             int         // Frontier width of beam rollouts
	MaxSteps             int         // Expansion budget of the tree, and step budget of beam rollouts
	ImprovementThreshold float64     // Minimum gain of the root's best child over ImprovementWindow iterations; 0 disables
	ImprovementWindow    int         // Lookback in iterations for ImprovementThreshold
	Backup               BackupType  // Aggregation of rollout values
	MaxSearchDepth       int         // Nodes at this depth are terminal
	Rollout              RolloutKind // Valuation of new nodes
	Exploration          float64     // PUCT constant
	Goroutines           int         // Parallelism of per-sentence beams
	Seed                 uint64
	Verbose              bool
}

func DefaultConfig() Config {
	return Config{
		Rules: sentence.Rules{
			SwapLimit: 0.3,
			Penalty:   0.2,
		},
		BeamSize:             10,
		MaxSteps:             100,
		ImprovementThreshold: 0.01,
		ImprovementWindow:    10,
		Backup:               Ave,
		MaxSearchDepth:       1000,
		Rollout:              BeamSearch,
		Exploration:          1.0,
		Goroutines:           1,
		Seed:                 1234,
	}
}

// Validate reports every violated constraint at once.
func (c Config) Validate() error {
	var errs error
	if err := c.Rules.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.BeamSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("beam_size %d must be positive", c.BeamSize))
	}
	if c.MaxSteps < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max_steps %d is negative", c.MaxSteps))
	}
	if c.ImprovementThreshold < 0 {
		errs = multierror.Append(errs, fmt.Errorf("improvement_threshold %v is negative", c.ImprovementThreshold))
	}
	if c.ImprovementWindow <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("improvement_window %d must be positive", c.ImprovementWindow))
	}
	if c.Backup != Ave && c.Backup != Max {
		errs = multierror.Append(errs, fmt.Errorf("unknown backup_type %v", c.Backup))
	}
	if c.MaxSearchDepth <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("max_search_depth %d must be positive", c.MaxSearchDepth))
	}
	if _, ok := rolloutNames[c.Rollout]; !ok {
		errs = multierror.Append(errs, fmt.Errorf("unknown rollout_function %v", c.Rollout))
	}
	if c.Exploration <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("exploration %v must be positive", c.Exploration))
	}
	if c.Goroutines <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("goroutines %d must be positive", c.Goroutines))
	}
	return errs
}
