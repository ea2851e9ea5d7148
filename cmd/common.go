package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"macaronic/corpus"
	"macaronic/experiments/metrics"
	"macaronic/oracle"
	"macaronic/searcher"
	"macaronic/sentence"
)

const underline = "\033[4m%s\033[0m"

// bind exposes flags to v under their snake_case names.
func bind(flags ...*pflag.Flag) {
	for _, f := range flags {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			panic(err)
		}
	}
}

func addSearchFlags(cmd *cobra.Command) {
	d := searcher.DefaultConfig()
	o := oracle.DefaultConfig()
	flags := cmd.Flags()

	flags.String("corpus", "", "Parallel corpus file (L1 <TAB> L2 [<TAB> spans] per line)")
	flags.String("vectors", "", "Word vectors in word2vec text format")
	flags.Int("window", o.Window, "Context words on each side of a swapped word")
	flags.Float64("alpha", o.Alpha, "Weight of context fit against spelling similarity")

	flags.Float64("swap-limit", d.SwapLimit, "Maximum swapped fraction per sentence")
	flags.Float64("penalty", d.Penalty, "Cost per swapped word")
	flags.Bool("binary-branching", d.BinaryBranching, "Swap whole constituents instead of single words")
	flags.Int("beam-size", d.BeamSize, "Frontier width of beam rollouts")
	flags.Int("max-steps", d.MaxSteps, "Expansion budget of the search")
	flags.Float64("improvement-threshold", d.ImprovementThreshold, "Stop when the best child gains less than this; 0 disables")
	flags.Int("improvement-window", d.ImprovementWindow, "Iterations over which improvement is measured")
	flags.String("backup-type", d.Backup.String(), "Value aggregation: ave or max")
	flags.Int("max-search-depth", d.MaxSearchDepth, "Depth at which nodes become terminal")
	flags.String("rollout-function", d.Rollout.String(), "random_walk, beam_search or beam_search_per_sentence")
	flags.Float64("exploration", d.Exploration, "PUCT exploration constant")
	flags.Int("goroutines", d.Goroutines, "Parallel sentences in per-sentence beams")
	flags.Uint64("seed", d.Seed, "Random seed")
	flags.String("out", "", "Directory for run records")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile")
}

// bindFlags points v at the running command's flags, since commands share
// key names.
func bindFlags(cmd *cobra.Command, args []string) error {
	cmd.Flags().VisitAll(func(f *pflag.Flag) { bind(f) })
	return nil
}

func searchConfig() (searcher.Config, error) {
	var errs error
	rollout, err := searcher.ParseRolloutKind(v.GetString("rollout_function"))
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	backup, err := searcher.ParseBackupType(v.GetString("backup_type"))
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	config := searcher.Config{
		Rules: sentence.Rules{
			SwapLimit:       v.GetFloat64("swap_limit"),
			Penalty:         v.GetFloat64("penalty"),
			BinaryBranching: v.GetBool("binary_branching"),
		},
		BeamSize:             v.GetInt("beam_size"),
		MaxSteps:             v.GetInt("max_steps"),
		ImprovementThreshold: v.GetFloat64("improvement_threshold"),
		ImprovementWindow:    v.GetInt("improvement_window"),
		Backup:               backup,
		MaxSearchDepth:       v.GetInt("max_search_depth"),
		Rollout:              rollout,
		Exploration:          v.GetFloat64("exploration"),
		Goroutines:           v.GetInt("goroutines"),
		Seed:                 v.GetUint64("seed"),
		Verbose:              v.GetBool("verbose"),
	}
	if err := config.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return config, errs
}

func loadGame(config searcher.Config) (*sentence.Game, error) {
	corpusPath, vectorsPath := v.GetString("corpus"), v.GetString("vectors")
	if corpusPath == "" || vectorsPath == "" {
		return nil, fmt.Errorf("both --corpus and --vectors are required")
	}

	c, err := corpus.LoadFile(corpusPath)
	if err != nil {
		return nil, err
	}
	embeddings, err := corpus.LoadEmbeddingsFile(vectorsPath)
	if err != nil {
		return nil, err
	}
	o, err := oracle.NewContextOracle(embeddings, oracle.Config{
		Window: v.GetInt("window"),
		Alpha:  v.GetFloat64("alpha"),
	})
	if err != nil {
		return nil, err
	}
	return sentence.NewGame(c, o, config.Rules)
}

// setupRecord is what a run directory's setup.yaml holds.
func setupRecord(config searcher.Config) map[string]any {
	return map[string]any{
		"corpus":                v.GetString("corpus"),
		"vectors":               v.GetString("vectors"),
		"window":                v.GetInt("window"),
		"alpha":                 v.GetFloat64("alpha"),
		"swap_limit":            config.SwapLimit,
		"penalty":               config.Penalty,
		"binary_branching":      config.BinaryBranching,
		"beam_size":             config.BeamSize,
		"max_steps":             config.MaxSteps,
		"improvement_threshold": config.ImprovementThreshold,
		"improvement_window":    config.ImprovementWindow,
		"backup_type":           config.Backup.String(),
		"max_search_depth":      config.MaxSearchDepth,
		"rollout_function":      config.Rollout.String(),
		"exploration":           config.Exploration,
		"goroutines":            config.Goroutines,
		"seed":                  config.Seed,
	}
}

// collector picks the Prometheus collector when a metrics file is wanted.
func collector() (metrics.Collector, func() error) {
	path := v.GetString("metrics_file")
	if path == "" {
		return metrics.NewCollector(), func() error { return nil }
	}
	c := metrics.NewPrometheusCollector()
	return c, func() error { return c.WriteTextfile(path) }
}

// marker underlines L2 words on a terminal and brackets them elsewhere.
func marker(f *os.File) func(string) string {
	if isatty.IsTerminal(f.Fd()) {
		return func(w string) string { return fmt.Sprintf(underline, w) }
	}
	return brackets
}

func brackets(w string) string { return "[" + w + "]" }

func swapRecords(c *sentence.Corpus, st sentence.State) []metrics.SwapRecord {
	records := make([]metrics.SwapRecord, 0, st.Sentences())
	for i := 0; i < st.Sentences(); i++ {
		records = append(records, metrics.SwapRecord{
			Sentence: i,
			Swaps:    st.Count(i),
			Ratio:    st.Ratio(i),
			Text:     c.Render(st, i, brackets),
		})
	}
	return records
}
