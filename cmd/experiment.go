package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"macaronic/experiments"
	"macaronic/experiments/metrics"
)

// defaultRunsDir holds experiment records when --out is not given.
const defaultRunsDir = "runs"

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Sweep search settings over one corpus",
	Long: `Runs one search per setting and stores a runs.csv in a fresh directory
under --out. Sweeps:

  rollouts    every rollout function with every backup type
  beams       the configured rollout at each --beam-sizes width
  goroutines  per-sentence beams at each --goroutine-counts level`,
	Args:    cobra.NoArgs,
	PreRunE: bindFlags,
	RunE:    runExperiment,
}

func init() {
	addSearchFlags(experimentCmd)
	flags := experimentCmd.Flags()
	flags.String("sweep", "rollouts", "Which sweep to run: rollouts, beams or goroutines")
	flags.IntSlice("beam-sizes", []int{1, 2, 5, 10, 20}, "Beam widths for the beams sweep")
	flags.IntSlice("goroutine-counts", []int{1, 2, 4, 8}, "Parallelism levels for the goroutines sweep")
	rootCmd.AddCommand(experimentCmd)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	config, err := searchConfig()
	if err != nil {
		return err
	}

	sweep := v.GetString("sweep")
	var runs []experiments.RunConfig
	switch sweep {
	case "rollouts":
		runs = experiments.RolloutSweep(config)
	case "beams":
		runs = experiments.BeamSweep(config, v.GetIntSlice("beam_sizes"))
	case "goroutines":
		runs = experiments.GoroutineSweep(config, v.GetIntSlice("goroutine_counts"))
	default:
		return fmt.Errorf("unknown sweep %q", sweep)
	}

	game, err := loadGame(config)
	if err != nil {
		return err
	}
	c, flush := collector()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	records, runErr := experiments.Run(ctx, sweep, game, game.Start(), config, runs, c)
	for _, r := range records {
		fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-26s %-4s beam %-3d objective %8.4f  swaps %3d  %-16s %v\n",
			r.ID, r.Rollout, r.Backup, r.BeamSize, r.Objective, r.Swaps, r.Stop, r.Duration)
	}

	out := v.GetString("out")
	if out == "" {
		out = defaultRunsDir
	}
	writer, err := metrics.NewWriter(out)
	if err != nil {
		return errors.Join(runErr, err)
	}
	setup := setupRecord(config)
	setup["sweep"] = sweep
	if err := writer.WriteSetup(setup); err != nil {
		return errors.Join(runErr, err)
	}
	if err := writer.WriteRuns(records); err != nil {
		return errors.Join(runErr, err)
	}
	log.Info().Msgf("stored %d runs in %s", len(records), writer.Dir())

	return errors.Join(runErr, flush())
}
