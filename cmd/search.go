package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"macaronic/experiments/metrics"
	"macaronic/searcher"
	"macaronic/sentence"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search one corpus for its best macaronic configuration",
	Long: `Runs a tree search over word swaps and prints every sentence with its
L2 words marked, the swaps taken from the start and the objective reached.`,
	Args:    cobra.NoArgs,
	PreRunE: bindFlags,
	RunE:    runSearch,
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	config, err := searchConfig()
	if err != nil {
		return err
	}
	game, err := loadGame(config)
	if err != nil {
		return err
	}
	c, flush := collector()
	tree, err := searcher.New(game, config, searcher.WithCollector(c))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	result, err := tree.Search(ctx, game.Start())
	if errors.Is(err, context.Canceled) {
		log.Warn().Msg("search interrupted, reporting the best result so far")
	} else if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), game.Corpus(), result, marker(os.Stdout))

	if out := v.GetString("out"); out != "" {
		if err := writeSearch(out, config, game.Corpus(), result, c); err != nil {
			return err
		}
	}
	return flush()
}

func printResult(w io.Writer, c *sentence.Corpus, result searcher.Result, mark func(string) string) {
	st := result.Best.State
	for i := 0; i < st.Sentences(); i++ {
		fmt.Fprintf(w, "%3d  %s\n", i, c.Render(st, i, mark))
	}
	fmt.Fprintf(w, "\nobjective %.4f with %d swaps (%v after %d iterations)\n",
		result.Best.Value, st.Total(), result.Stop, result.Iterations)
	for _, a := range result.Best.Trace {
		fmt.Fprintf(w, "  %v\n", a)
	}
	fmt.Fprintf(w, "best node %d at depth %d valued %.4f\n", result.Node, len(result.Path), result.Value)
}

func writeSearch(dir string, config searcher.Config, c *sentence.Corpus, result searcher.Result, collector metrics.Collector) error {
	writer, err := metrics.NewWriter(dir)
	if err != nil {
		return err
	}
	if err := writer.WriteSetup(setupRecord(config)); err != nil {
		return err
	}
	if err := writer.WriteIterations(collector.Iterations()); err != nil {
		return err
	}
	if err := writer.WriteSwaps(swapRecords(c, result.Best.State)); err != nil {
		return err
	}
	log.Info().Msgf("stored run %s in %s", writer.ID(), writer.Dir())
	return nil
}
