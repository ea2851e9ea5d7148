package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"macaronic/searcher"
	"macaronic/sentence"
)

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	corpusPath := filepath.Join(dir, "corpus.tsv")
	require.NoError(t, os.WriteFile(corpusPath, []byte(
		"the big house\tdas große Haus\n"+
			"good day\tguten Tag\n"), 0644))

	vectorsPath := filepath.Join(dir, "vectors.txt")
	require.NoError(t, os.WriteFile(vectorsPath, []byte(
		"5 2\n"+
			"the 1 0\n"+
			"big 0 1\n"+
			"house 1 1\n"+
			"good 1 0\n"+
			"day 0.5 1\n"), 0644))

	return corpusPath, vectorsPath
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestSearchCommand(t *testing.T) {
	corpusPath, vectorsPath := writeInputs(t)
	out := t.TempDir()
	promPath := filepath.Join(t.TempDir(), "search.prom")

	got := execute(t, "search",
		"--corpus", corpusPath,
		"--vectors", vectorsPath,
		"--swap-limit", "0.5",
		"--max-steps", "6",
		"--improvement-threshold", "0",
		"--out", out,
		"--metrics-file", promPath,
	)

	require.Contains(t, got, "objective")
	require.Contains(t, got, "[", "L2 words should be bracketed off a terminal")

	for _, name := range []string{"setup.yaml", "iterations.csv", "swaps.csv"} {
		matches, err := filepath.Glob(filepath.Join(out, "*", name))
		require.NoError(t, err)
		require.Len(t, matches, 1, "Missing %s", name)
	}
	_, err := os.Stat(promPath)
	require.NoError(t, err)
}

func TestExperimentCommand(t *testing.T) {
	corpusPath, vectorsPath := writeInputs(t)
	out := t.TempDir()

	got := execute(t, "experiment",
		"--corpus", corpusPath,
		"--vectors", vectorsPath,
		"--swap-limit", "0.5",
		"--max-steps", "4",
		"--sweep", "beams",
		"--beam-sizes", "1,3",
		"--out", out,
	)

	require.Contains(t, got, "beam 1")
	require.Contains(t, got, "beam 3")
	matches, err := filepath.Glob(filepath.Join(out, "*", "runs.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestExperimentDefaultOut(t *testing.T) {
	corpusPath, vectorsPath := writeInputs(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, experimentCmd.Flags().Set("out", ""))

	execute(t, "experiment",
		"--corpus", corpusPath,
		"--vectors", vectorsPath,
		"--swap-limit", "0.5",
		"--max-steps", "2",
		"--sweep", "beams",
		"--beam-sizes", "1",
	)

	matches, err := filepath.Glob(filepath.Join(dir, defaultRunsDir, "*", "runs.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	_, err = os.Stat(filepath.Join(dir, "experiments"))
	require.True(t, os.IsNotExist(err), "Runs should stay out of the experiments package")
}

func TestPrintResult(t *testing.T) {
	c := &sentence.Corpus{Sentences: []sentence.Sentence{
		{L1: []string{"the", "big", "house"}, L2: []string{"das", "große", "Haus"}},
	}}
	a := sentence.Action{Span: sentence.Span{Start: 2, End: 3}}
	st, err := sentence.NewState(c.Lengths()).Apply(a, 1)
	require.NoError(t, err)
	result := searcher.Result{
		Node:  1,
		Path:  []sentence.Action{a},
		Value: 0.75,
		Best:  searcher.Estimate{Value: 0.8, Trace: []sentence.Action{a}, State: st},
		Stop:  searcher.StopExhausted,
	}

	var out bytes.Buffer
	printResult(&out, c, result, brackets)

	require.Contains(t, out.String(), "the big [Haus]")
	require.Contains(t, out.String(), "objective 0.8000 with 1 swaps (exhausted")
	require.Contains(t, out.String(), "s0[2:3]")
}
