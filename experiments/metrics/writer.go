package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SwapRecord describes one sentence of a search result.
type SwapRecord struct {
	Sentence int
	Swaps    int
	Ratio    float64
	Text     string // Rendered with L2 tokens in brackets
}

// RunRecord is one search of an experiment.
type RunRecord struct {
	ID        int
	BeamSize  int
	Value     float64 // Aggregate of the chosen node
	Objective float64 // Objective of the best rollout state
	Swaps     int
	SearchMetric
}

type Writer struct {
	id      string
	baseDir string
}

// NewWriter creates a fresh run directory under dir, named by the current
// time and a run id.
func NewWriter(dir string) (*Writer, error) {
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, timestamp+"_"+id[:8])
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		id:      id,
		baseDir: baseDir,
	}, nil
}

func (w *Writer) ID() string { return w.id }

func (w *Writer) Dir() string { return w.baseDir }

// WriteSetup stores the run's settings as setup.yaml, stamped with the run id.
func (w *Writer) WriteSetup(setup map[string]any) error {
	doc := map[string]any{"run_id": w.id}
	for k, v := range setup {
		doc[k] = v
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode setup: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.baseDir, "setup.yaml"), out, 0644); err != nil {
		return fmt.Errorf("failed to write setup file: %w", err)
	}
	return nil
}

func (w *Writer) WriteIterations(records []IterationRecord) error {
	header := []string{"iteration", "node", "depth", "value", "root_best", "elapsed"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Iteration),
			strconv.Itoa(record.Node),
			strconv.Itoa(record.Depth),
			formatFloat(record.Value),
			formatFloat(record.RootBest),
			record.Elapsed.String(),
		})
	}
	return w.writeCSV("iterations.csv", header, rows)
}

func (w *Writer) WriteSwaps(records []SwapRecord) error {
	header := []string{"sentence", "swaps", "ratio", "text"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Sentence),
			strconv.Itoa(record.Swaps),
			formatFloat(record.Ratio),
			record.Text,
		})
	}
	return w.writeCSV("swaps.csv", header, rows)
}

func (w *Writer) WriteRuns(records []RunRecord) error {
	header := []string{
		"id", "rollout", "backup", "beam_size", "value", "objective", "swaps",
		"iterations", "expansions", "invalid_actions", "failures", "stop", "duration",
	}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			record.Rollout,
			record.Backup,
			strconv.Itoa(record.BeamSize),
			formatFloat(record.Value),
			formatFloat(record.Objective),
			strconv.Itoa(record.Swaps),
			strconv.Itoa(record.Iterations),
			strconv.Itoa(record.Expansions),
			strconv.Itoa(record.InvalidActions),
			strconv.Itoa(record.Failures),
			record.Stop,
			record.Duration.String(),
		})
	}
	return w.writeCSV("runs.csv", header, rows)
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
