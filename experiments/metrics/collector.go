package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Rollout        string
	Backup         string
	Duration       time.Duration
	Iterations     int
	Expansions     int
	InvalidActions int
	Failures       int
	Stop           string // Why the search ended
}

// IterationRecord traces one select-expand-rollout-backup cycle.
type IterationRecord struct {
	Iteration int
	Node      int // Expanded node ID
	Depth     int
	Value     float64 // Rollout value of the expanded node
	RootBest  float64 // Best aggregate among the root's children afterwards
	Elapsed   time.Duration
}

type Collector interface {
	Start(rollout, backup string)
	AddIteration(record IterationRecord)
	AddExpansion()
	AddInvalidAction()
	AddFailure()
	Complete(stop string) SearchMetric
	Iterations() []IterationRecord
}

type collector struct {
	rollout    string
	backup     string
	startTime  time.Time
	expansions atomic.Int32
	invalid    atomic.Int32
	failures   atomic.Int32

	mu      sync.Mutex
	records []IterationRecord
}

func NewCollector() Collector {
	return &collector{}
}

// Start resets the collector for a new search.
func (m *collector) Start(rollout, backup string) {
	m.startTime = time.Now()
	m.rollout = rollout
	m.backup = backup
	m.expansions.Store(0)
	m.invalid.Store(0)
	m.failures.Store(0)

	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}

func (m *collector) AddIteration(record IterationRecord) {
	record.Elapsed = time.Since(m.startTime)
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
}

func (m *collector) AddExpansion() {
	m.expansions.Add(1)
}

func (m *collector) AddInvalidAction() {
	m.invalid.Add(1)
}

func (m *collector) AddFailure() {
	m.failures.Add(1)
}

func (m *collector) Complete(stop string) SearchMetric {
	m.mu.Lock()
	iterations := len(m.records)
	m.mu.Unlock()

	return SearchMetric{
		Rollout:        m.rollout,
		Backup:         m.backup,
		Duration:       time.Since(m.startTime),
		Iterations:     iterations,
		Expansions:     int(m.expansions.Load()),
		InvalidActions: int(m.invalid.Load()),
		Failures:       int(m.failures.Load()),
		Stop:           stop,
	}
}

func (m *collector) Iterations() []IterationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]IterationRecord(nil), m.records...)
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(rollout, backup string)        {}
func (m *dummyCollector) AddIteration(record IterationRecord) {}
func (m *dummyCollector) AddExpansion()                       {}
func (m *dummyCollector) AddInvalidAction()                   {}
func (m *dummyCollector) AddFailure()                         {}
func (m *dummyCollector) Complete(stop string) SearchMetric   { return SearchMetric{Stop: stop} }
func (m *dummyCollector) Iterations() []IterationRecord       { return nil }
