package reconciler

import (
	"sync"
	"time"

	"kubeship/pkg/logging"
)

// Outcome classifies how a reconciliation job ended.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "Succeeded"
	OutcomeSkipped        Outcome = "Skipped"
	OutcomeMissingVersion Outcome = "MissingVersion"
	OutcomeFailed         Outcome = "Failed"
	OutcomeTimedOut       Outcome = "TimedOut"
)

// Metrics tracks reconciliation outcomes across batches.
type Metrics struct {
	mu sync.RWMutex

	outcomes map[Outcome]*outcomeMetrics

	totalBatches    int64
	totalJobs       int64
	failedBatches   int64
	lastBatchAt     time.Time
	lastBatchLength time.Duration
}

type outcomeMetrics struct {
	Count    int64
	LastAt   time.Time
	Services map[string]int64
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{outcomes: make(map[Outcome]*outcomeMetrics)}
}

func (m *Metrics) getOrCreate(o Outcome) *outcomeMetrics {
	if om, ok := m.outcomes[o]; ok {
		return om
	}
	om := &outcomeMetrics{Services: make(map[string]int64)}
	m.outcomes[o] = om
	return om
}

// RecordJob records the outcome of one job.
func (m *Metrics) RecordJob(service string, o Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om := m.getOrCreate(o)
	om.Count++
	om.LastAt = time.Now()
	om.Services[service]++
	m.totalJobs++

	logging.Debug("ReconcilerMetrics", "Job %s finished: %s", service, o)
}

// RecordBatch records a finished batch.
func (m *Metrics) RecordBatch(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBatches++
	if failed {
		m.failedBatches++
	}
	m.lastBatchAt = time.Now()
	m.lastBatchLength = duration
}

// Count returns how many jobs ended with o.
func (m *Metrics) Count(o Outcome) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if om, ok := m.outcomes[o]; ok {
		return om.Count
	}
	return 0
}

// MetricsSummary is a point-in-time view of Metrics.
type MetricsSummary struct {
	TotalBatches    int64             `json:"total_batches"`
	FailedBatches   int64             `json:"failed_batches"`
	TotalJobs       int64             `json:"total_jobs"`
	Outcomes        map[Outcome]int64 `json:"outcomes"`
	JobFailureRate  float64           `json:"job_failure_rate"`
	LastBatchAt     time.Time         `json:"last_batch_at,omitempty"`
	LastBatchLength time.Duration     `json:"last_batch_length"`
}

// GetSummary returns a summary of all recorded metrics.
func (m *Metrics) GetSummary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSummary{
		TotalBatches:    m.totalBatches,
		FailedBatches:   m.failedBatches,
		TotalJobs:       m.totalJobs,
		Outcomes:        make(map[Outcome]int64, len(m.outcomes)),
		LastBatchAt:     m.lastBatchAt,
		LastBatchLength: m.lastBatchLength,
	}
	var failures int64
	for o, om := range m.outcomes {
		s.Outcomes[o] = om.Count
		if o == OutcomeFailed || o == OutcomeTimedOut {
			failures += om.Count
		}
	}
	if m.totalJobs > 0 {
		s.JobFailureRate = float64(failures) / float64(m.totalJobs)
	}
	return s
}
