package fetchmonitor

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Outcome of a single GetWithFallback call.
type Outcome string

const (
	OutcomeLive        Outcome = "live"
	OutcomeCache       Outcome = "cache"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeError       Outcome = "error"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Key        string    `json:"key"`
	Outcome    Outcome   `json:"outcome"`
	ErrorType  string    `json:"error_type,omitempty"` // catalogue key, see pkg/error
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

type ErrorCount struct {
	ErrorType string `json:"error_type"`
	Count     int64  `json:"count"`
}

type Stats struct {
	TotalLive        int64            `json:"total_live"`
	TotalCache       int64            `json:"total_cache"`
	TotalUnavailable int64            `json:"total_unavailable"`
	TotalErrors      int64            `json:"total_errors"`
	RecentEvents     []Event          `json:"recent_errors"`
	ErrorFrequency   map[string]int64 `json:"error_frequency"`
	MostCommonErrors []ErrorCount     `json:"most_common_errors"`
}

// Monitor keeps a ring of recent events plus lifetime counters.
type Monitor struct {
	eventsMu sync.Mutex
	events   []Event
	idx      int
	count    int
	freq     map[string]int64
	now      func() time.Time

	totalLive        int64
	totalCache       int64
	totalUnavailable int64
	totalErrors      int64
}

func New(size int) *Monitor {
	if size <= 0 {
		size = 50
	}
	return &Monitor{
		events: make([]Event, size),
		freq:   make(map[string]int64),
		now:    time.Now,
	}
}

func (m *Monitor) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now().UTC()
	}

	switch e.Outcome {
	case OutcomeLive:
		atomic.AddInt64(&m.totalLive, 1)
	case OutcomeCache:
		atomic.AddInt64(&m.totalCache, 1)
	case OutcomeUnavailable:
		atomic.AddInt64(&m.totalUnavailable, 1)
	case OutcomeError:
		atomic.AddInt64(&m.totalErrors, 1)
	}

	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()
	if e.ErrorType != "" {
		m.freq[e.ErrorType]++
	}
	m.events[m.idx] = e
	m.idx = (m.idx + 1) % len(m.events)
	if m.count < len(m.events) {
		m.count++
	}
}

// Stats returns counters and the retained non-live events, oldest first.
func (m *Monitor) Stats() Stats {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()

	recent := make([]Event, 0, m.count)
	start := (m.idx - m.count + len(m.events)) % len(m.events)
	for i := 0; i < m.count; i++ {
		e := m.events[(start+i)%len(m.events)]
		if e.Outcome == OutcomeLive {
			continue
		}
		recent = append(recent, e)
	}

	freq := make(map[string]int64, len(m.freq))
	common := make([]ErrorCount, 0, len(m.freq))
	for k, v := range m.freq {
		freq[k] = v
		common = append(common, ErrorCount{ErrorType: k, Count: v})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].Count != common[j].Count {
			return common[i].Count > common[j].Count
		}
		return common[i].ErrorType < common[j].ErrorType
	})
	if len(common) > 5 {
		common = common[:5]
	}

	return Stats{
		TotalLive:        atomic.LoadInt64(&m.totalLive),
		TotalCache:       atomic.LoadInt64(&m.totalCache),
		TotalUnavailable: atomic.LoadInt64(&m.totalUnavailable),
		TotalErrors:      atomic.LoadInt64(&m.totalErrors),
		RecentEvents:     recent,
		ErrorFrequency:   freq,
		MostCommonErrors: common,
	}
}
