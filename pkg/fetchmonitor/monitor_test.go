package fetchmonitor

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_CountsOutcomes(t *testing.T) {
	m := New(10)
	m.Record(Event{Key: "device_data", Outcome: OutcomeLive})
	m.Record(Event{Key: "device_data", Outcome: OutcomeError, ErrorType: "network_error"})
	m.Record(Event{Key: "device_data", Outcome: OutcomeCache})
	m.Record(Event{Key: "user_data", Outcome: OutcomeUnavailable})

	s := m.Stats()
	assert.Equal(t, int64(1), s.TotalLive)
	assert.Equal(t, int64(1), s.TotalErrors)
	assert.Equal(t, int64(1), s.TotalCache)
	assert.Equal(t, int64(1), s.TotalUnavailable)
	// live events are not part of the error history
	require.Len(t, s.RecentEvents, 3)
	assert.Equal(t, OutcomeError, s.RecentEvents[0].Outcome)
	assert.False(t, s.RecentEvents[0].Timestamp.IsZero())
}

func TestMonitor_RingKeepsNewest(t *testing.T) {
	m := New(3)
	for i := 0; i < 5; i++ {
		m.Record(Event{Key: fmt.Sprintf("k%d", i), Outcome: OutcomeError})
	}
	s := m.Stats()
	require.Len(t, s.RecentEvents, 3)
	assert.Equal(t, "k2", s.RecentEvents[0].Key)
	assert.Equal(t, "k4", s.RecentEvents[2].Key)
	assert.Equal(t, int64(5), s.TotalErrors)
}

func TestMonitor_MostCommonErrors(t *testing.T) {
	m := New(20)
	for i := 0; i < 3; i++ {
		m.Record(Event{Outcome: OutcomeError, ErrorType: "connection_timeout"})
	}
	m.Record(Event{Outcome: OutcomeError, ErrorType: "invalid_credentials"})

	s := m.Stats()
	assert.Equal(t, int64(3), s.ErrorFrequency["connection_timeout"])
	require.Len(t, s.MostCommonErrors, 2)
	assert.Equal(t, "connection_timeout", s.MostCommonErrors[0].ErrorType)
}

func TestMonitor_ConcurrentRecord(t *testing.T) {
	m := New(16)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(Event{Outcome: OutcomeCache})
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), m.Stats().TotalCache)
}
