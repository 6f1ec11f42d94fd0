package connstatus

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const (
	DefaultOfflineThreshold = 3
	DefaultResponseWindow   = 10
)

// Metrics is a point-in-time copy of the tracker, shaped like the
// attributes exposed on the connection status endpoint.
type Metrics struct {
	IsOnline            bool      `json:"is_online"`
	LastOnline          time.Time `json:"last_online"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveErrors   int       `json:"connection_errors"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	SuccessRate         float64   `json:"success_rate"`
	AverageResponseTime float64   `json:"average_response_time"`
	StatusMessage       string    `json:"status_message"`
}

type Option func(*Status)

func WithClock(now func() time.Time) Option {
	return func(s *Status) { s.now = now }
}

func WithOfflineThreshold(n int) Option {
	return func(s *Status) {
		if n > 0 {
			s.threshold = n
		}
	}
}

func WithResponseWindow(n int) Option {
	return func(s *Status) {
		if n > 0 {
			s.window = n
		}
	}
}

// Status tracks whether the remote API is reachable. It goes offline after
// threshold consecutive errors and back online on the next success.
type Status struct {
	mu        sync.RWMutex
	now       func() time.Time
	threshold int
	window    int

	online            bool
	lastOnline        time.Time
	lastCheck         time.Time
	consecutiveErrors int
	successCount      int64
	failureCount      int64
	responseTimes     []float64
}

func New(opts ...Option) *Status {
	s := &Status{
		now:       time.Now,
		threshold: DefaultOfflineThreshold,
		window:    DefaultResponseWindow,
		online:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	now := s.now()
	s.lastOnline = now
	s.lastCheck = now
	s.responseTimes = make([]float64, 0, s.window)
	return s
}

// MarkSuccess records a successful request without a latency sample.
func (s *Status) MarkSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markSuccessLocked()
}

// MarkSuccessWithLatency records a successful request that took d.
func (s *Status) MarkSuccessWithLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markSuccessLocked()
	s.responseTimes = append(s.responseTimes, d.Seconds())
	if len(s.responseTimes) > s.window {
		s.responseTimes = s.responseTimes[len(s.responseTimes)-s.window:]
	}
}

func (s *Status) markSuccessLocked() {
	now := s.now()
	s.online = true
	s.lastOnline = now
	s.lastCheck = now
	s.consecutiveErrors = 0
	s.successCount++
}

func (s *Status) MarkError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveErrors++
	s.failureCount++
	s.lastCheck = s.now()
	if s.consecutiveErrors >= s.threshold {
		s.online = false
	}
}

// ResetErrors clears the consecutive error run without counting a request.
// Used by the recovery path once connectivity is believed restored.
func (s *Status) ResetErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveErrors = 0
	s.online = true
	s.lastCheck = s.now()
}

func (s *Status) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Status) LastOnline() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastOnline
}

func (s *Status) ConsecutiveErrors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consecutiveErrors
}

func (s *Status) Threshold() int {
	return s.threshold
}

func (s *Status) SuccessRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.successRateLocked()
}

func (s *Status) successRateLocked() float64 {
	total := s.successCount + s.failureCount
	if total == 0 {
		return 100
	}
	return float64(s.successCount) / float64(total) * 100
}

// AverageResponseTime is in seconds over the retained window, 0 with no samples.
func (s *Status) AverageResponseTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.averageLocked()
}

func (s *Status) averageLocked() float64 {
	if len(s.responseTimes) == 0 {
		return 0
	}
	var sum float64
	for _, rt := range s.responseTimes {
		sum += rt
	}
	return sum / float64(len(s.responseTimes))
}

func (s *Status) StatusMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageLocked()
}

func (s *Status) messageLocked() string {
	if s.online {
		return fmt.Sprintf("Online (Success rate: %.1f%%)", s.successRateLocked())
	}
	since := s.now().Sub(s.lastOnline)
	if since < 0 {
		since = 0
	}
	hours := int(since / time.Hour)
	minutes := int((since % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("Offline for %dh %dm", hours, minutes)
	}
	return fmt.Sprintf("Offline for %dm", minutes)
}

func (s *Status) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Metrics{
		IsOnline:            s.online,
		LastOnline:          s.lastOnline,
		LastCheck:           s.lastCheck,
		ConsecutiveErrors:   s.consecutiveErrors,
		SuccessfulRequests:  s.successCount,
		FailedRequests:      s.failureCount,
		SuccessRate:         round(s.successRateLocked(), 2),
		AverageResponseTime: round(s.averageLocked(), 3),
		StatusMessage:       s.messageLocked(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
