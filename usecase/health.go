package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHealthHistory  = 10
	DefaultHealthInterval = 5 * time.Minute
)

type HealthOption func(*healthService)

func WithHistorySize(n int) HealthOption {
	return func(s *healthService) {
		if n > 0 {
			s.historySize = n
		}
	}
}

func WithCheckInterval(d time.Duration) HealthOption {
	return func(s *healthService) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDiagnostics attaches the collector used for detailed reports.
func WithDiagnostics(d domainHealth.IDiagnosticsUsecase) HealthOption {
	return func(s *healthService) { s.diagnostics = d }
}

func WithHealthClock(now func() time.Time) HealthOption {
	return func(s *healthService) { s.now = now }
}

type healthService struct {
	offline     domainOffline.IOfflineUsecase
	diagnostics domainHealth.IDiagnosticsUsecase
	now         func() time.Time
	historySize int
	interval    time.Duration

	mu        sync.RWMutex
	history   []domainHealth.Report
	listeners []func(domainHealth.Report)
}

func NewHealthService(offline domainOffline.IOfflineUsecase, opts ...HealthOption) domainHealth.IHealthUsecase {
	s := &healthService{
		offline:     offline,
		now:         time.Now,
		historySize: DefaultHealthHistory,
		interval:    DefaultHealthInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *healthService) PerformHealthCheck(ctx context.Context, detailed bool) domainHealth.Report {
	report := s.compute(ctx, detailed)
	if report.Status != domainHealth.StatusError {
		s.record(report)
		logrus.Infof("[HEALTH] Health check completed: %s (Score: %d)", report.Status, report.OverallScore)
	}
	return report
}

// compute never panics; a failure inside scoring becomes an error report.
func (s *healthService) compute(ctx context.Context, detailed bool) (report domainHealth.Report) {
	report = domainHealth.Report{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			err := &pkgError.ComputationError{Err: fmt.Errorf("%v", r)}
			logrus.WithError(err).Error("[HEALTH] Health check failed")
			report = domainHealth.Report{
				ID:              report.ID,
				Timestamp:       report.Timestamp,
				Status:          domainHealth.StatusError,
				OverallScore:    0,
				Issues:          []string{},
				Recommendations: []string{},
				Error:           err.Error(),
			}
		}
	}()

	m := s.offline.HealthMetrics()
	conn := connectionComponent(m)
	cache := cacheComponent(m)
	perf := performanceComponent(m)

	report.Connection = &conn
	report.Cache = &cache
	report.Performance = &perf
	report.OverallScore = overallScore(conn.Score, cache.Score, perf.Score)
	report.Status = domainHealth.StatusForScore(report.OverallScore)

	report.Issues = []string{}
	report.Recommendations = []string{}
	for _, c := range []domainHealth.Component{conn, cache, perf} {
		report.Issues = append(report.Issues, c.Issues...)
		report.Recommendations = append(report.Recommendations, c.Recommendations...)
	}

	if detailed && s.diagnostics != nil {
		d := s.diagnostics.Collect(ctx)
		report.Diagnostics = &d
	}
	return report
}

// PerformanceCheck is a detailed check with the excluded components removed.
func (s *healthService) PerformanceCheck(ctx context.Context, includeCache, includeConnection bool) domainHealth.Report {
	report := s.PerformHealthCheck(ctx, true)
	if !includeCache {
		report.Cache = nil
	}
	if !includeConnection {
		report.Connection = nil
	}
	logrus.Info("[HEALTH] Performance check completed")
	return report
}

func (s *healthService) ClearCache(ctx context.Context, confirm bool) domainHealth.ClearCacheResult {
	if !confirm {
		return domainHealth.ClearCacheResult{
			Success: false,
			Message: "Cache clear not confirmed. Set confirm: true to proceed.",
		}
	}

	now := s.now().UTC()
	if err := s.offline.ClearCache(ctx); err != nil {
		logrus.WithError(err).Error("[HEALTH] Failed to clear cache")
		return domainHealth.ClearCacheResult{
			Success:   false,
			Message:   fmt.Sprintf("Failed to clear cache: %v", err),
			Timestamp: &now,
		}
	}
	logrus.Info("[HEALTH] Cache cleared successfully")
	return domainHealth.ClearCacheResult{
		Success:   true,
		Message:   "Cache cleared successfully",
		Timestamp: &now,
	}
}

func (s *healthService) record(report domainHealth.Report) {
	s.mu.Lock()
	s.history = append(s.history, report)
	if len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
	listeners := append([]func(domainHealth.Report){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(report)
	}
}

// History returns retained reports, oldest first.
func (s *healthService) History() []domainHealth.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainHealth.Report, len(s.history))
	copy(out, s.history)
	return out
}

func (s *healthService) LastReport() (domainHealth.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return domainHealth.Report{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *healthService) ConnectionAttributes() domainHealth.ConnectionAttributes {
	return domainHealth.AttributesFrom(s.offline.HealthMetrics())
}

func (s *healthService) OnReport(listener func(domainHealth.Report)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()
}

func (s *healthService) StartPeriodicChecks(ctx context.Context) {
	logrus.Infof("[HEALTH] Starting periodic health checks (interval: %s)", s.interval)
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		s.PerformHealthCheck(ctx, false)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logrus.Debug("[HEALTH] Performing scheduled health check")
				s.PerformHealthCheck(ctx, false)
			}
		}
	}()
}
