package usecase

import (
	"context"
	"fmt"
	"time"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/pkg/fetchmonitor"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// IntegrationIdentity is the static part of the diagnostics report.
type IntegrationIdentity struct {
	Name     string
	Version  string
	ServerID string
}

type diagnosticsService struct {
	identity  IntegrationIdentity
	startedAt time.Time
	offline   domainOffline.IOfflineUsecase
	monitor   *fetchmonitor.Monitor
	refresher domainOffline.IRefreshUsecase
	now       func() time.Time
}

// NewDiagnosticsService builds the collector. With a nil refresher the
// performance section is empty and no domain reports data.
func NewDiagnosticsService(identity IntegrationIdentity, offline domainOffline.IOfflineUsecase, monitor *fetchmonitor.Monitor, refresher domainOffline.IRefreshUsecase) domainHealth.IDiagnosticsUsecase {
	if monitor == nil {
		monitor = fetchmonitor.New(50)
	}
	return &diagnosticsService{
		identity:  identity,
		startedAt: time.Now(),
		offline:   offline,
		monitor:   monitor,
		refresher: refresher,
		now:       time.Now,
	}
}

func (s *diagnosticsService) Collect(ctx context.Context) (d domainHealth.Diagnostics) {
	now := s.now()
	d.GeneratedAt = now.UTC()
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[HEALTH] Error collecting diagnostics: %v", r)
			d.Suggestions = append(d.Suggestions, domainHealth.Suggestion{
				Issue:      "Diagnostic error",
				Suggestion: fmt.Sprintf("Error collecting diagnostics: %v", r),
				Severity:   "error",
			})
		}
	}()

	d.Integration = domainHealth.IntegrationInfo{
		Name:      s.identity.Name,
		Version:   s.identity.Version,
		ServerID:  s.identity.ServerID,
		StartedAt: s.startedAt.UTC(),
		Uptime:    now.Sub(s.startedAt).Round(time.Second).String(),
	}

	m := s.offline.HealthMetrics()
	d.Connection = domainHealth.ConnectionInfo{
		OfflineMode:          m.IsOffline,
		OfflineStatusMessage: m.OfflineStatus,
		CacheValid:           m.CacheValid,
		CacheLastUpdate:      m.Cache.LastUpdate,
		CacheSize:            m.Cache.Size,
		CacheHumanSize:       m.Cache.HumanSize,
		ConnectionErrors:     m.Connection.ConsecutiveErrors,
		MaxConnectionErrors:  m.OfflineThreshold,
	}
	if m.Cache.LastUpdate != nil {
		d.Connection.CacheLastUpdateHuman = humanize.RelTime(*m.Cache.LastUpdate, now, "ago", "from now")
	}

	d.ErrorHistory = s.monitor.Stats()

	d.Performance = []domainOffline.DomainStatus{}
	if s.refresher != nil {
		d.Performance = s.refresher.Status()
	}

	d.Suggestions = s.suggestions(m)
	return d
}

func (s *diagnosticsService) suggestions(m domainOffline.HealthMetrics) []domainHealth.Suggestion {
	out := []domainHealth.Suggestion{}
	if m.IsOffline {
		out = append(out, domainHealth.Suggestion{
			Issue:      "API is offline",
			Suggestion: "Check internet connection and Eight Sleep service status",
			Severity:   "warning",
		})
	}
	if m.Connection.ConsecutiveErrors > 0 {
		out = append(out, domainHealth.Suggestion{
			Issue:      "Connection errors detected",
			Suggestion: "Check network connectivity and firewall settings",
			Severity:   "warning",
		})
	}
	if !s.hasData(domainOffline.DomainDevice) {
		out = append(out, domainHealth.Suggestion{
			Issue:      "No device data available",
			Suggestion: "Verify device is connected and try restarting the integration",
			Severity:   "error",
		})
	}
	if !s.hasData(domainOffline.DomainUser) {
		out = append(out, domainHealth.Suggestion{
			Issue:      "No user data available",
			Suggestion: "Check account permissions and device setup",
			Severity:   "error",
		})
	}
	return append(out,
		domainHealth.Suggestion{
			Issue:      "General maintenance",
			Suggestion: "Restart the service if experiencing persistent issues",
			Severity:   "info",
		},
		domainHealth.Suggestion{
			Issue:      "Log analysis",
			Suggestion: "Check the service logs for detailed error information",
			Severity:   "info",
		},
	)
}

func (s *diagnosticsService) hasData(domain domainOffline.Domain) bool {
	if s.refresher == nil {
		return false
	}
	res, ok := s.refresher.Latest(domain)
	return ok && res.Available()
}
