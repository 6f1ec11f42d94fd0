package health

import (
	"context"
	"time"

	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/pkg/fetchmonitor"
)

type Status string

const (
	StatusExcellent Status = "excellent"
	StatusGood      Status = "good"
	StatusFair      Status = "fair"
	StatusPoor      Status = "poor"
	StatusError     Status = "error"
)

// StatusForScore buckets an overall score.
func StatusForScore(score int) Status {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 75:
		return StatusGood
	case score >= 50:
		return StatusFair
	default:
		return StatusPoor
	}
}

type ComponentStatus string

const (
	ComponentHealthy  ComponentStatus = "healthy"
	ComponentDegraded ComponentStatus = "degraded"
	ComponentPoor     ComponentStatus = "poor"
)

func ComponentStatusForScore(score int) ComponentStatus {
	switch {
	case score >= 70:
		return ComponentHealthy
	case score >= 40:
		return ComponentDegraded
	default:
		return ComponentPoor
	}
}

type Component struct {
	Status          ComponentStatus `json:"status"`
	Score           int             `json:"score"`
	Issues          []string        `json:"issues"`
	Recommendations []string        `json:"recommendations"`
}

type Report struct {
	ID              string       `json:"id"`
	Timestamp       time.Time    `json:"timestamp"`
	Status          Status       `json:"integration_status"`
	OverallScore    int          `json:"overall_score"`
	Connection      *Component   `json:"connection,omitempty"`
	Cache           *Component   `json:"cache,omitempty"`
	Performance     *Component   `json:"performance,omitempty"`
	Issues          []string     `json:"issues"`
	Recommendations []string     `json:"recommendations"`
	Error           string       `json:"error,omitempty"`
	Diagnostics     *Diagnostics `json:"detailed_diagnostics,omitempty"`
}

type ClearCacheResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type IntegrationInfo struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	ServerID  string    `json:"server_id"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
}

type ConnectionInfo struct {
	OfflineMode          bool       `json:"offline_mode"`
	OfflineStatusMessage string     `json:"offline_status_message"`
	CacheValid           bool       `json:"cache_valid"`
	CacheLastUpdate      *time.Time `json:"cache_last_update"`
	CacheLastUpdateHuman string     `json:"cache_last_update_human,omitempty"`
	CacheSize            int        `json:"cache_size"`
	CacheHumanSize       string     `json:"cache_human_size"`
	ConnectionErrors     int        `json:"connection_errors"`
	MaxConnectionErrors  int        `json:"max_connection_errors"`
}

type Suggestion struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
	Severity   string `json:"severity"`
}

type Diagnostics struct {
	Integration  IntegrationInfo              `json:"integration"`
	Connection   ConnectionInfo               `json:"connection"`
	ErrorHistory fetchmonitor.Stats           `json:"error_history"`
	Performance  []domainOffline.DomainStatus `json:"performance"`
	Suggestions  []Suggestion                 `json:"troubleshooting_suggestions"`
	GeneratedAt  time.Time                    `json:"generated_at"`
}

// ConnectionAttributes mirrors the connection status sensor.
type ConnectionAttributes struct {
	State               string    `json:"state"`
	StatusMessage       string    `json:"status_message"`
	IsOnline            bool      `json:"is_online"`
	LastOnline          time.Time `json:"last_online"`
	LastCheck           time.Time `json:"last_check"`
	ConnectionErrors    int       `json:"connection_errors"`
	SuccessfulRequests  int64     `json:"successful_requests"`
	FailedRequests      int64     `json:"failed_requests"`
	SuccessRate         float64   `json:"success_rate"`
	AverageResponseTime float64   `json:"average_response_time"`
	CacheHitRate        float64   `json:"cache_hit_rate"`
	CacheSize           int       `json:"cache_size"`
	RecoveryAttempts    int       `json:"recovery_attempts"`
	MaxRecoveryAttempts int       `json:"max_recovery_attempts"`
}

func AttributesFrom(m domainOffline.HealthMetrics) ConnectionAttributes {
	c := m.Connection
	state := "online"
	if !c.IsOnline {
		state = "offline"
	}
	return ConnectionAttributes{
		State:               state,
		StatusMessage:       m.OfflineStatus,
		IsOnline:            c.IsOnline,
		LastOnline:          c.LastOnline,
		LastCheck:           c.LastCheck,
		ConnectionErrors:    c.ConsecutiveErrors,
		SuccessfulRequests:  c.SuccessfulRequests,
		FailedRequests:      c.FailedRequests,
		SuccessRate:         c.SuccessRate,
		AverageResponseTime: c.AverageResponseTime,
		CacheHitRate:        m.Cache.HitRate,
		CacheSize:           m.Cache.Size,
		RecoveryAttempts:    m.RecoveryAttempts,
		MaxRecoveryAttempts: m.MaxRecoveryAttempts,
	}
}

type IHealthUsecase interface {
	PerformHealthCheck(ctx context.Context, detailed bool) Report
	PerformanceCheck(ctx context.Context, includeCache, includeConnection bool) Report
	ClearCache(ctx context.Context, confirm bool) ClearCacheResult
	History() []Report
	LastReport() (Report, bool)
	ConnectionAttributes() ConnectionAttributes
	OnReport(listener func(Report))
	StartPeriodicChecks(ctx context.Context)
}

type IDiagnosticsUsecase interface {
	Collect(ctx context.Context) Diagnostics
}

type HealthCheckRequest struct {
	Detailed bool `json:"detailed" query:"detailed"`
}

type PerformanceCheckRequest struct {
	IncludeCache      bool `json:"include_cache"`
	IncludeConnection bool `json:"include_connection"`
}

type ClearCacheRequest struct {
	Confirm bool `json:"confirm"`
}

// HistoryRequest limits how many recent reports are returned; 0 means all.
type HistoryRequest struct {
	Limit int `json:"limit" query:"limit"`
}
