package offline

import (
	"context"
	"encoding/json"
	"time"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	"github.com/AzielCF/az-eight/pkg/connstatus"
)

// Domain names a polled data set. Its string value doubles as the cache key.
type Domain string

const (
	DomainDevice Domain = "device_data"
	DomainUser   Domain = "user_data"
	DomainBase   Domain = "base_data"
)

func AllDomains() []Domain {
	return []Domain{DomainDevice, DomainUser, DomainBase}
}

// Payload is a validated response body for one domain.
type Payload struct {
	Domain    Domain          `json:"domain"`
	Data      json.RawMessage `json:"data"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type FetchFunc func(ctx context.Context) (Payload, error)

// ProbeFunc performs one cheap request to confirm connectivity.
type ProbeFunc func(ctx context.Context) error

type Source string

const (
	SourceLive        Source = "live"
	SourceCache       Source = "cache"
	SourceUnavailable Source = "unavailable"
)

// Result is what GetWithFallback hands back. An unavailable result carries no
// payload and must be rendered as a degraded state, never as zero values.
type Result struct {
	Payload     Payload `json:"payload"`
	Source      Source  `json:"source"`
	NeedsReauth bool    `json:"needs_reauth"`
}

func (r Result) Available() bool {
	return r.Source != SourceUnavailable
}

type HealthMetrics struct {
	Connection          connstatus.Metrics     `json:"connection_status"`
	Cache               domainCache.CacheStats `json:"cache_stats"`
	CacheValid          bool                   `json:"cache_valid"`
	RecoveryAttempts    int                    `json:"recovery_attempts"`
	MaxRecoveryAttempts int                    `json:"max_recovery_attempts"`
	OfflineThreshold    int                    `json:"max_connection_errors"`
	IsOffline           bool                   `json:"is_offline"`
	OfflineStatus       string                 `json:"offline_status"`
}

// StatusListener is notified whenever the online state flips.
type StatusListener func(online bool, message string)

type IOfflineUsecase interface {
	Initialize(ctx context.Context)
	GetWithFallback(ctx context.Context, key string, fetch FetchFunc) Result
	Probe(ctx context.Context) bool
	IsOffline() bool
	StatusMessage() string
	HealthMetrics() HealthMetrics
	ClearCache(ctx context.Context) error
	OnStatusChange(listener StatusListener)
	Close(ctx context.Context) error
}

type DomainStatus struct {
	Domain      Domain        `json:"domain"`
	Interval    time.Duration `json:"interval"`
	LastAttempt *time.Time    `json:"last_attempt,omitempty"`
	LastSuccess *time.Time    `json:"last_success,omitempty"`
	LastSource  Source        `json:"last_source,omitempty"`
	HasData     bool          `json:"has_data"`
}

// IRefreshUsecase drives the periodic per-domain refresh loops.
type IRefreshUsecase interface {
	Start(ctx context.Context)
	RefreshNow(ctx context.Context, domain Domain) (Result, error)
	RefreshAll(ctx context.Context)
	Latest(domain Domain) (Result, bool)
	Status() []DomainStatus
	Stop()
}

// DataRequest asks for the latest data of one domain, optionally refreshing first.
type DataRequest struct {
	Domain  string `json:"domain" params:"domain"`
	Refresh bool   `json:"refresh" query:"refresh"`
}
