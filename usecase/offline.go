package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domainCache "github.com/AzielCF/az-eight/domains/cache"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/AzielCF/az-eight/pkg/connstatus"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/AzielCF/az-eight/pkg/fetchmonitor"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRecoveryAttempts = 5
	DefaultRecoveryDelay       = 30 * time.Second
)

type OfflineOption func(*offlineManager)

// WithProbe makes recovery confirm connectivity before clearing the error run.
func WithProbe(probe domainOffline.ProbeFunc) OfflineOption {
	return func(m *offlineManager) { m.probe = probe }
}

func WithRecovery(maxAttempts int, delay time.Duration) OfflineOption {
	return func(m *offlineManager) {
		if maxAttempts >= 0 {
			m.maxRecovery = maxAttempts
		}
		if delay >= 0 {
			m.recoveryDelay = delay
		}
	}
}

// WithSleep replaces the recovery wait. It must return ctx.Err() when ctx ends first.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) OfflineOption {
	return func(m *offlineManager) { m.sleep = sleep }
}

func WithConnectionStatus(s *connstatus.Status) OfflineOption {
	return func(m *offlineManager) { m.status = s }
}

func WithMonitor(mon *fetchmonitor.Monitor) OfflineOption {
	return func(m *offlineManager) { m.monitor = mon }
}

type offlineManager struct {
	status  *connstatus.Status
	cache   domainCache.ICacheUsecase
	monitor *fetchmonitor.Monitor
	probe   domainOffline.ProbeFunc
	sleep   func(ctx context.Context, d time.Duration) error

	maxRecovery   int
	recoveryDelay time.Duration

	mu               sync.Mutex
	recoveryAttempts int
	lastKnownOnline  bool
	listeners        []domainOffline.StatusListener

	persistWG sync.WaitGroup
}

func NewOfflineManager(cache domainCache.ICacheUsecase, opts ...OfflineOption) domainOffline.IOfflineUsecase {
	m := &offlineManager{
		cache:         cache,
		sleep:         sleepContext,
		maxRecovery:   DefaultMaxRecoveryAttempts,
		recoveryDelay: DefaultRecoveryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.status == nil {
		m.status = connstatus.New()
	}
	if m.monitor == nil {
		m.monitor = fetchmonitor.New(50)
	}
	m.lastKnownOnline = m.status.IsOnline()
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *offlineManager) Initialize(ctx context.Context) {
	m.cache.Load(ctx)
	stats := m.cache.Stats()
	logrus.Infof("[OFFLINE] Initialized with %d cached entries (valid: %t)", stats.Size, m.cache.IsValid())
}

// GetWithFallback never returns an error. Failures surface as a cache or
// unavailable Result and in the connection status.
func (m *offlineManager) GetWithFallback(ctx context.Context, key string, fetch domainOffline.FetchFunc) domainOffline.Result {
	defer m.syncOnlineState()

	needsReauth := false
	if m.status.IsOnline() {
		start := time.Now()
		payload, err := safeFetch(ctx, fetch)
		elapsed := time.Since(start)

		if err == nil {
			m.status.MarkSuccessWithLatency(elapsed)
			m.store(key, payload)
			m.mu.Lock()
			m.recoveryAttempts = 0
			m.mu.Unlock()
			m.monitor.Record(fetchmonitor.Event{Key: key, Outcome: fetchmonitor.OutcomeLive, DurationMs: elapsed.Milliseconds()})
			return domainOffline.Result{Payload: payload, Source: domainOffline.SourceLive}
		}

		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logrus.Debugf("[OFFLINE] Fetch for %s cancelled", key)
		} else {
			m.status.MarkError()
			errType, _ := pkgError.FromError(err)
			m.monitor.Record(fetchmonitor.Event{
				Key:        key,
				Outcome:    fetchmonitor.OutcomeError,
				ErrorType:  errType,
				Error:      err.Error(),
				DurationMs: elapsed.Milliseconds(),
			})
			logrus.WithError(err).Warnf("[OFFLINE] Fetch failed for %s (%d consecutive errors)", key, m.status.ConsecutiveErrors())

			if pkgError.IsAuth(err) {
				needsReauth = true
				logrus.Warnf("[OFFLINE] Authentication rejected for %s, re-authentication required", key)
			} else {
				m.attemptRecovery(ctx)
			}
		}
	}

	res := m.fromCache(key)
	res.NeedsReauth = needsReauth
	return res
}

func safeFetch(ctx context.Context, fetch domainOffline.FetchFunc) (payload domainOffline.Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	if fetch == nil {
		return payload, errors.New("no fetch function")
	}
	return fetch(ctx)
}

func (m *offlineManager) store(key string, payload domainOffline.Payload) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Errorf("[OFFLINE] Failed to encode payload for %s", key)
		return
	}
	m.cache.Set(key, data)

	m.persistWG.Add(1)
	go func() {
		defer m.persistWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Save logs and counts its own failures.
		_ = m.cache.Save(ctx)
	}()
}

func (m *offlineManager) fromCache(key string) domainOffline.Result {
	raw, ok := m.cache.Get(key)
	if !ok {
		logrus.Warnf("[OFFLINE] No valid cached data for %s", key)
		m.monitor.Record(fetchmonitor.Event{Key: key, Outcome: fetchmonitor.OutcomeUnavailable})
		return domainOffline.Result{Source: domainOffline.SourceUnavailable}
	}

	var payload domainOffline.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		logrus.WithError(err).Errorf("[OFFLINE] Cached entry for %s is unreadable", key)
		m.monitor.Record(fetchmonitor.Event{Key: key, Outcome: fetchmonitor.OutcomeUnavailable, Error: err.Error()})
		return domainOffline.Result{Source: domainOffline.SourceUnavailable}
	}

	logrus.Infof("[OFFLINE] Serving cached data for %s", key)
	m.monitor.Record(fetchmonitor.Event{Key: key, Outcome: fetchmonitor.OutcomeCache})
	return domainOffline.Result{Payload: payload, Source: domainOffline.SourceCache}
}

// attemptRecovery waits once and then clears the error run, either after a
// successful probe or optimistically when no probe is configured.
func (m *offlineManager) attemptRecovery(ctx context.Context) {
	m.mu.Lock()
	if m.recoveryAttempts >= m.maxRecovery {
		m.mu.Unlock()
		logrus.Debugf("[OFFLINE] Recovery budget exhausted (%d/%d)", m.maxRecovery, m.maxRecovery)
		return
	}
	m.recoveryAttempts++
	attempt := m.recoveryAttempts
	m.mu.Unlock()

	logrus.Infof("[OFFLINE] Attempting recovery (%d/%d) in %s", attempt, m.maxRecovery, m.recoveryDelay)
	if err := m.sleep(ctx, m.recoveryDelay); err != nil {
		logrus.Debugf("[OFFLINE] Recovery wait interrupted: %v", err)
		return
	}

	if m.probe == nil {
		m.status.ResetErrors()
		logrus.Infof("[OFFLINE] Recovery attempt %d: error counter reset", attempt)
		return
	}
	if err := m.probe(ctx); err != nil {
		logrus.WithError(err).Warnf("[OFFLINE] Recovery attempt %d: probe failed", attempt)
		return
	}
	m.status.ResetErrors()
	logrus.Infof("[OFFLINE] Recovery attempt %d: probe succeeded", attempt)
}

// Probe checks connectivity without touching the cache. Without a probe
// function it only reports the tracked state.
func (m *offlineManager) Probe(ctx context.Context) bool {
	if m.probe == nil {
		return m.status.IsOnline()
	}
	defer m.syncOnlineState()
	if err := m.probe(ctx); err != nil {
		logrus.WithError(err).Debug("[OFFLINE] Connectivity probe failed")
		return false
	}
	m.status.ResetErrors()
	return true
}

func (m *offlineManager) IsOffline() bool {
	return !m.status.IsOnline()
}

func (m *offlineManager) StatusMessage() string {
	return m.status.StatusMessage()
}

func (m *offlineManager) HealthMetrics() domainOffline.HealthMetrics {
	conn := m.status.Metrics()
	m.mu.Lock()
	attempts := m.recoveryAttempts
	m.mu.Unlock()

	return domainOffline.HealthMetrics{
		Connection:          conn,
		Cache:               m.cache.Stats(),
		CacheValid:          m.cache.IsValid(),
		RecoveryAttempts:    attempts,
		MaxRecoveryAttempts: m.maxRecovery,
		OfflineThreshold:    m.status.Threshold(),
		IsOffline:           !conn.IsOnline,
		OfflineStatus:       conn.StatusMessage,
	}
}

func (m *offlineManager) ClearCache(ctx context.Context) error {
	m.cache.Clear()
	return m.cache.Save(ctx)
}

func (m *offlineManager) OnStatusChange(listener domainOffline.StatusListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

func (m *offlineManager) syncOnlineState() {
	online := m.status.IsOnline()

	m.mu.Lock()
	changed := online != m.lastKnownOnline
	m.lastKnownOnline = online
	listeners := append([]domainOffline.StatusListener(nil), m.listeners...)
	m.mu.Unlock()

	if !changed {
		return
	}
	msg := m.status.StatusMessage()
	if online {
		logrus.Infof("[OFFLINE] API connection restored: %s", msg)
	} else {
		logrus.Warnf("[OFFLINE] API marked offline after %d consecutive errors", m.status.ConsecutiveErrors())
	}
	for _, l := range listeners {
		l(online, msg)
	}
}

// Close waits for pending cache writes and then saves once more.
func (m *offlineManager) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.persistWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.cache.Save(ctx)
}
