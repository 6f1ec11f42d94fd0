package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/AzielCF/az-eight/pkg/fetchpool"
	"github.com/AzielCF/az-eight/pkg/retry"
	"github.com/sirupsen/logrus"
)

// DefaultIntervals are the polling periods per data domain.
func DefaultIntervals() map[domainOffline.Domain]time.Duration {
	return map[domainOffline.Domain]time.Duration{
		domainOffline.DomainDevice: 60 * time.Second,
		domainOffline.DomainUser:   300 * time.Second,
		domainOffline.DomainBase:   60 * time.Second,
	}
}

type RefreshOption func(*refreshService)

func WithRetryPolicy(p retry.Policy) RefreshOption {
	return func(s *refreshService) { s.policy = p }
}

func WithIntervals(intervals map[domainOffline.Domain]time.Duration) RefreshOption {
	return func(s *refreshService) {
		for d, iv := range intervals {
			if iv > 0 {
				s.intervals[d] = iv
			}
		}
	}
}

// WithFetchPool runs scheduled refreshes on pool, one shard per domain.
func WithFetchPool(pool *fetchpool.Pool) RefreshOption {
	return func(s *refreshService) { s.pool = pool }
}

type domainState struct {
	lastAttempt *time.Time
	lastSuccess *time.Time
	latest      *domainOffline.Result
}

type refreshService struct {
	offline   domainOffline.IOfflineUsecase
	fetchers  map[domainOffline.Domain]domainOffline.FetchFunc
	intervals map[domainOffline.Domain]time.Duration
	policy    retry.Policy
	pool      *fetchpool.Pool

	mu     sync.RWMutex
	state  map[domainOffline.Domain]*domainState
	cancel context.CancelFunc
	loops  sync.WaitGroup
}

func NewRefreshService(offline domainOffline.IOfflineUsecase, fetchers map[domainOffline.Domain]domainOffline.FetchFunc, opts ...RefreshOption) domainOffline.IRefreshUsecase {
	s := &refreshService{
		offline:   offline,
		fetchers:  fetchers,
		intervals: DefaultIntervals(),
		policy:    retry.DefaultPolicy(),
		state:     make(map[domainOffline.Domain]*domainState),
	}
	for _, opt := range opts {
		opt(s)
	}
	for d := range fetchers {
		s.state[d] = &domainState{}
	}
	return s
}

func (s *refreshService) domains() []domainOffline.Domain {
	out := make([]domainOffline.Domain, 0, len(s.fetchers))
	for d := range s.fetchers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Start runs one refresh of every domain and then one ticker per domain.
func (s *refreshService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if s.pool != nil {
		s.pool.Start(ctx)
	}
	s.RefreshAll(ctx)

	for _, d := range s.domains() {
		interval := s.intervals[d]
		logrus.Infof("[REFRESH] Scheduling %s every %s", d, interval)
		s.loops.Add(1)
		go func(d domainOffline.Domain, interval time.Duration) {
			defer s.loops.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.schedule(ctx, d, nil)
				}
			}
		}(d, interval)
	}
}

// schedule hands the refresh to the pool, or runs it inline when there is none.
func (s *refreshService) schedule(ctx context.Context, d domainOffline.Domain, done func()) {
	job := fetchpool.Job{
		Key: string(d),
		Handler: func(ctx context.Context) error {
			if done != nil {
				defer done()
			}
			_, err := s.RefreshNow(ctx, d)
			return err
		},
	}
	if s.pool != nil && s.pool.TryDispatch(job) {
		return
	}
	_ = job.Handler(ctx)
}

func (s *refreshService) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range s.domains() {
		wg.Add(1)
		s.schedule(ctx, d, wg.Done)
	}
	wg.Wait()
}

func (s *refreshService) RefreshNow(ctx context.Context, d domainOffline.Domain) (domainOffline.Result, error) {
	fetch, ok := s.fetchers[d]
	if !ok {
		return domainOffline.Result{}, pkgError.NotFoundError(fmt.Sprintf("unknown data domain: %s", d))
	}

	if s.offline.IsOffline() {
		if s.offline.Probe(ctx) {
			logrus.Infof("[REFRESH] Connectivity probe succeeded before refreshing %s", d)
		}
	}

	var lastErr error
	var errMu sync.Mutex
	wrapped := func(ctx context.Context) (domainOffline.Payload, error) {
		p, err := retry.DoValue(ctx, s.policy, fetch)
		errMu.Lock()
		lastErr = err
		errMu.Unlock()
		return p, err
	}

	attempt := time.Now().UTC()
	res := s.offline.GetWithFallback(ctx, string(d), wrapped)

	errMu.Lock()
	err := lastErr
	errMu.Unlock()
	if err != nil {
		key, msg := pkgError.FromError(err)
		logrus.WithField("error_type", key).Warnf("[REFRESH] %s %s: %s %s", d, msg.Title, msg.Message, msg.Suggestion)
	}
	if !res.Available() {
		logrus.Warnf("[REFRESH] No data available for %s", d)
	}

	s.mu.Lock()
	st := s.state[d]
	st.lastAttempt = &attempt
	if res.Source == domainOffline.SourceLive {
		st.lastSuccess = &attempt
	}
	r := res
	st.latest = &r
	s.mu.Unlock()

	return res, nil
}

func (s *refreshService) Latest(d domainOffline.Domain) (domainOffline.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state[d]
	if !ok || st.latest == nil {
		return domainOffline.Result{}, false
	}
	return *st.latest, true
}

func (s *refreshService) Status() []domainOffline.DomainStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainOffline.DomainStatus, 0, len(s.state))
	for _, d := range s.domains() {
		st := s.state[d]
		ds := domainOffline.DomainStatus{
			Domain:      d,
			Interval:    s.intervals[d],
			LastAttempt: st.lastAttempt,
			LastSuccess: st.lastSuccess,
		}
		if st.latest != nil {
			ds.LastSource = st.latest.Source
			ds.HasData = st.latest.Available()
		}
		out = append(out, ds)
	}
	return out
}

func (s *refreshService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.loops.Wait()
	if s.pool != nil {
		s.pool.Stop()
	}
	logrus.Info("[REFRESH] Refresh loops stopped")
}
