package usecase

import (
	"fmt"
	"math"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
)

// Deduction thresholds.
const (
	maxResponseTimeSeconds = 5.0
	minSuccessRate         = 80.0
	maxConnectionErrors    = 5
	maxCacheErrors         = 10
	minCacheHitRate        = 50.0

	connectionWeight  = 0.5
	cacheWeight       = 0.3
	performanceWeight = 0.2
)

type scorer struct {
	score int
	c     domainHealth.Component
}

func newScorer() *scorer {
	return &scorer{score: 100, c: domainHealth.Component{Issues: []string{}, Recommendations: []string{}}}
}

func (s *scorer) deduct(points int, issue, recommendation string) {
	s.score -= points
	s.c.Issues = append(s.c.Issues, issue)
	s.c.Recommendations = append(s.c.Recommendations, recommendation)
}

func (s *scorer) component() domainHealth.Component {
	if s.score < 0 {
		s.score = 0
	}
	s.c.Score = s.score
	s.c.Status = domainHealth.ComponentStatusForScore(s.score)
	return s.c
}

func connectionComponent(m domainOffline.HealthMetrics) domainHealth.Component {
	s := newScorer()
	c := m.Connection
	if !c.IsOnline {
		s.deduct(30, "API is offline", "Check internet connection and Eight Sleep service status")
	}
	if c.SuccessRate < minSuccessRate {
		s.deduct(20, fmt.Sprintf("Low success rate: %.1f%%", c.SuccessRate), "Check network stability and API rate limits")
	}
	if c.AverageResponseTime > maxResponseTimeSeconds {
		s.deduct(15, fmt.Sprintf("Slow response time: %.2fs", c.AverageResponseTime), "Check network latency and API performance")
	}
	// lifetime failures, not the consecutive run
	if c.FailedRequests > maxConnectionErrors {
		s.deduct(25, fmt.Sprintf("High connection errors: %d", c.FailedRequests), "Check network connectivity and firewall settings")
	}
	return s.component()
}

func cacheComponent(m domainOffline.HealthMetrics) domainHealth.Component {
	s := newScorer()
	st := m.Cache
	if st.HitRate < minCacheHitRate {
		s.deduct(20, fmt.Sprintf("Low cache hit rate: %.1f%%", st.HitRate), "Consider adjusting cache settings or API polling frequency")
	}
	if st.Errors > maxCacheErrors {
		s.deduct(30, fmt.Sprintf("Cache errors: %d", st.Errors), "Check storage permissions and disk space")
	}
	if st.Size == 0 {
		s.deduct(10, "No cached data available", "Integration may not have cached data yet")
	}
	return s.component()
}

func performanceComponent(m domainOffline.HealthMetrics) domainHealth.Component {
	s := newScorer()
	if m.RecoveryAttempts > 0 {
		s.deduct(10*m.RecoveryAttempts, fmt.Sprintf("Recovery attempts: %d", m.RecoveryAttempts),
			"Monitor connection stability and consider network improvements")
	}
	if m.IsOffline {
		s.deduct(15, "Currently in offline mode", "Check API connectivity and service status")
	}
	return s.component()
}

func overallScore(connection, cache, performance int) int {
	weighted := float64(connection)*connectionWeight + float64(cache)*cacheWeight + float64(performance)*performanceWeight
	return int(math.Round(weighted))
}
