package rest

import (
	"github.com/AzielCF/az-eight/pkg/fetchpool"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var fetchPool *fetchpool.Pool

// SetFetchPool exposes pool on the stats endpoint.
func SetFetchPool(pool *fetchpool.Pool) {
	fetchPool = pool
}

// GetFetchPoolStats returns real-time refresh worker pool statistics
func GetFetchPoolStats(c *fiber.Ctx) error {
	if fetchPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Fetch worker pool not initialized",
		})
	}
	return c.JSON(fetchPool.GetStats())
}

// InitRestMonitoring registers the pool stats and the prometheus scrape endpoint.
func InitRestMonitoring(app fiber.Router, gatherer prometheus.Gatherer) {
	app.Get("/fetch-pool/stats", GetFetchPoolStats)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
