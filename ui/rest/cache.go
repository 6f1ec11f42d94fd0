package rest

import (
	domainCache "github.com/AzielCF/az-eight/domains/cache"
	domainHealth "github.com/AzielCF/az-eight/domains/health"
	"github.com/AzielCF/az-eight/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Cache struct {
	Service domainCache.ICacheUsecase
	Health  domainHealth.IHealthUsecase
}

type cacheStatsResponse struct {
	domainCache.CacheStats
	Valid bool     `json:"valid"`
	Keys  []string `json:"keys"`
}

func InitRestCache(app fiber.Router, service domainCache.ICacheUsecase, health domainHealth.IHealthUsecase) Cache {
	rest := Cache{Service: service, Health: health}
	app.Get("/diagnostics/cache/stats", rest.GetStats)
	app.Post("/diagnostics/cache/clear", rest.Clear)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cache stats retrieved",
		Results: cacheStatsResponse{
			CacheStats: handler.Service.Stats(),
			Valid:      handler.Service.IsValid(),
			Keys:       handler.Service.Keys(),
		},
	})
}

// Clear uses the health service's confirm gate and messages.
func (handler *Cache) Clear(c *fiber.Ctx) error {
	var request domainHealth.ClearCacheRequest
	if len(c.Body()) > 0 {
		utils.PanicIfNeeded(invalidRequest(c.BodyParser(&request)))
	}

	result := handler.Health.ClearCache(c.UserContext(), request.Confirm)
	status, code := fiber.StatusOK, "SUCCESS"
	switch {
	case !request.Confirm:
		status, code = fiber.StatusBadRequest, "NOT_CONFIRMED"
	case !result.Success:
		status, code = fiber.StatusInternalServerError, "CACHE_CLEAR_FAILED"
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: result.Message,
		Results: result,
	})
}
