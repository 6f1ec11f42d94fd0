package rest

import (
	domainHealth "github.com/AzielCF/az-eight/domains/health"
	"github.com/AzielCF/az-eight/pkg/utils"
	"github.com/AzielCF/az-eight/validations"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service     domainHealth.IHealthUsecase
	Diagnostics domainHealth.IDiagnosticsUsecase
}

func InitRestHealth(app fiber.Router, service domainHealth.IHealthUsecase, diagnostics domainHealth.IDiagnosticsUsecase) Health {
	handler := Health{Service: service, Diagnostics: diagnostics}

	group := app.Group("/diagnostics")
	group.Get("/health", handler.HealthCheck)
	group.Post("/performance", handler.PerformanceCheck)
	group.Get("/history", handler.History)
	group.Get("/status", handler.ConnectionStatus)
	group.Get("/report", handler.Report)

	return handler
}

func (h *Health) HealthCheck(c *fiber.Ctx) error {
	var request domainHealth.HealthCheckRequest
	utils.PanicIfNeeded(invalidRequest(c.QueryParser(&request)))

	report := h.Service.PerformHealthCheck(c.UserContext(), request.Detailed)
	status := fiber.StatusOK
	code := "SUCCESS"
	if report.Status == domainHealth.StatusError {
		status = fiber.StatusInternalServerError
		code = "HEALTH_CHECK_FAILED"
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: "Health check completed",
		Results: report,
	})
}

func (h *Health) PerformanceCheck(c *fiber.Ctx) error {
	request := domainHealth.PerformanceCheckRequest{IncludeCache: true, IncludeConnection: true}
	if len(c.Body()) > 0 {
		utils.PanicIfNeeded(invalidRequest(c.BodyParser(&request)))
	}

	report := h.Service.PerformanceCheck(c.UserContext(), request.IncludeCache, request.IncludeConnection)
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Performance check completed",
		Results: report,
	})
}

func (h *Health) History(c *fiber.Ctx) error {
	var request domainHealth.HistoryRequest
	utils.PanicIfNeeded(invalidRequest(c.QueryParser(&request)))
	utils.PanicIfNeeded(validations.ValidateHistoryRequest(c.UserContext(), request))

	history := h.Service.History()
	if request.Limit > 0 && len(history) > request.Limit {
		history = history[len(history)-request.Limit:]
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Health history retrieved",
		Results: history,
	})
}

func (h *Health) ConnectionStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Connection status retrieved",
		Results: h.Service.ConnectionAttributes(),
	})
}

func (h *Health) Report(c *fiber.Ctx) error {
	if h.Diagnostics == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "Diagnostics collector not initialized",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Diagnostics collected",
		Results: h.Diagnostics.Collect(c.UserContext()),
	})
}
