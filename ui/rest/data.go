package rest

import (
	"fmt"

	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/AzielCF/az-eight/pkg/utils"
	"github.com/AzielCF/az-eight/validations"
	"github.com/gofiber/fiber/v2"
)

type Data struct {
	Service domainOffline.IRefreshUsecase
}

func InitRestData(app fiber.Router, service domainOffline.IRefreshUsecase) Data {
	rest := Data{Service: service}
	app.Get("/data/status", rest.Status)
	app.Post("/data/refresh", rest.RefreshAll)
	app.Get("/data/:domain", rest.Get)

	return rest
}

// Get answers with the latest result for a domain. An unavailable result is a
// 503, never an empty payload.
func (handler *Data) Get(c *fiber.Ctx) error {
	request := domainOffline.DataRequest{Domain: c.Params("domain"), Refresh: c.QueryBool("refresh")}
	utils.PanicIfNeeded(validations.ValidateDataRequest(c.UserContext(), request))

	domain := domainOffline.Domain(request.Domain)
	result, ok := handler.Service.Latest(domain)
	if request.Refresh || !ok {
		var err error
		result, err = handler.Service.RefreshNow(c.UserContext(), domain)
		utils.PanicIfNeeded(err)
	}
	if !result.Available() {
		utils.PanicIfNeeded(pkgError.DataUnavailableError(fmt.Sprintf("no live or cached data for %s", domain)))
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: fmt.Sprintf("Data served from %s", result.Source),
		Results: result,
	})
}

func (handler *Data) RefreshAll(c *fiber.Ctx) error {
	handler.Service.RefreshAll(c.UserContext())
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "All domains refreshed",
		Results: handler.Service.Status(),
	})
}

func (handler *Data) Status(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Refresh status retrieved",
		Results: handler.Service.Status(),
	})
}

// invalidRequest reports a body or query that could not be decoded as a 400.
func invalidRequest(err error) error {
	if err == nil {
		return nil
	}
	return pkgError.ValidationError(fmt.Sprintf("invalid request: %v", err))
}
