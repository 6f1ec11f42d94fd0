package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/AzielCF/az-eight/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler fiber.Handler) (int, utils.ResponseData) {
	t.Helper()
	app := fiber.New()
	app.Use(Recovery())
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body utils.ResponseData
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestRecovery_GenericError(t *testing.T) {
	status, body := serve(t, func(c *fiber.Ctx) error {
		utils.PanicIfNeeded(pkgError.ValidationError("domain: must be one of device_data, user_data, base_data."))
		return nil
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Message, "must be one of")
}

func TestRecovery_PlainPanic(t *testing.T) {
	status, body := serve(t, func(c *fiber.Ctx) error {
		utils.PanicIfNeeded(errors.New("disk full"))
		return nil
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Code)
	assert.Equal(t, "disk full", body.Message)
}

func TestRecovery_DataUnavailable(t *testing.T) {
	status, body := serve(t, func(c *fiber.Ctx) error {
		panic(pkgError.DataUnavailableError("no live or cached data for device_data"))
	})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DATA_UNAVAILABLE", body.Code)
}
