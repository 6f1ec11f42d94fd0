package validations

import (
	"context"
	"testing"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestValidateDataRequest(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateDataRequest(ctx, domainOffline.DataRequest{Domain: "device_data"}))
	assert.NoError(t, ValidateDataRequest(ctx, domainOffline.DataRequest{Domain: "base_data", Refresh: true}))

	err := ValidateDataRequest(ctx, domainOffline.DataRequest{Domain: "sleep_stages"})
	var vErr pkgError.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "must be one of")

	assert.Error(t, ValidateDataRequest(ctx, domainOffline.DataRequest{}))
}

func TestValidateHistoryRequest(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateHistoryRequest(ctx, domainHealth.HistoryRequest{}))
	assert.NoError(t, ValidateHistoryRequest(ctx, domainHealth.HistoryRequest{Limit: 5}))
	assert.Error(t, ValidateHistoryRequest(ctx, domainHealth.HistoryRequest{Limit: -1}))
	assert.Error(t, ValidateHistoryRequest(ctx, domainHealth.HistoryRequest{Limit: MaxHistoryLimit + 1}))
}
