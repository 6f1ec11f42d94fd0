package validations

import (
	"context"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	pkgError "github.com/AzielCF/az-eight/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxHistoryLimit bounds the history endpoint.
const MaxHistoryLimit = 100

func knownDomains() []interface{} {
	out := []interface{}{}
	for _, d := range domainOffline.AllDomains() {
		out = append(out, string(d))
	}
	return out
}

func ValidateDataRequest(ctx context.Context, request domainOffline.DataRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Domain, validation.Required, validation.In(knownDomains()...).Error("must be one of device_data, user_data, base_data")),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateHistoryRequest(ctx context.Context, request domainHealth.HistoryRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Limit, validation.Min(0), validation.Max(MaxHistoryLimit)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
