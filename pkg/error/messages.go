package error

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Category string

const (
	CategoryConnection     Category = "connection"
	CategoryAuthentication Category = "authentication"
	CategoryDevice         Category = "device"
	CategoryData           Category = "data"
	CategorySystem         Category = "system"
	CategoryUnknown        Category = "unknown"
)

// Catalogue keys.
const (
	MsgAuthenticationFailed = "authentication_failed"
	MsgConnectionTimeout    = "connection_timeout"
	MsgRateLimitExceeded    = "rate_limit_exceeded"
	MsgAPIUnavailable       = "api_unavailable"
	MsgDeviceNotFound       = "device_not_found"
	MsgDataSyncFailed       = "data_sync_failed"
	MsgOfflineMode          = "offline_mode"
	MsgInvalidCredentials   = "invalid_credentials"
	MsgNetworkError         = "network_error"
	MsgServiceUnavailable   = "service_unavailable"
	MsgDataParsingError     = "data_parsing_error"
	MsgDeviceOffline        = "device_offline"
	MsgPermissionDenied     = "permission_denied"
	MsgAccountLocked        = "account_locked"
	MsgMaintenanceMode      = "maintenance_mode"

	// MsgIntegrationError is returned by FromError when nothing in the catalogue matches.
	MsgIntegrationError = "integration_error"
)

// UserMessage is an operator-facing explanation of a failure.
type UserMessage struct {
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
	Severity   Severity `json:"severity"`
}

var catalogue = map[string]UserMessage{
	MsgAuthenticationFailed: {
		Title:      "Authentication Failed",
		Message:    "Unable to connect to Eight Sleep. Please check your username and password.",
		Suggestion: "Verify your credentials in the integration settings and try again.",
		Severity:   SeverityError,
	},
	MsgConnectionTimeout: {
		Title:      "Connection Timeout",
		Message:    "The connection to Eight Sleep timed out.",
		Suggestion: "Check your internet connection and try again in a few minutes.",
		Severity:   SeverityWarning,
	},
	MsgRateLimitExceeded: {
		Title:      "Rate Limit Exceeded",
		Message:    "Too many requests to Eight Sleep API.",
		Suggestion: "The integration will automatically retry. Please wait a few minutes.",
		Severity:   SeverityWarning,
	},
	MsgAPIUnavailable: {
		Title:      "Eight Sleep Service Unavailable",
		Message:    "Eight Sleep services are currently unavailable.",
		Suggestion: "The integration will use cached data. Please try again later.",
		Severity:   SeverityWarning,
	},
	MsgDeviceNotFound: {
		Title:      "Device Not Found",
		Message:    "Your Eight Sleep device could not be found.",
		Suggestion: "Ensure your device is connected and try restarting the integration.",
		Severity:   SeverityError,
	},
	MsgDataSyncFailed: {
		Title:      "Data Sync Failed",
		Message:    "Unable to sync sleep data from Eight Sleep.",
		Suggestion: "Check your device connection and try refreshing the integration.",
		Severity:   SeverityWarning,
	},
	MsgOfflineMode: {
		Title:      "Using Offline Mode",
		Message:    "Eight Sleep API is unavailable. Using cached data.",
		Suggestion: "Some features may be limited. Data will sync when connection is restored.",
		Severity:   SeverityInfo,
	},
	MsgInvalidCredentials: {
		Title:      "Invalid Credentials",
		Message:    "Your Eight Sleep credentials are invalid.",
		Suggestion: "Please update your username and password in the integration settings.",
		Severity:   SeverityError,
	},
	MsgNetworkError: {
		Title:      "Network Error",
		Message:    "Network connection to Eight Sleep failed.",
		Suggestion: "Check your internet connection and firewall settings.",
		Severity:   SeverityWarning,
	},
	MsgServiceUnavailable: {
		Title:      "Service Temporarily Unavailable",
		Message:    "Eight Sleep services are temporarily unavailable.",
		Suggestion: "Please try again in a few minutes.",
		Severity:   SeverityWarning,
	},
	MsgDataParsingError: {
		Title:      "Data Processing Error",
		Message:    "Unable to process sleep data from Eight Sleep.",
		Suggestion: "Try restarting the integration or contact support if the issue persists.",
		Severity:   SeverityError,
	},
	MsgDeviceOffline: {
		Title:      "Device Offline",
		Message:    "Your Eight Sleep device appears to be offline.",
		Suggestion: "Check your device's power and internet connection.",
		Severity:   SeverityWarning,
	},
	MsgPermissionDenied: {
		Title:      "Access Denied",
		Message:    "You don't have permission to access this Eight Sleep account.",
		Suggestion: "Check your account permissions or contact Eight Sleep support.",
		Severity:   SeverityError,
	},
	MsgAccountLocked: {
		Title:      "Account Locked",
		Message:    "Your Eight Sleep account has been temporarily locked.",
		Suggestion: "Please contact Eight Sleep support to unlock your account.",
		Severity:   SeverityError,
	},
	MsgMaintenanceMode: {
		Title:      "Eight Sleep Maintenance",
		Message:    "Eight Sleep is currently undergoing maintenance.",
		Suggestion: "Please try again later when maintenance is complete.",
		Severity:   SeverityInfo,
	},
}

var categories = map[Category][]string{
	CategoryConnection:     {MsgConnectionTimeout, MsgNetworkError, MsgAPIUnavailable, MsgServiceUnavailable},
	CategoryAuthentication: {MsgAuthenticationFailed, MsgInvalidCredentials, MsgPermissionDenied, MsgAccountLocked},
	CategoryDevice:         {MsgDeviceNotFound, MsgDeviceOffline},
	CategoryData:           {MsgDataSyncFailed, MsgDataParsingError},
	CategorySystem:         {MsgRateLimitExceeded, MsgOfflineMode, MsgMaintenanceMode},
}

// MessageFor returns the catalogue entry for key with {placeholders} in the
// message and suggestion replaced from vars.
func MessageFor(key string, vars map[string]string) UserMessage {
	msg, ok := catalogue[key]
	if !ok {
		return UserMessage{
			Title:      "Unknown Error",
			Message:    fmt.Sprintf("An unexpected error occurred: %s", key),
			Suggestion: "Please try again or contact support if the issue persists.",
			Severity:   SeverityError,
		}
	}
	for k, v := range vars {
		placeholder := "{" + k + "}"
		msg.Message = strings.ReplaceAll(msg.Message, placeholder, v)
		msg.Suggestion = strings.ReplaceAll(msg.Suggestion, placeholder, v)
	}
	return msg
}

func Categorize(key string) Category {
	for category, keys := range categories {
		for _, k := range keys {
			if k == key {
				return category
			}
		}
	}
	return CategoryUnknown
}

func SeverityOf(key string) Severity {
	return MessageFor(key, nil).Severity
}

// FormatForLogging renders "Title: message (Details: ...) (Context: ...)".
func FormatForLogging(key, details string, vars map[string]string) string {
	msg := MessageFor(key, vars)
	out := msg.Title + ": " + msg.Message
	if details != "" {
		out += " (Details: " + details + ")"
	}
	if len(vars) > 0 {
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+vars[k])
		}
		out += " (Context: " + strings.Join(pairs, ", ") + ")"
	}
	return out
}

var patterns = []struct {
	key    string
	needle []string
}{
	{MsgConnectionTimeout, []string{"timeout", "timed out"}},
	{MsgInvalidCredentials, []string{"401", "unauthorized"}},
	{MsgPermissionDenied, []string{"403", "forbidden"}},
	{MsgDeviceNotFound, []string{"404", "not found"}},
	{MsgRateLimitExceeded, []string{"429", "rate limit"}},
	{MsgServiceUnavailable, []string{"500", "server error"}},
	{MsgNetworkError, []string{"connection", "network"}},
	{MsgAuthenticationFailed, []string{"authentication", "login"}},
	{MsgMaintenanceMode, []string{"maintenance"}},
	{MsgDeviceOffline, []string{"offline"}},
}

// FromError maps err onto the catalogue. Typed errors win over text matching.
func FromError(err error) (string, UserMessage) {
	if err == nil {
		return "", UserMessage{}
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.Status == http.StatusForbidden {
			return MsgPermissionDenied, MessageFor(MsgPermissionDenied, nil)
		}
		return MsgInvalidCredentials, MessageFor(MsgInvalidCredentials, nil)
	}
	var transient *TransientFetchError
	if errors.As(err, &transient) {
		switch {
		case transient.Status == http.StatusTooManyRequests:
			return MsgRateLimitExceeded, MessageFor(MsgRateLimitExceeded, nil)
		case transient.Status == http.StatusServiceUnavailable:
			return MsgAPIUnavailable, MessageFor(MsgAPIUnavailable, nil)
		case transient.Status >= http.StatusInternalServerError:
			return MsgServiceUnavailable, MessageFor(MsgServiceUnavailable, nil)
		}
	}
	var notFound NotFoundError
	if errors.As(err, &notFound) {
		return MsgDeviceNotFound, MessageFor(MsgDeviceNotFound, nil)
	}

	text := strings.ToLower(err.Error())
	for _, p := range patterns {
		for _, n := range p.needle {
			if strings.Contains(text, n) {
				return p.key, MessageFor(p.key, nil)
			}
		}
	}

	return MsgIntegrationError, UserMessage{
		Title:      "Integration Error",
		Message:    fmt.Sprintf("An error occurred while communicating with Eight Sleep: %s", err.Error()),
		Suggestion: "Please try again or restart the integration. If the problem persists, contact support.",
		Severity:   SeverityError,
	}
}

type Notification struct {
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Data    NotificationData `json:"data"`
}

type NotificationData struct {
	Suggestion string   `json:"suggestion"`
	Severity   Severity `json:"severity"`
	ErrorType  string   `json:"error_type"`
	EntityID   string   `json:"entity_id"`
	Category   Category `json:"category"`
}

func NotificationFor(key, entityID string, vars map[string]string) Notification {
	msg := MessageFor(key, vars)
	return Notification{
		Title:   msg.Title,
		Message: msg.Message,
		Data: NotificationData{
			Suggestion: msg.Suggestion,
			Severity:   msg.Severity,
			ErrorType:  key,
			EntityID:   entityID,
			Category:   Categorize(key),
		},
	}
}
