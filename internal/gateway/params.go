package gateway

import (
	"strconv"
	"strings"
)

// Runtime toggle keys, stored in the configuration parameter table so
// administrators can flip them without a restart.
const (
	ParamEnabled          = "gateway.enabled"
	ParamUseAPIKeys       = "gateway.use_api_keys"
	ParamRequestLimit     = "gateway.request_limit"
	ParamRequestTimeout   = "gateway.request_timeout"
	ParamEnableRateLimit  = "gateway.enable_rate_limiting"
	ParamEnableLogging    = "gateway.enable_logging"
	ParamLogRetentionDays = "gateway.log_retention_days"
)

// Defaults for the runtime toggles. The global switch defaults off so a
// fresh installation exposes nothing.
const (
	DefaultRequestLimit     = 300
	MinimumRequestLimit     = 10
	DefaultRequestTimeout   = 30
	DefaultLogRetentionDays = 30
)

// ParamStore is the configuration store collaborator: a flat string
// key/value table with defaults applied on read.
type ParamStore interface {
	GetParam(key, fallback string) string
	SetParam(key, value string) error
}

// BoolParam reads a boolean toggle; anything but "true" (case
// insensitive) is false, so the store fails closed on garbage.
func BoolParam(ps ParamStore, key, fallback string) bool {
	return strings.EqualFold(ps.GetParam(key, fallback), "true")
}

// RequestLimit reads the per-minute request cap. Zero means unlimited;
// any other value is floored to MinimumRequestLimit so a typo cannot
// lock every caller out.
func RequestLimit(ps ParamStore) int {
	limit := IntParam(ps, ParamRequestLimit, DefaultRequestLimit)
	if limit != 0 && limit < MinimumRequestLimit {
		return MinimumRequestLimit
	}
	return limit
}

// IntParam reads an integer parameter, falling back on parse errors.
func IntParam(ps ParamStore, key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(ps.GetParam(key, strconv.Itoa(fallback))))
	if err != nil {
		return fallback
	}
	return v
}
