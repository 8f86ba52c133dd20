package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Sentinel errors for the license domain. Services and the binding engine
// return these; the HTTP layer maps them with MapLicenseError. Store
// contention (ErrStoreConflict) is an infrastructure failure and maps to
// 500, never to a business outcome.
var (
	ErrLicenseNotFound   = errors.New("license not found")
	ErrLicenseRevoked    = errors.New("license revoked")
	ErrLicenseExpired    = errors.New("license expired")
	ErrMaxDevicesReached = errors.New("max devices reached")
	ErrMissingInput      = errors.New("missing required input")
	ErrInvalidSignature  = errors.New("invalid request signature")
	ErrStoreConflict     = errors.New("store version conflict not resolved")
	ErrStoreUnavailable  = errors.New("license store unavailable")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// MapLicenseError maps domain errors to HTTP problem details. The Detail
// strings on the denial responses are part of the public contract and
// must not be reworded.
func MapLicenseError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/license#trace-%s", traceID)

	switch {
	case errors.Is(err, ErrLicenseNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/license-not-found",
			"License Not Found",
			"License not found",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_NOT_FOUND")

	case errors.Is(err, ErrLicenseRevoked):
		return NewProblemDetails(
			http.StatusForbidden,
			"/errors/license-revoked",
			"License Revoked",
			"License revoked",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_REVOKED")

	case errors.Is(err, ErrLicenseExpired):
		return NewProblemDetails(
			http.StatusForbidden,
			"/errors/license-expired",
			"License Expired",
			"License expired",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "LICENSE_EXPIRED")

	case errors.Is(err, ErrMaxDevicesReached):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/max-devices-reached",
			"Max Devices Reached",
			"Max devices reached",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MAX_DEVICES_REACHED")

	case errors.Is(err, ErrMissingInput):
		return NewProblemDetails(
			http.StatusBadRequest,
			"/errors/missing-input",
			"Missing Required Input",
			"license_key and device_id are required",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "MISSING_INPUT")

	case errors.Is(err, ErrInvalidSignature):
		return NewProblemDetails(
			http.StatusUnauthorized,
			"/errors/invalid-signature",
			"Invalid Signature",
			"Request signature verification failed",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INVALID_SIGNATURE")

	case errors.Is(err, ErrStoreUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/store-unavailable",
			"Service Unavailable",
			"License store is temporarily unavailable. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "STORE_UNAVAILABLE")

	default:
		// ErrStoreConflict and anything unexpected land here: the
		// request failed for internal reasons, not a license verdict.
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
