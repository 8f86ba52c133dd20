package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	licenseErrors "solunex/internal/errors"
	"solunex/internal/infrastructure"
	"solunex/internal/middleware"
	"solunex/internal/services"
	api "solunex/pkg/contracts/api/v1"
)

// LicenseHandler handles license-related HTTP requests
type LicenseHandler struct {
	service  services.LicenseService
	validate *validator.Validate
	signMW   func(http.Handler) http.Handler
	logger   *slog.Logger
}

// NewLicenseHandler creates a new license handler. signMW, when non-nil,
// is applied to the signed SDK routes (activate, ping).
func NewLicenseHandler(service services.LicenseService, signMW func(http.Handler) http.Handler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:  service,
		validate: validator.New(),
		signMW:   signMW,
		logger:   logger.With(slog.String("handler", "license")),
	}
}

// Routes returns a chi router for license endpoints
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Soft lane: never signed, always 200
	r.Get("/check/{licenseKey}", h.Check)
	r.Post("/validate", h.Validate)

	// Read-only projections
	r.Get("/info/{licenseKey}", h.Info)

	// Signed SDK routes
	r.Group(func(r chi.Router) {
		if h.signMW != nil {
			r.Use(h.signMW)
		}
		r.Post("/activate", h.Activate)
		r.Get("/ping/{licenseKey}", h.Ping)
	})

	return r
}

// Check handles GET /api/license/check/{licenseKey}
func (h *LicenseHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.check",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/check/{licenseKey}"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	key := chi.URLParam(r, "licenseKey")
	result, err := h.service.Check(ctx, key)
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, licenseErrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	span.SetAttributes(
		attribute.Bool("license.valid", result.Valid),
		attribute.String("license.status", result.Status),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Validate handles POST /api/license/validate. It shares the check
// verdict shape and is strictly read-only; device_id and meta in the body
// are accepted and ignored.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.validate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/validate"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &api.ValidateRequest{}
	if err := render.Decode(r, data); err != nil {
		span.RecordError(err)
		h.renderDecodeError(w, r, err, "/api/license/validate", reqID)
		return
	}
	if data.LicenseKey == "" {
		span.SetAttributes(attribute.String("error.type", "missing_input"))
		render.Render(w, r, licenseErrors.MapLicenseError(licenseErrors.ErrMissingInput, infrastructure.GetTraceID(ctx)))
		return
	}

	result, err := h.service.Check(ctx, data.LicenseKey)
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, licenseErrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	span.SetAttributes(
		attribute.Bool("license.valid", result.Valid),
		attribute.String("license.status", result.Status),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Activate handles POST /api/license/activate
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/activate"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &api.ActivateRequest{}
	if err := render.Decode(r, data); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_decode"))
		h.logger.ErrorContext(ctx, "failed to decode activation request",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.renderDecodeError(w, r, err, "/api/license/activate", reqID)
		return
	}

	if err := h.validate.Struct(data); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		h.logger.WarnContext(ctx, "activation request validation failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		render.Render(w, r, licenseErrors.MapLicenseError(licenseErrors.ErrMissingInput, infrastructure.GetTraceID(ctx)))
		return
	}

	result, err := h.service.Activate(ctx, data.LicenseKey, data.DeviceID, data.Meta)
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, licenseErrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	span.SetAttributes(
		attribute.Int("license.bound_devices", len(result.BoundDevices)),
		attribute.Int("license.max_devices", result.MaxDevices),
	)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Info handles GET /api/license/info/{licenseKey}
func (h *LicenseHandler) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.info",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/info/{licenseKey}"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	info, err := h.service.Info(ctx, chi.URLParam(r, "licenseKey"))
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, licenseErrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, info)
}

// Ping handles GET /api/license/ping/{licenseKey}
func (h *LicenseHandler) Ping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.ping",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/license/ping/{licenseKey}"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	result, err := h.service.Ping(ctx, chi.URLParam(r, "licenseKey"))
	if err != nil {
		span.RecordError(err)
		render.Render(w, r, licenseErrors.MapLicenseError(err, infrastructure.GetTraceID(ctx)))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

func (h *LicenseHandler) renderDecodeError(w http.ResponseWriter, r *http.Request, err error, route, reqID string) {
	problem := licenseErrors.NewProblemDetails(
		http.StatusBadRequest,
		"/errors/invalid-request",
		"Invalid Request",
		err.Error(),
		route+"#"+reqID,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))
	render.Render(w, r, problem)
}
