package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/neexbeast/geoweather/internal/location"
	"github.com/neexbeast/geoweather/internal/locator"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	location LocationService
	weather  WeatherService
	fixes    FixReceiver
	validity time.Duration
	log      *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
// validity is the default window for the location "valid" flag.
func NewHandlers(loc LocationService, w WeatherService, fixes FixReceiver, validity time.Duration, log *slog.Logger) *Handlers {
	return &Handlers{
		location: loc,
		weather:  w,
		fixes:    fixes,
		validity: validity,
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type locationResponse struct {
	Record location.Record `json:"record"`
	Valid  bool            `json:"valid"`
}

// GetLocation handles GET /api/v1/location.
// An optional max_age query parameter (Go duration) overrides the validity window.
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	maxAge := h.validity
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "max_age must be a positive duration such as 10m")
			return
		}
		maxAge = d
	}

	writeJSON(w, http.StatusOK, locationResponse{
		Record: h.location.Snapshot(),
		Valid:  h.location.IsValid(maxAge),
	})
}

// AcquireLocation handles POST /api/v1/location/acquire.
func (h *Handlers) AcquireLocation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.location.Acquire(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	var accErr *location.AccuracyError
	if errors.As(err, &accErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    accErr.Error(),
			"accuracy": accErr.Accuracy,
		})
		return
	}

	writeError(w, acquisitionStatus(err), err.Error())
}

func acquisitionStatus(err error) int {
	switch {
	case errors.Is(err, location.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, location.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, location.ErrPositionUnavailable), errors.Is(err, location.ErrUnsupported):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type manualRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name"`
}

// SetLocation handles PUT /api/v1/location with user-entered coordinates.
func (h *Handlers) SetLocation(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	rec, err := h.location.SetManual(r.Context(), *req.Latitude, *req.Longitude, req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type fixReport struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Error     string   `json:"error"`
}

// ReportFix handles POST /api/v1/fixes: a device reports a position or a failure code.
func (h *Handlers) ReportFix(w http.ResponseWriter, r *http.Request) {
	var req fixReport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Error != "" {
		kind, ok := locator.ParseErrorCode(req.Error)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown error code")
			return
		}
		if errors.Is(kind, location.ErrPermissionDenied) {
			h.fixes.SetPermission(false)
		} else {
			h.fixes.Fail(kind)
		}
		h.log.Info("device reported fix failure", "code", req.Error)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	if req.Latitude == nil || req.Longitude == nil || req.Accuracy == nil {
		writeError(w, http.StatusBadRequest, "latitude, longitude and accuracy are required")
		return
	}

	fix := location.Fix{Latitude: *req.Latitude, Longitude: *req.Longitude, Accuracy: *req.Accuracy}
	if err := h.fixes.Submit(fix); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Only a valid fix proves the device grants access again.
	h.fixes.SetPermission(true)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// GetWeather handles GET /api/v1/weather.
func (h *Handlers) GetWeather(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.weather.Snapshot())
}

// RefreshWeather handles POST /api/v1/weather/refresh.
// Fetch failures are not errors here; the response is whatever is cached afterwards.
func (h *Handlers) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	current, forecast := h.weather.FetchAll(r.Context())
	if current == nil || forecast == nil {
		h.log.Warn("weather refresh incomplete", "current", current != nil, "forecast", forecast != nil)
	}
	writeJSON(w, http.StatusOK, h.weather.Snapshot())
}

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks store connectivity.
func HealthHandlerFunc(store pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			log.Error("health check: store ping failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "ok"})
	}
}
