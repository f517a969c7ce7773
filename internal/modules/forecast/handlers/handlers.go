// Package handlers exposes the forecast engine over HTTP.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/attendance-forecast/internal/modules/forecast"
)

// Config holds the request-level forecast settings.
type Config struct {
	DefaultHorizon int
	MaxHorizon     int
	Timeout        time.Duration
	Seed           uint64 // non-zero makes every request draw the same random sequence
}

// ForecastRequest is the body of POST /forecast.
type ForecastRequest struct {
	AttendanceData []float64 `json:"attendance_data" msgpack:"attendance_data"`
	Periods        *int      `json:"periods,omitempty" msgpack:"periods,omitempty"`
}

// ForecastResponse is returned for both outcomes; Forecast and Method are only
// set on success, Error only on failure.
type ForecastResponse struct {
	Success  bool      `json:"success" msgpack:"success"`
	Forecast []float64 `json:"forecast,omitempty" msgpack:"forecast,omitempty"`
	Method   string    `json:"method,omitempty" msgpack:"method,omitempty"`
	Error    string    `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Handler handles forecast HTTP requests
type Handler struct {
	cfg        Config
	newSource  func() forecast.RandomSource
	engineOpts []forecast.Option // appended after the logger option
	log        zerolog.Logger
}

// NewHandler creates a new forecast handler
func NewHandler(cfg Config, log zerolog.Logger) *Handler {
	if cfg.DefaultHorizon < 1 {
		cfg.DefaultHorizon = forecast.DefaultHorizon
	}
	if cfg.MaxHorizon < cfg.DefaultHorizon {
		cfg.MaxHorizon = cfg.DefaultHorizon
	}

	newSource := forecast.NewRandomSource
	if cfg.Seed != 0 {
		seed := cfg.Seed
		newSource = func() forecast.RandomSource {
			return forecast.NewSeededSource(seed)
		}
	}

	return &Handler{
		cfg:       cfg,
		newSource: newSource,
		log:       log.With().Str("handler", "forecast").Logger(),
	}
}

type forecastOutcome struct {
	result *forecast.Result
	err    error
}

// HandleForecast handles POST /forecast
func (h *Handler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	forecastID := uuid.New().String()
	w.Header().Set("X-Forecast-ID", forecastID)
	log := h.log.With().Str("forecast_id", forecastID).Logger()

	var req ForecastRequest
	if err := decodeRequest(w, r, &req); err != nil {
		log.Debug().Err(err).Msg("Rejected malformed forecast request")
		h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	horizon := h.cfg.DefaultHorizon
	if req.Periods != nil {
		horizon = *req.Periods
	}
	if horizon > h.cfg.MaxHorizon {
		h.writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("periods must not exceed %d, got %d", h.cfg.MaxHorizon, horizon))
		return
	}
	for _, v := range req.AttendanceData {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			h.writeError(w, r, http.StatusBadRequest, "attendance_data must contain finite numbers")
			return
		}
	}

	ctx := r.Context()
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("Request cancelled before forecasting")
		h.writeError(w, r, http.StatusServiceUnavailable, "forecast timed out")
		return
	}

	opts := append([]forecast.Option{forecast.WithLogger(log)}, h.engineOpts...)
	engine := forecast.NewEngine(h.newSource(), opts...)
	done := make(chan forecastOutcome, 1)
	go func() {
		result, err := engine.Forecast(req.AttendanceData, horizon)
		done <- forecastOutcome{result: result, err: err}
	}()

	var outcome forecastOutcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		log.Warn().
			Err(ctx.Err()).
			Int("history", len(req.AttendanceData)).
			Int("horizon", horizon).
			Msg("Forecast did not finish in time")
		h.writeError(w, r, http.StatusServiceUnavailable, "forecast timed out")
		return
	}

	if outcome.err != nil {
		if errors.Is(outcome.err, forecast.ErrInvalidInput) {
			h.writeError(w, r, http.StatusBadRequest, outcome.err.Error())
			return
		}
		log.Error().Err(outcome.err).Msg("Forecast failed")
		h.writeError(w, r, http.StatusInternalServerError, "forecast failed")
		return
	}

	log.Info().
		Str("method", string(outcome.result.Method)).
		Bool("fallback", outcome.result.Fallback).
		Int("history", len(req.AttendanceData)).
		Int("horizon", horizon).
		Dur("duration", time.Since(start)).
		Msg("Forecast generated")

	h.writeResponse(w, r, http.StatusOK, ForecastResponse{
		Success:  true,
		Forecast: outcome.result.Values,
		Method:   string(outcome.result.Method),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeResponse(w, r, status, ForecastResponse{
		Success: false,
		Error:   message,
	})
}
