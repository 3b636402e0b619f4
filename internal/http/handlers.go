package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"runway/internal/core"
	"runway/internal/log"
)

const handlerTimeout = 30 * time.Second

type forecastResponse struct {
	Success bool                  `json:"success"`
	Weeks   []core.WeeklyForecast `json:"weeks,omitempty"`
	Message string                `json:"message,omitempty"`
}

type categoriesResponse struct {
	Success    bool                   `json:"success"`
	Categories []core.DisplayCategory `json:"categories"`
	Message    string                 `json:"message,omitempty"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type arForecastRequest struct {
	WeekEnding string `json:"week_ending"`
	Amount     string `json:"amount"`
}

type cashBalanceRequest struct {
	AsOf    string `json:"as_of"`
	Balance string `json:"balance"`
}

// handleForecast serves GET /api/forecast.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	req, err := parseForecastRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, forecastResponse{Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	weeks, err := s.svc.Forecast(ctx, req)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "failed to compute forecast"
		if errors.Is(err, core.ErrInvalidWindow) {
			status = http.StatusBadRequest
			msg = err.Error()
		} else {
			log.FromContext(ctx).ErrorContext(ctx, "Forecast computation failed", "error", err)
		}
		writeJSON(w, status, forecastResponse{Message: msg})
		return
	}

	writeJSON(w, http.StatusOK, forecastResponse{Success: true, Weeks: weeks})
}

// handleARForecasts serves POST /api/ar-forecasts.
func (s *Server) handleARForecasts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var body arForecastRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
		return
	}

	week, err := parseDate(body.WeekEnding)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
		return
	}
	cents, err := core.ParseDecimalToCents(body.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: fmt.Sprintf("invalid amount %q", body.Amount)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	entry := core.ARForecast{WeekEnding: week, Amount: core.Money{Cents: cents}}
	if err := s.svc.SaveARForecast(ctx, entry); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to save AR forecast", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "failed to save AR forecast"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "AR forecast saved"})
}

// handleCashBalances serves POST /api/cash-balances.
func (s *Server) handleCashBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var body cashBalanceRequest
	if err := decodeJSON(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
		return
	}

	asOf, err := parseDate(body.AsOf)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: err.Error()})
		return
	}
	cents, err := core.ParseDecimalToCents(body.Balance)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: fmt.Sprintf("invalid balance %q", body.Balance)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	balance := core.CashBalance{AsOf: asOf, Balance: core.Money{Cents: cents}}
	if err := s.svc.SaveCashBalance(ctx, balance); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to save cash balance", "error", err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Message: "failed to save cash balance"})
		return
	}

	writeJSON(w, http.StatusCreated, statusResponse{Success: true, Message: "cash balance saved"})
}

// handleCategories serves GET /api/categories.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
	defer cancel()

	cats, err := s.svc.Categories(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list categories", "error", err)
		writeJSON(w, http.StatusInternalServerError, categoriesResponse{Message: "failed to list categories"})
		return
	}

	writeJSON(w, http.StatusOK, categoriesResponse{Success: true, Categories: cats})
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, statusResponse{Message: "method not allowed"})
}
