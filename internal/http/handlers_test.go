package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"runway/internal/core"
	"runway/internal/forecast"
)

type fakeService struct {
	weeks       []core.WeeklyForecast
	forecastErr error
	categories  []core.DisplayCategory

	lastReq    forecast.Request
	arEntries  []core.ARForecast
	balances   []core.CashBalance
	arErr      error
	balanceErr error
}

func (f *fakeService) Forecast(_ context.Context, req forecast.Request) ([]core.WeeklyForecast, error) {
	f.lastReq = req
	return f.weeks, f.forecastErr
}

func (f *fakeService) SaveARForecast(_ context.Context, entry core.ARForecast) error {
	if f.arErr != nil {
		return f.arErr
	}
	f.arEntries = append(f.arEntries, entry)
	return nil
}

func (f *fakeService) SaveCashBalance(_ context.Context, b core.CashBalance) error {
	if f.balanceErr != nil {
		return f.balanceErr
	}
	f.balances = append(f.balances, b)
	return nil
}

func (f *fakeService) Categories(context.Context) ([]core.DisplayCategory, error) {
	return f.categories, nil
}

func newTestServer(svc *fakeService) *Server {
	return NewServer(":0", svc)
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleForecast_Default(t *testing.T) {
	svc := &fakeService{weeks: []core.WeeklyForecast{
		{WeekEnding: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC), EndingCashCents: 800000},
	}}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/forecast", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var resp forecastResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || len(resp.Weeks) != 1 {
		t.Errorf("response = %+v, want success with 1 week", resp)
	}
	if svc.lastReq.Weeks != 0 || !svc.lastReq.Start.IsZero() {
		t.Errorf("default request should be empty, got %+v", svc.lastReq)
	}
}

func TestHandleForecast_WeeksParam(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/forecast?weeks=6", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if svc.lastReq.Weeks != 6 {
		t.Errorf("weeks = %d, want 6", svc.lastReq.Weeks)
	}
}

func TestHandleForecast_ExplicitWindow(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/forecast?start=2025-09-01&end=2025-11-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	wantStart := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	if !svc.lastReq.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", svc.lastReq.Start, wantStart)
	}
}

func TestHandleForecast_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"weeks with window", "/api/forecast?weeks=4&start=2025-09-01&end=2025-11-30"},
		{"start without end", "/api/forecast?start=2025-09-01"},
		{"malformed date", "/api/forecast?start=2025-9-1&end=2025-11-30"},
		{"weeks zero", "/api/forecast?weeks=0"},
		{"weeks too large", "/api/forecast?weeks=500"},
		{"weeks not a number", "/api/forecast?weeks=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeService{})
			defer s.Shutdown(context.Background())

			rec := doRequest(t, s, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleForecast_InvalidWindowFromEngine(t *testing.T) {
	svc := &fakeService{forecastErr: fmt.Errorf("derive window: %w", core.ErrInvalidWindow)}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/forecast", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleForecast_EngineFailure(t *testing.T) {
	svc := &fakeService{forecastErr: errors.New("db gone")}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/forecast", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var resp forecastResponse
	decodeBody(t, rec, &resp)
	if strings.Contains(resp.Message, "db gone") {
		t.Error("internal error detail should not leak to clients")
	}
}

func TestHandleForecast_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeService{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodPost, "/api/forecast", `{}`)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleARForecasts(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodPost, "/api/ar-forecasts",
		`{"week_ending":"2025-11-02","amount":"1500.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	if len(svc.arEntries) != 1 {
		t.Fatalf("saved %d entries, want 1", len(svc.arEntries))
	}
	entry := svc.arEntries[0]
	if entry.Amount.Cents != 150000 {
		t.Errorf("amount = %d cents, want 150000", entry.Amount.Cents)
	}
	if !entry.WeekEnding.Equal(time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("week ending = %v", entry.WeekEnding)
	}
}

func TestHandleARForecasts_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"week_ending":`},
		{"unknown field", `{"week_ending":"2025-11-02","amount":"1","extra":true}`},
		{"bad date", `{"week_ending":"11/02/2025","amount":"1500.00"}`},
		{"bad amount", `{"week_ending":"2025-11-02","amount":"lots"}`},
		{"empty amount", `{"week_ending":"2025-11-02","amount":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			s := newTestServer(svc)
			defer s.Shutdown(context.Background())

			rec := doRequest(t, s, http.MethodPost, "/api/ar-forecasts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(svc.arEntries) != 0 {
				t.Error("nothing should be saved on bad input")
			}
		})
	}
}

func TestHandleCashBalances(t *testing.T) {
	svc := &fakeService{}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodPost, "/api/cash-balances",
		`{"as_of":"2025-10-01","balance":"-250.50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}

	if len(svc.balances) != 1 {
		t.Fatalf("saved %d balances, want 1", len(svc.balances))
	}
	if svc.balances[0].Balance.Cents != -25050 {
		t.Errorf("balance = %d cents, want -25050", svc.balances[0].Balance.Cents)
	}
}

func TestHandleCashBalances_ServiceFailure(t *testing.T) {
	svc := &fakeService{balanceErr: errors.New("disk full")}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodPost, "/api/cash-balances",
		`{"as_of":"2025-10-01","balance":"100"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleCategories(t *testing.T) {
	svc := &fakeService{categories: []core.DisplayCategory{
		{Code: "rent", Group: "Operating", Label: "Rent", Direction: core.CashOut, SortOrder: 10},
	}}
	s := newTestServer(svc)
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp categoriesResponse
	decodeBody(t, rec, &resp)
	if !resp.Success || len(resp.Categories) != 1 || resp.Categories[0].Code != "rent" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeService{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "192.0.2.10:4312", "", "192.0.2.10"},
		{"forwarded single", "10.0.0.1:80", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
