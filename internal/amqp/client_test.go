package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped
		{10, 30 * time.Second}, // capped
		{40, 30 * time.Second}, // shift overflow also capped
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"connection closed", errors.New("connection closed"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"handler failure", errors.New("export snapshot: boom"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewForecastRecomputeMessage(t *testing.T) {
	msg := NewForecastRecomputeMessage(ReasonARForecast)

	if msg.Reason != ReasonARForecast {
		t.Errorf("Reason = %q, want %q", msg.Reason, ReasonARForecast)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestForecastRecomputeMessage_JSON(t *testing.T) {
	msg := &ForecastRecomputeMessage{
		Reason:    ReasonCashBalance,
		Timestamp: time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := ForecastRecomputeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("ForecastRecomputeMessageFromJSON() error = %v", err)
	}

	if parsed.Reason != msg.Reason {
		t.Errorf("Reason = %q, want %q", parsed.Reason, msg.Reason)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestForecastRecomputeMessage_InvalidJSON(t *testing.T) {
	if _, err := ForecastRecomputeMessageFromJSON([]byte(`{"reason": 42`)); err == nil {
		t.Error("ForecastRecomputeMessageFromJSON() should fail with invalid JSON")
	}
}
