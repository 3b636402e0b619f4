package amqp

import (
	"encoding/json"
	"time"
)

// Recompute reasons carried on the message so the worker can log what
// triggered an export.
const (
	ReasonARForecast  = "ar_forecast"
	ReasonCashBalance = "cash_balance"
	ReasonSchedule    = "schedule"
)

// ForecastRecomputeMessage asks the worker to rebuild the forecast and
// export a fresh snapshot. It carries only the trigger reason; the
// worker reads everything else from the database.
type ForecastRecomputeMessage struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewForecastRecomputeMessage creates a recompute message for the given
// trigger reason.
func NewForecastRecomputeMessage(reason string) *ForecastRecomputeMessage {
	return &ForecastRecomputeMessage{
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ForecastRecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ForecastRecomputeMessageFromJSON creates a message from JSON bytes.
func ForecastRecomputeMessageFromJSON(data []byte) (*ForecastRecomputeMessage, error) {
	var msg ForecastRecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
