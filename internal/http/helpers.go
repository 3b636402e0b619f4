package http

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"runway/internal/forecast"
)

const dateLayout = "2006-01-02"

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// parseForecastRequest builds the engine request from query parameters.
// Accepted forms: no parameters (default window), weeks=N, or
// start=YYYY-MM-DD&end=YYYY-MM-DD.
func parseForecastRequest(r *http.Request) (forecast.Request, error) {
	q := r.URL.Query()
	startStr, endStr := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	weeksStr := strings.TrimSpace(q.Get("weeks"))

	if startStr != "" || endStr != "" {
		if weeksStr != "" {
			return forecast.Request{}, fmt.Errorf("weeks cannot be combined with start/end")
		}
		if startStr == "" || endStr == "" {
			return forecast.Request{}, fmt.Errorf("both start and end are required")
		}
		start, err := parseDate(startStr)
		if err != nil {
			return forecast.Request{}, err
		}
		end, err := parseDate(endStr)
		if err != nil {
			return forecast.Request{}, err
		}
		return forecast.Request{Start: start, End: end}, nil
	}

	var req forecast.Request
	if weeksStr != "" {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil || weeks < 1 || weeks > 104 {
			return forecast.Request{}, fmt.Errorf("invalid weeks %q: must be an integer between 1 and 104", weeksStr)
		}
		req.Weeks = weeks
	}
	return req, nil
}

// clientIP extracts the caller's IP, preferring the first entry of
// X-Forwarded-For when a proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
