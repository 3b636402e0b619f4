// Package google exports forecast snapshots to a Google Sheets
// spreadsheet using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"runway/internal/core"
	"runway/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	forecastSheet string
}

var _ export.ForecastExporter = (*Client)(nil)

// NewFromEnv creates a Sheets exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Optional: GOOGLE_FORECAST_SHEET_NAME (default "Forecast") and
// credentials via GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheet := strings.TrimSpace(os.Getenv("GOOGLE_FORECAST_SHEET_NAME"))
	if sheet == "" {
		sheet = "Forecast"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		forecastSheet: sheet,
	}, nil
}

// newSheetsService initializes a Sheets service from service account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Export replaces the forecast sheet's contents with the snapshot. The
// whole sheet is rewritten so removed weeks do not linger from a
// previous export.
func (c *Client) Export(ctx context.Context, weeks []core.WeeklyForecast) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rows := snapshotRows(weeks)

	clearRange := fmt.Sprintf("%s!A:G", c.forecastSheet)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", c.forecastSheet, err)
	}

	writeRange := fmt.Sprintf("%s!A1", c.forecastSheet)
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write sheet %s: %w", c.forecastSheet, err)
	}

	ref := fmt.Sprintf("sheets:%s!A1:G%d", c.forecastSheet, len(rows))
	slog.InfoContext(ctx, "Exported forecast snapshot",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.forecastSheet,
		"weeks", len(weeks))

	return ref, nil
}

// snapshotRows flattens the forecast into spreadsheet rows: one summary
// row per week followed by an indented row per category line.
func snapshotRows(weeks []core.WeeklyForecast) [][]any {
	rows := [][]any{{
		"Week Ending", "Category", "Beginning Cash", "Inflows", "Outflows", "Net Cash Flow", "Ending Cash",
	}}

	for _, w := range weeks {
		rows = append(rows, []any{
			w.WeekEnding.Format("2006-01-02"),
			"",
			dollars(w.BeginningCashCents),
			dollars(w.TotalInflowsCents),
			dollars(w.TotalOutflowsCents),
			dollars(w.NetCashFlowCents),
			dollars(w.EndingCashCents),
		})
		for _, cat := range w.Categories {
			label := cat.Label
			if cat.SubLabel != "" {
				label = fmt.Sprintf("%s / %s", cat.Label, cat.SubLabel)
			}
			rows = append(rows, []any{
				"", label, "", "", "", dollars(cat.AmountCents), "",
			})
		}
	}

	return rows
}

func dollars(cents int64) float64 {
	return float64(cents) / 100.0
}
