// Package google reads feed rows through the Sheets API instead of the
// public CSV export, for sheets that are not published to the web. It
// plugs into the importer as an alternative RowSource.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	readRange     string
}

// NewFromEnv builds a Sheets-API source from the environment.
// Required: GOOGLE_SPREADSHEET_ID. Optional: GOOGLE_SHEET_NAME (defaults
// to the first sheet), and service-account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE; without
// either, Application Default Credentials apply.
func NewFromEnv(ctx context.Context) (*Source, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var opts []goption.ClientOption
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); raw != "" {
		opts = append(opts, goption.WithCredentialsJSON([]byte(raw)))
	} else if file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")); file != "" {
		opts = append(opts, goption.WithCredentialsFile(file))
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	readRange := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	return &Source{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

// Rows fetches the sheet's value matrix and flattens it to strings, the
// shape the importer's column detection expects.
func (s *Source) Rows(ctx context.Context) ([][]string, error) {
	readRange := s.readRange
	if readRange == "" {
		readRange = "A:Z"
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet values: %w", err)
	}
	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			row[i] = fmt.Sprintf("%v", v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
