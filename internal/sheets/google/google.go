package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"expenses/internal/log"
	"expenses/internal/overview"
	ports "expenses/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Default sheet names.
const (
	DefaultOverviewSheet = "Overview"
	DefaultYearlySheet   = "Yearly"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	overviewSheet string
	yearlySheet   string
	logger        *log.Logger
}

var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Empty sheet names fall back to the defaults.
func New(ctx context.Context, spreadsheetID, overviewSheet, yearlySheet string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, spreadsheetID, overviewSheet, yearlySheet), nil
}

func newClient(svc *gsheet.Service, spreadsheetID, overviewSheet, yearlySheet string) *Client {
	if overviewSheet = strings.TrimSpace(overviewSheet); overviewSheet == "" {
		overviewSheet = DefaultOverviewSheet
	}
	if yearlySheet = strings.TrimSpace(yearlySheet); yearlySheet == "" {
		yearlySheet = DefaultYearlySheet
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		overviewSheet: overviewSheet,
		yearlySheet:   yearlySheet,
		logger:        log.Default().WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteOverview clears the overview sheet and writes rows from A1.
func (c *Client) WriteOverview(ctx context.Context, rows []overview.Row) (string, error) {
	return c.replace(ctx, c.overviewSheet, overviewValues(rows))
}

// WriteYearly clears the yearly sheet and writes rows from A1.
func (c *Client) WriteYearly(ctx context.Context, rows []overview.YearTag) (string, error) {
	return c.replace(ctx, c.yearlySheet, yearlyValues(rows))
}

func (c *Client) replace(ctx context.Context, sheet string, values [][]any) (string, error) {
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheetRange(sheet, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", sheet, err)
	}

	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(sheet, "A1"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", sheet, err)
	}

	c.logger.InfoContext(ctx, "Exported sheet",
		"sheet", sheet,
		"range", resp.UpdatedRange,
		log.FieldRows, len(values)-1)
	return resp.UpdatedRange, nil
}
