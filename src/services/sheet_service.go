package services

import (
	"context"
	"fmt"
	"os"

	"github.com/username/carteraclaro/backend/src/logger"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetServiceImpl implements SheetService on top of the Google Sheets API
// with a service account credential.
type sheetServiceImpl struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewSheetService reads the service account JSON key and builds an
// authenticated Sheets client scoped to the configured spreadsheet.
func NewSheetService(ctx context.Context, credentialsFile, spreadsheetID string) (SheetService, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials file: %v", ErrSheetAccess, err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing credentials: %v", ErrSheetAccess, err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating sheets client: %v", ErrSheetAccess, err)
	}

	return &sheetServiceImpl{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (s *sheetServiceImpl) ReadRows(ctx context.Context, tab string) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: reading tab %q: %v", ErrSheetAccess, tab, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, 0, len(values))
		for _, cell := range values {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *sheetServiceImpl) AppendRows(ctx context.Context, tab string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		cells := make([]interface{}, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cell)
		}
		values = append(values, cells)
	}

	// USER_ENTERED lets the open-days formula evaluate instead of landing
	// as a literal string.
	_, err := s.srv.Spreadsheets.Values.
		Append(s.spreadsheetID, tab, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: appending to tab %q: %v", ErrSheetAccess, tab, err)
	}

	logger.L.Info("Appended rows to sheet", "tab", tab, "rows", len(rows))
	return nil
}
