package sheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputOption = "USER_ENTERED"

// GoogleStore keeps the lead table in one worksheet of a Google spreadsheet.
type GoogleStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewGoogleStore authenticates with a service-account credentials file and
// creates the worksheet if the spreadsheet does not have it yet.
func NewGoogleStore(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*GoogleStore, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: create sheets service")
	}

	s := NewGoogleStoreWithService(svc, spreadsheetID, sheetName)
	if err := s.EnsureSheet(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGoogleStoreWithService wraps an existing service without contacting it.
func NewGoogleStoreWithService(svc *sheets.Service, spreadsheetID, sheetName string) *GoogleStore {
	return &GoogleStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}
}

// sheetRange is the A1 reference covering the whole worksheet.
func (s *GoogleStore) sheetRange() string {
	return "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'"
}

// EnsureSheet adds the worksheet when the spreadsheet lacks it.
func (s *GoogleStore) EnsureSheet(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(err, "sheet: get spreadsheet %s", s.spreadsheetID)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheetName {
			return nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.sheetName},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return eris.Wrapf(err, "sheet: add worksheet %q", s.sheetName)
	}
	zap.L().Info("sheet: created worksheet", zap.String("sheet", s.sheetName))
	return nil
}

// ReadAll implements Store.
func (s *GoogleStore) ReadAll(ctx context.Context) (*Table, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetRange()).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrapf(err, "sheet: read %q", s.sheetName)
	}
	return FromValues(fromCells(resp.Values)), nil
}

// Append implements Store.
func (s *GoogleStore) Append(ctx context.Context, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheets.ValueRange{Values: toCells(rows)}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetRange(), vr).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(err, "sheet: append %d rows", len(rows))
	}
	return nil
}

// Replace implements Store.
func (s *GoogleStore) Replace(ctx context.Context, values [][]string) error {
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetRange(), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do(); err != nil {
		return eris.Wrapf(err, "sheet: clear %q", s.sheetName)
	}
	if len(values) == 0 {
		return nil
	}

	vr := &sheets.ValueRange{Values: toCells(values)}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetRange()+"!A1", vr).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return eris.Wrapf(err, "sheet: write %d rows", len(values))
	}
	return nil
}

func toCells(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

func fromCells(values [][]any) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		out[i] = cells
	}
	return out
}
