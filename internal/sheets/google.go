package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/rongwang/invoice-sheets/internal/models"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleConnector builds gateways backed by the real Google APIs
type GoogleConnector struct {
	oauth *oauth2.Config
}

// NewGoogleConnector creates a connector. The OAuth config is needed to
// refresh stored credentials.
func NewGoogleConnector(oauth *oauth2.Config) *GoogleConnector {
	return &GoogleConnector{oauth: oauth}
}

// ForAccessToken wraps an access token presented by the caller
func (c *GoogleConnector) ForAccessToken(ctx context.Context, accessToken string) (Gateway, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return newGoogleGateway(ctx, ts)
}

// ForRefreshToken mints a fresh access token from a stored refresh token.
// A revoked or expired refresh token fails here rather than on the first API call.
func (c *GoogleConnector) ForRefreshToken(ctx context.Context, refreshToken string) (Gateway, error) {
	ts := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("%w: refresh credential: %v", models.ErrUpstream, err)
	}
	return newGoogleGateway(ctx, ts)
}

type googleGateway struct {
	sheets *sheetsapi.Service
	drive  *drive.Service
}

func newGoogleGateway(ctx context.Context, ts oauth2.TokenSource) (Gateway, error) {
	sheetsSrv, err := sheetsapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	driveSrv, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	return &googleGateway{sheets: sheetsSrv, drive: driveSrv}, nil
}

func (g *googleGateway) CreateSpreadsheet(ctx context.Context, title string, tabs ...string) (*Spreadsheet, error) {
	spreadsheet := &sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
	}
	for _, tab := range tabs {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheetsapi.Sheet{
			Properties: &sheetsapi.SheetProperties{Title: tab},
		})
	}

	created, err := g.sheets.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, "create spreadsheet "+title)
	}
	return toSpreadsheet(created), nil
}

func (g *googleGateway) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error) {
	got, err := g.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId", "spreadsheetUrl", "properties.title", "sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(err, "get spreadsheet "+spreadsheetID)
	}
	return toSpreadsheet(got), nil
}

func (g *googleGateway) GetValues(ctx context.Context, spreadsheetID, a1 string) ([][]string, error) {
	resp, err := g.sheets.Spreadsheets.Values.Get(spreadsheetID, a1).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err, "get values "+a1)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (g *googleGateway) UpdateValues(ctx context.Context, spreadsheetID, a1 string, values [][]string) error {
	_, err := g.sheets.Spreadsheets.Values.Update(spreadsheetID, a1, toValueRange(values)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return mapError(err, "update values "+a1)
	}
	return nil
}

func (g *googleGateway) AppendValues(ctx context.Context, spreadsheetID, a1 string, values [][]string) error {
	_, err := g.sheets.Spreadsheets.Values.Append(spreadsheetID, a1, toValueRange(values)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return mapError(err, "append values "+a1)
	}
	return nil
}

func (g *googleGateway) DeleteRow(ctx context.Context, spreadsheetID string, tabID int64, row int) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: &sheetsapi.DimensionRange{
						SheetId:         tabID,
						Dimension:       "ROWS",
						StartIndex:      int64(row),
						EndIndex:        int64(row + 1),
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
		},
	}

	if _, err := g.sheets.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return mapError(err, fmt.Sprintf("delete row %d", row))
	}
	return nil
}

func (g *googleGateway) BoldRow(ctx context.Context, spreadsheetID string, tabID int64, row, columns int) error {
	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				RepeatCell: &sheetsapi.RepeatCellRequest{
					Range: &sheetsapi.GridRange{
						SheetId:          tabID,
						StartRowIndex:    int64(row),
						EndRowIndex:      int64(row + 1),
						StartColumnIndex: 0,
						EndColumnIndex:   int64(columns),
						ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
					},
					Cell: &sheetsapi.CellData{
						UserEnteredFormat: &sheetsapi.CellFormat{
							TextFormat: &sheetsapi.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
		},
	}

	if _, err := g.sheets.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return mapError(err, "format header")
	}
	return nil
}

func (g *googleGateway) FindSpreadsheet(ctx context.Context, name string) (*File, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), spreadsheetMimeType)

	list, err := g.drive.Files.List().
		Q(q).
		Fields("files(id, name, webViewLink)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(err, "search drive for "+name)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}

	f := list.Files[0]
	return &File{ID: f.Id, Name: f.Name, WebViewLink: f.WebViewLink}, nil
}

func (g *googleGateway) DeleteFile(ctx context.Context, fileID string) error {
	if err := g.drive.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return mapError(err, "delete file "+fileID)
	}
	return nil
}

func toSpreadsheet(s *sheetsapi.Spreadsheet) *Spreadsheet {
	out := &Spreadsheet{
		ID:  s.SpreadsheetId,
		URL: s.SpreadsheetUrl,
	}
	if s.Properties != nil {
		out.Title = s.Properties.Title
	}
	if out.URL == "" {
		out.URL = URL(s.SpreadsheetId)
	}
	for _, sh := range s.Sheets {
		if sh.Properties == nil {
			continue
		}
		out.Tabs = append(out.Tabs, Tab{ID: sh.Properties.SheetId, Title: sh.Properties.Title})
	}
	return out
}

func toValueRange(values [][]string) *sheetsapi.ValueRange {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		rows[i] = cells
	}
	return &sheetsapi.ValueRange{Values: rows}
}

// mapError converts Google API errors into model errors. A 404 means the
// spreadsheet or file does not exist and a 401 means the caller's access
// token was rejected. Everything else is an upstream failure.
func mapError(err error, op string) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, models.ErrUpstream, err)
}
