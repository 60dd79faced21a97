// Package sheets is the boundary to the Google Sheets and Drive APIs.
//
// Everything above this package talks to a Gateway, a narrow per-user view of
// the two APIs. Gateways are request-scoped: a Connector builds one from the
// caller's access token, or from a stored refresh token when a share link is
// resolved on the owner's behalf.
package sheets

import "context"

// Spreadsheet is the identity of a spreadsheet and its tabs
type Spreadsheet struct {
	ID    string
	Title string
	URL   string
	Tabs  []Tab
}

// Tab is one sheet inside a spreadsheet. ID is the numeric sheetId used by
// structural requests such as row deletion.
type Tab struct {
	ID    int64
	Title string
}

// File is a Drive file as returned by a name search
type File struct {
	ID          string
	Name        string
	WebViewLink string
}

// TabByTitle returns the tab with the given title
func (s *Spreadsheet) TabByTitle(title string) (Tab, bool) {
	for _, t := range s.Tabs {
		if t.Title == title {
			return t, true
		}
	}
	return Tab{}, false
}

// Gateway is the set of spreadsheet and drive operations the core consumes.
// Row indices are 0-based sheet rows (row 0 is the header row).
type Gateway interface {
	CreateSpreadsheet(ctx context.Context, title string, tabs ...string) (*Spreadsheet, error)
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (*Spreadsheet, error)

	GetValues(ctx context.Context, spreadsheetID, a1 string) ([][]string, error)
	UpdateValues(ctx context.Context, spreadsheetID, a1 string, values [][]string) error
	AppendValues(ctx context.Context, spreadsheetID, a1 string, values [][]string) error

	DeleteRow(ctx context.Context, spreadsheetID string, tabID int64, row int) error
	BoldRow(ctx context.Context, spreadsheetID string, tabID int64, row, columns int) error

	// FindSpreadsheet returns nil, nil when no non-trashed spreadsheet has the exact name
	FindSpreadsheet(ctx context.Context, name string) (*File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Connector builds user-scoped gateways
type Connector interface {
	ForAccessToken(ctx context.Context, accessToken string) (Gateway, error)
	ForRefreshToken(ctx context.Context, refreshToken string) (Gateway, error)
}
