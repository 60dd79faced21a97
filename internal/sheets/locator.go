package sheets

import (
	"regexp"
	"strings"
)

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// ok is false when the URL does not contain a /spreadsheets/d/<ID> segment.
func SpreadsheetID(sheetURL string) (id string, ok bool) {
	m := spreadsheetIDPattern.FindStringSubmatch(strings.TrimSpace(sheetURL))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// URL returns the canonical edit URL for a spreadsheet ID
func URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID + "/edit"
}
