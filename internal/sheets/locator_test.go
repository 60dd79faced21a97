package sheets_test

import (
	"testing"

	"github.com/rongwang/invoice-sheets/internal/sheets"
	"github.com/stretchr/testify/assert"
)

func TestSpreadsheetID(t *testing.T) {
	const id = "1AbC-d_EfGh1234567890"

	valid := []string{
		"https://docs.google.com/spreadsheets/d/" + id,
		"https://docs.google.com/spreadsheets/d/" + id + "/",
		"https://docs.google.com/spreadsheets/d/" + id + "/edit",
		"https://docs.google.com/spreadsheets/d/" + id + "/edit#gid=0",
		"https://docs.google.com/spreadsheets/d/" + id + "/edit?usp=sharing",
		"  https://docs.google.com/spreadsheets/d/" + id + "/htmlview  ",
	}
	for _, u := range valid {
		got, ok := sheets.SpreadsheetID(u)
		assert.True(t, ok, u)
		assert.Equal(t, id, got, u)
	}

	invalid := []string{
		"",
		"not a url",
		"https://docs.google.com/document/d/" + id + "/edit",
		"https://docs.google.com/spreadsheets/" + id,
		"https://docs.google.com/spreadsheets/d/",
	}
	for _, u := range invalid {
		got, ok := sheets.SpreadsheetID(u)
		assert.False(t, ok, u)
		assert.Empty(t, got, u)
	}
}

func TestURLRoundTrip(t *testing.T) {
	got, ok := sheets.SpreadsheetID(sheets.URL("abc123"))
	assert.True(t, ok)
	assert.Equal(t, "abc123", got)
}
