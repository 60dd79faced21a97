package sheets

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// quoteTab wraps a tab title for use in A1 notation
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// Columns returns a whole-column range such as 'Invoices'!A:M.
// Columns are 0-based.
func Columns(tab string, colStart, colEnd int) (string, error) {
	from, err := excelize.ColumnNumberToName(colStart + 1)
	if err != nil {
		return "", fmt.Errorf("column %d: %w", colStart, err)
	}
	to, err := excelize.ColumnNumberToName(colEnd + 1)
	if err != nil {
		return "", fmt.Errorf("column %d: %w", colEnd, err)
	}
	return fmt.Sprintf("%s!%s:%s", quoteTab(tab), from, to), nil
}

// CellRange returns a single-row range such as 'Invoices'!K5:K5.
// row and columns are 0-based.
func CellRange(tab string, row, colStart, colEnd int) (string, error) {
	from, err := excelize.CoordinatesToCellName(colStart+1, row+1)
	if err != nil {
		return "", err
	}
	to, err := excelize.CoordinatesToCellName(colEnd+1, row+1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!%s:%s", quoteTab(tab), from, to), nil
}
