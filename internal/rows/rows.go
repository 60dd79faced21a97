// Package rows locates and mutates rows of a spreadsheet tab by business key.
package rows

import (
	"context"
	"fmt"
	"sort"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// HeaderRows is the number of header rows at the top of every tab.
// Data rows start at this index.
const HeaderRows = 1

// NotFound is returned by FindRowIndex when no row matches
const NotFound = -1

// FindRowIndex returns the index of the first row whose keyColumn equals key.
// The header row is scanned like any other; pass rows[HeaderRows:] to skip it.
func FindRowIndex(rows [][]string, key string, keyColumn int) int {
	for i, row := range rows {
		if keyColumn < len(row) && row[keyColumn] == key {
			return i
		}
	}
	return NotFound
}

// Layout describes a tab used as a table
type Layout struct {
	Tab       string
	KeyColumn int
	Width     int
}

// Mutator reads and writes the rows of one tab.
// Row indices are 0-based sheet rows; the header is row 0.
type Mutator struct {
	gw            sheets.Gateway
	spreadsheetID string
	tab           sheets.Tab
	layout        Layout
}

// Open resolves the tab named by layout in the spreadsheet
func Open(ctx context.Context, gw sheets.Gateway, spreadsheetID string, layout Layout) (*Mutator, error) {
	ss, err := gw.GetSpreadsheet(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	tab, ok := ss.TabByTitle(layout.Tab)
	if !ok {
		return nil, fmt.Errorf("tab %q in spreadsheet %s: %w", layout.Tab, spreadsheetID, models.ErrNotFound)
	}
	return &Mutator{gw: gw, spreadsheetID: spreadsheetID, tab: tab, layout: layout}, nil
}

// NewMutator builds a mutator for an already resolved tab
func NewMutator(gw sheets.Gateway, spreadsheetID string, tab sheets.Tab, layout Layout) *Mutator {
	return &Mutator{gw: gw, spreadsheetID: spreadsheetID, tab: tab, layout: layout}
}

// SpreadsheetID returns the spreadsheet the mutator writes to
func (m *Mutator) SpreadsheetID() string {
	return m.spreadsheetID
}

// Rows returns every row of the table including the header
func (m *Mutator) Rows(ctx context.Context) ([][]string, error) {
	rng, err := sheets.Columns(m.layout.Tab, 0, m.layout.Width-1)
	if err != nil {
		return nil, err
	}
	return m.gw.GetValues(ctx, m.spreadsheetID, rng)
}

// DataRows returns the rows below the header
func (m *Mutator) DataRows(ctx context.Context) ([][]string, error) {
	all, err := m.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) <= HeaderRows {
		return nil, nil
	}
	return all[HeaderRows:], nil
}

// Locate finds the data row whose key column equals key. It returns the sheet
// row index and the row's cells.
func (m *Mutator) Locate(ctx context.Context, key string) (int, []string, error) {
	all, err := m.Rows(ctx)
	if err != nil {
		return NotFound, nil, err
	}
	idx := IndexOf(all, key, m.layout.KeyColumn)
	if idx == NotFound {
		return NotFound, nil, fmt.Errorf("%s %q: %w", m.layout.Tab, key, models.ErrNotFound)
	}
	return idx, all[idx], nil
}

// IndexOf is FindRowIndex over the data rows of all. The returned index
// counts the header.
func IndexOf(all [][]string, key string, keyColumn int) int {
	if len(all) <= HeaderRows {
		return NotFound
	}
	i := FindRowIndex(all[HeaderRows:], key, keyColumn)
	if i == NotFound {
		return NotFound
	}
	return i + HeaderRows
}

// UpdateCellRange writes a contiguous run of cells in one row.
// colStart and colEnd are inclusive 0-based columns.
func (m *Mutator) UpdateCellRange(ctx context.Context, row, colStart, colEnd int, values []string) error {
	if colEnd < colStart || len(values) != colEnd-colStart+1 {
		return fmt.Errorf("update columns %d..%d with %d values: %w", colStart, colEnd, len(values), models.ErrInvalidInput)
	}
	rng, err := sheets.CellRange(m.layout.Tab, row, colStart, colEnd)
	if err != nil {
		return err
	}
	return m.gw.UpdateValues(ctx, m.spreadsheetID, rng, [][]string{values})
}

// UpdateRow rewrites a row from column A
func (m *Mutator) UpdateRow(ctx context.Context, row int, values []string) error {
	if row < HeaderRows {
		return fmt.Errorf("row %d is a header row: %w", row, models.ErrInvalidInput)
	}
	return m.UpdateCellRange(ctx, row, 0, len(values)-1, values)
}

// WriteHeader writes the header row
func (m *Mutator) WriteHeader(ctx context.Context, headers []string) error {
	return m.UpdateCellRange(ctx, 0, 0, len(headers)-1, headers)
}

// WriteRows overwrites the table from its first row, header included
func (m *Mutator) WriteRows(ctx context.Context, values [][]string) error {
	rng, err := sheets.Columns(m.layout.Tab, 0, m.layout.Width-1)
	if err != nil {
		return err
	}
	return m.gw.UpdateValues(ctx, m.spreadsheetID, rng, values)
}

// AppendRow appends values after the last row with data
func (m *Mutator) AppendRow(ctx context.Context, values []string) error {
	rng, err := sheets.Columns(m.layout.Tab, 0, m.layout.Width-1)
	if err != nil {
		return err
	}
	return m.gw.AppendValues(ctx, m.spreadsheetID, rng, [][]string{values})
}

// DeleteRows removes the given sheet rows. Rows are deleted one at a time in
// descending order so that each deletion leaves the indices still pending
// untouched.
func (m *Mutator) DeleteRows(ctx context.Context, indices []int) error {
	ordered := descendingUnique(indices)
	for _, idx := range ordered {
		if idx < HeaderRows {
			return fmt.Errorf("row %d is a header row: %w", idx, models.ErrInvalidInput)
		}
	}
	for _, idx := range ordered {
		if err := m.gw.DeleteRow(ctx, m.spreadsheetID, m.tab.ID, idx); err != nil {
			return fmt.Errorf("delete row %d: %w", idx, err)
		}
	}
	return nil
}

// DeleteByKeys deletes every data row whose key is in keys and returns how
// many rows were removed. Unknown keys are ignored.
func (m *Mutator) DeleteByKeys(ctx context.Context, keys []string) (int, error) {
	all, err := m.Rows(ctx)
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	var indices []int
	for i := HeaderRows; i < len(all); i++ {
		row := all[i]
		if m.layout.KeyColumn < len(row) && wanted[row[m.layout.KeyColumn]] {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return 0, nil
	}
	if err := m.DeleteRows(ctx, indices); err != nil {
		return 0, err
	}
	return len(indices), nil
}

func descendingUnique(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
