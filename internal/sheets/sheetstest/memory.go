// Package sheetstest provides an in-memory sheets.Gateway for tests.
package sheetstest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// Book is one in-memory spreadsheet
type Book struct {
	ID      string
	Title   string
	Tabs    []*Grid
	Deleted bool
}

// Grid is one tab of a Book
type Grid struct {
	ID       int64
	Title    string
	Rows     [][]string
	BoldRows []int
}

// Memory implements sheets.Gateway and sheets.Connector over in-memory books.
// A single Memory plays the role of one Google account.
type Memory struct {
	mu     sync.Mutex
	books  map[string]*Book
	order  []string
	nextID int

	// Deletions records every DeleteRow call as "spreadsheetID/row" in call order
	Deletions []string

	// Fail makes the named Gateway method return the given error
	Fail map[string]error

	// RefreshErr is returned by ForRefreshToken when set
	RefreshErr error

	// AccessTokens and RefreshTokens record the credentials gateways were built from
	AccessTokens  []string
	RefreshTokens []string
}

// New returns an empty Memory
func New() *Memory {
	return &Memory{books: make(map[string]*Book), Fail: make(map[string]error)}
}

var _ sheets.Gateway = (*Memory)(nil)
var _ sheets.Connector = (*Memory)(nil)

func (m *Memory) ForAccessToken(_ context.Context, accessToken string) (sheets.Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessTokens = append(m.AccessTokens, accessToken)
	return m, nil
}

func (m *Memory) ForRefreshToken(_ context.Context, refreshToken string) (sheets.Gateway, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshTokens = append(m.RefreshTokens, refreshToken)
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	return m, nil
}

// AddBook seeds a spreadsheet and returns it
func (m *Memory) AddBook(title string, tabs map[string][][]string, order ...string) *Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.newBookLocked(title, order...)
	for _, g := range b.Tabs {
		g.Rows = copyRows(tabs[g.Title])
	}
	return b
}

// Book returns the spreadsheet with the given ID
func (m *Memory) Book(id string) *Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id]
}

// Books returns every non-deleted spreadsheet in creation order
func (m *Memory) Books() []*Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Book
	for _, id := range m.order {
		if b := m.books[id]; !b.Deleted {
			out = append(out, b)
		}
	}
	return out
}

// Rows returns a copy of a tab's rows
func (m *Memory) Rows(spreadsheetID, tab string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[spreadsheetID]
	if !ok {
		return nil
	}
	for _, g := range b.Tabs {
		if g.Title == tab {
			return copyRows(g.Rows)
		}
	}
	return nil
}

// URL returns the canonical URL of a book
func (b *Book) URL() string {
	return sheets.URL(b.ID)
}

// Grid returns the tab with the given title
func (b *Book) Grid(title string) *Grid {
	for _, g := range b.Tabs {
		if g.Title == title {
			return g
		}
	}
	return nil
}

func (m *Memory) newBookLocked(title string, tabs ...string) *Book {
	m.nextID++
	b := &Book{ID: fmt.Sprintf("book%04d", m.nextID), Title: title}
	for i, t := range tabs {
		b.Tabs = append(b.Tabs, &Grid{ID: int64(i * 1000), Title: t})
	}
	m.books[b.ID] = b
	m.order = append(m.order, b.ID)
	return b
}

func (m *Memory) CreateSpreadsheet(_ context.Context, title string, tabs ...string) (*sheets.Spreadsheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["CreateSpreadsheet"]; err != nil {
		return nil, err
	}
	if len(tabs) == 0 {
		tabs = []string{"Sheet1"}
	}
	return toSpreadsheet(m.newBookLocked(title, tabs...)), nil
}

func (m *Memory) GetSpreadsheet(_ context.Context, spreadsheetID string) (*sheets.Spreadsheet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["GetSpreadsheet"]; err != nil {
		return nil, err
	}
	b, err := m.bookLocked(spreadsheetID)
	if err != nil {
		return nil, err
	}
	return toSpreadsheet(b), nil
}

func (m *Memory) GetValues(_ context.Context, spreadsheetID, a1 string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["GetValues"]; err != nil {
		return nil, err
	}
	g, rng, err := m.resolveLocked(spreadsheetID, a1)
	if err != nil {
		return nil, err
	}

	last := rng.rowEnd
	if last < 0 || last >= len(g.Rows) {
		last = len(g.Rows) - 1
	}
	var out [][]string
	for r := rng.rowStart; r <= last; r++ {
		row := g.Rows[r]
		var cells []string
		for c := rng.colStart; c <= rng.colEnd && c < len(row); c++ {
			cells = append(cells, row[c])
		}
		out = append(out, trimRight(cells))
	}
	// the API omits trailing empty rows
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *Memory) UpdateValues(_ context.Context, spreadsheetID, a1 string, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["UpdateValues"]; err != nil {
		return err
	}
	g, rng, err := m.resolveLocked(spreadsheetID, a1)
	if err != nil {
		return err
	}
	writeAt(g, rng.rowStart, rng.colStart, values)
	return nil
}

func (m *Memory) AppendValues(_ context.Context, spreadsheetID, a1 string, values [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["AppendValues"]; err != nil {
		return err
	}
	g, rng, err := m.resolveLocked(spreadsheetID, a1)
	if err != nil {
		return err
	}

	next := 0
	for r := len(g.Rows) - 1; r >= 0; r-- {
		if len(trimRight(g.Rows[r])) > 0 {
			next = r + 1
			break
		}
	}
	writeAt(g, next, rng.colStart, values)
	return nil
}

func (m *Memory) DeleteRow(_ context.Context, spreadsheetID string, tabID int64, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["DeleteRow"]; err != nil {
		return err
	}
	b, err := m.bookLocked(spreadsheetID)
	if err != nil {
		return err
	}
	for _, g := range b.Tabs {
		if g.ID != tabID {
			continue
		}
		if row < 0 || row >= len(g.Rows) {
			return fmt.Errorf("delete row %d: out of range", row)
		}
		g.Rows = append(g.Rows[:row], g.Rows[row+1:]...)
		m.Deletions = append(m.Deletions, fmt.Sprintf("%s/%d", spreadsheetID, row))
		return nil
	}
	return fmt.Errorf("tab %d: %w", tabID, models.ErrNotFound)
}

func (m *Memory) BoldRow(_ context.Context, spreadsheetID string, tabID int64, row, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["BoldRow"]; err != nil {
		return err
	}
	b, err := m.bookLocked(spreadsheetID)
	if err != nil {
		return err
	}
	for _, g := range b.Tabs {
		if g.ID == tabID {
			g.BoldRows = append(g.BoldRows, row)
			return nil
		}
	}
	return fmt.Errorf("tab %d: %w", tabID, models.ErrNotFound)
}

func (m *Memory) FindSpreadsheet(_ context.Context, name string) (*sheets.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["FindSpreadsheet"]; err != nil {
		return nil, err
	}
	for _, id := range m.order {
		b := m.books[id]
		if !b.Deleted && b.Title == name {
			return &sheets.File{ID: b.ID, Name: b.Title, WebViewLink: b.URL()}, nil
		}
	}
	return nil, nil
}

func (m *Memory) DeleteFile(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail["DeleteFile"]; err != nil {
		return err
	}
	b, err := m.bookLocked(fileID)
	if err != nil {
		return err
	}
	b.Deleted = true
	return nil
}

func (m *Memory) bookLocked(id string) (*Book, error) {
	b, ok := m.books[id]
	if !ok || b.Deleted {
		return nil, fmt.Errorf("spreadsheet %s: %w", id, models.ErrNotFound)
	}
	return b, nil
}

type a1Range struct {
	rowStart, rowEnd int // rowEnd -1 means open-ended
	colStart, colEnd int
}

func (m *Memory) resolveLocked(spreadsheetID, a1 string) (*Grid, a1Range, error) {
	b, err := m.bookLocked(spreadsheetID)
	if err != nil {
		return nil, a1Range{}, err
	}

	idx := strings.LastIndex(a1, "!")
	if idx < 0 {
		return nil, a1Range{}, fmt.Errorf("range %q has no tab", a1)
	}
	title := strings.ReplaceAll(strings.Trim(a1[:idx], "'"), "''", "'")
	g := b.Grid(title)
	if g == nil {
		return nil, a1Range{}, fmt.Errorf("tab %q: %w", title, models.ErrNotFound)
	}

	from, to, _ := strings.Cut(a1[idx+1:], ":")
	if to == "" {
		to = from
	}
	c0, r0, err := parseRef(from)
	if err != nil {
		return nil, a1Range{}, err
	}
	c1, r1, err := parseRef(to)
	if err != nil {
		return nil, a1Range{}, err
	}

	rng := a1Range{rowStart: 0, rowEnd: -1, colStart: c0, colEnd: c1}
	if r0 >= 0 {
		rng.rowStart = r0
	}
	if r1 >= 0 {
		rng.rowEnd = r1
	}
	return g, rng, nil
}

// parseRef parses "K5" or "K" into 0-based column and row; row is -1 when absent
func parseRef(ref string) (col, row int, err error) {
	if strings.IndexAny(ref, "0123456789") < 0 {
		n, err := excelize.ColumnNameToNumber(ref)
		if err != nil {
			return 0, 0, err
		}
		return n - 1, -1, nil
	}
	c, r, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0, err
	}
	return c - 1, r - 1, nil
}

func writeAt(g *Grid, row, col int, values [][]string) {
	for i, vals := range values {
		r := row + i
		for len(g.Rows) <= r {
			g.Rows = append(g.Rows, nil)
		}
		for j, v := range vals {
			c := col + j
			for len(g.Rows[r]) <= c {
				g.Rows[r] = append(g.Rows[r], "")
			}
			g.Rows[r][c] = v
		}
	}
}

func trimRight(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	out := make([]string, end)
	copy(out, cells[:end])
	return out
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func toSpreadsheet(b *Book) *sheets.Spreadsheet {
	s := &sheets.Spreadsheet{ID: b.ID, Title: b.Title, URL: b.URL()}
	for _, g := range b.Tabs {
		s.Tabs = append(s.Tabs, sheets.Tab{ID: g.ID, Title: g.Title})
	}
	return s
}
