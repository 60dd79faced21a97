// Package registry keeps the per-user Master Registry: a well-known
// spreadsheet whose rows index every spreadsheet created through the app.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/rows"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

const (
	// TrackerName is the exact Drive title of the registry spreadsheet
	TrackerName = "Google Sheets Tracker"
	// TabName is the registry tab
	TabName = "My Sheets"

	// SheetPrefix and BusinessPrefix prefix generated registry IDs
	SheetPrefix    = "SHEET"
	BusinessPrefix = "BUSINESS"

	defaultFlag = "TRUE"
)

const (
	colSheetID = iota
	colName
	colCreatedDate
	colDescription
	colSheetURL
	colDefault
)

// Headers is the registry header row. The default flag column has no header.
var Headers = []string{"Sheet ID", "Name", "Created Date", "Description", "Sheet URL"}

var layout = rows.Layout{Tab: TabName, KeyColumn: colSheetURL, Width: colDefault + 1}

// Registry is a request-scoped view of one user's registry
type Registry struct {
	gw  sheets.Gateway
	log *slog.Logger

	tracker *models.Tracker
	table   *rows.Mutator
}

// New creates a registry bound to a user gateway
func New(gw sheets.Gateway, logger *slog.Logger) *Registry {
	return &Registry{gw: gw, log: logger.With("component", "registry")}
}

// NewID generates a registry ID such as SHEET-042917
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%06d", prefix, rand.IntN(1_000_000))
}

// Find returns the user's registry spreadsheet. It never creates one and
// fails with ErrNotFound when the user has none.
func (r *Registry) Find(ctx context.Context) (*models.Tracker, error) {
	if r.tracker != nil {
		return r.tracker, nil
	}

	found, err := r.gw.FindSpreadsheet(ctx, TrackerName)
	if err != nil {
		return nil, fmt.Errorf("find registry: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("registry: %w", models.ErrNotFound)
	}
	r.tracker = &models.Tracker{ID: found.ID, Name: found.Name, WebViewLink: found.WebViewLink}
	return r.tracker, nil
}

// GetOrCreate returns the user's registry spreadsheet, creating it when no
// spreadsheet with the tracker name exists. Two concurrent first calls may
// both create one; later calls pick whichever Drive returns first.
func (r *Registry) GetOrCreate(ctx context.Context) (*models.Tracker, error) {
	tracker, err := r.Find(ctx)
	if err == nil || !errors.Is(err, models.ErrNotFound) {
		return tracker, err
	}

	created, err := r.gw.CreateSpreadsheet(ctx, TrackerName, TabName)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	tab, ok := created.TabByTitle(TabName)
	if !ok {
		return nil, fmt.Errorf("registry tab %q: %w", TabName, models.ErrUpstream)
	}

	table := rows.NewMutator(r.gw, created.ID, tab, layout)
	if err := table.WriteHeader(ctx, Headers); err != nil {
		return nil, fmt.Errorf("write registry header: %w", err)
	}
	if err := r.gw.BoldRow(ctx, created.ID, tab.ID, 0, len(Headers)); err != nil {
		r.log.WarnContext(ctx, "failed to format registry header", "spreadsheet_id", created.ID, "error", err)
	}

	r.log.InfoContext(ctx, "created registry", "spreadsheet_id", created.ID)
	r.table = table
	r.tracker = &models.Tracker{ID: created.ID, Name: created.Title, WebViewLink: created.URL}
	return r.tracker, nil
}

func (r *Registry) open(ctx context.Context) (*rows.Mutator, error) {
	if r.table != nil {
		return r.table, nil
	}
	if _, err := r.GetOrCreate(ctx); err != nil {
		return nil, err
	}
	return r.openTable(ctx)
}

// openExisting is open without the create step
func (r *Registry) openExisting(ctx context.Context) (*rows.Mutator, error) {
	if r.table != nil {
		return r.table, nil
	}
	if _, err := r.Find(ctx); err != nil {
		return nil, err
	}
	return r.openTable(ctx)
}

func (r *Registry) openTable(ctx context.Context) (*rows.Mutator, error) {
	table, err := rows.Open(ctx, r.gw, r.tracker.ID, layout)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	r.table = table
	return table, nil
}

// List returns every tracked sheet in registry order
func (r *Registry) List(ctx context.Context) ([]models.TrackedSheet, error) {
	table, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	return entries(ctx, table)
}

func entries(ctx context.Context, table *rows.Mutator) ([]models.TrackedSheet, error) {
	data, err := table.DataRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	out := make([]models.TrackedSheet, 0, len(data))
	for _, row := range data {
		if len(row) == 0 {
			continue
		}
		out = append(out, toEntry(row))
	}
	return out, nil
}

// Append adds an entry at the end of the registry. Duplicate URLs are not checked.
func (r *Registry) Append(ctx context.Context, entry models.TrackedSheet) error {
	table, err := r.open(ctx)
	if err != nil {
		return err
	}
	if entry.CreatedDate == "" {
		entry.CreatedDate = time.Now().UTC().Format(time.DateOnly)
	}
	if err := table.AppendRow(ctx, toRow(entry)[:len(Headers)]); err != nil {
		return fmt.Errorf("append registry entry: %w", err)
	}
	return nil
}

// MarkDefault makes the entry with sheetURL the only default. Previous
// defaults are cleared before the target row is rewritten.
func (r *Registry) MarkDefault(ctx context.Context, sheetURL string) error {
	table, err := r.open(ctx)
	if err != nil {
		return err
	}
	all, err := table.Rows(ctx)
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	target := rows.IndexOf(all, sheetURL, colSheetURL)
	if target == rows.NotFound {
		return fmt.Errorf("registry entry %q: %w", sheetURL, models.ErrNotFound)
	}

	for i := rows.HeaderRows; i < len(all); i++ {
		if i == target || !isDefault(all[i]) {
			continue
		}
		if err := table.UpdateCellRange(ctx, i, colDefault, colDefault, []string{""}); err != nil {
			return fmt.Errorf("clear default on row %d: %w", i, err)
		}
	}

	entry := toEntry(all[target])
	entry.IsDefault = true
	if err := table.UpdateRow(ctx, target, toRow(entry)); err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	return nil
}

// Delete removes the entry with sheetURL
func (r *Registry) Delete(ctx context.Context, sheetURL string) error {
	table, err := r.open(ctx)
	if err != nil {
		return err
	}
	target, _, err := table.Locate(ctx, sheetURL)
	if err != nil {
		return err
	}
	return table.DeleteRows(ctx, []int{target})
}

// Default returns the default entry. It only reads: a user without a
// registry gets ErrNotFound.
func (r *Registry) Default(ctx context.Context) (*models.TrackedSheet, error) {
	table, err := r.openExisting(ctx)
	if err != nil {
		return nil, err
	}
	list, err := entries(ctx, table)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].IsDefault {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("default sheet: %w", models.ErrNotFound)
}

// FindByPrefix returns the most recently appended entry whose ID has the prefix
func (r *Registry) FindByPrefix(ctx context.Context, prefix string) (*models.TrackedSheet, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if strings.HasPrefix(list[i].SheetID, prefix+"-") {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("registry entry with prefix %s: %w", prefix, models.ErrNotFound)
}

func isDefault(row []string) bool {
	return colDefault < len(row) && strings.EqualFold(row[colDefault], defaultFlag)
}

func toEntry(row []string) models.TrackedSheet {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return models.TrackedSheet{
		SheetID:     get(colSheetID),
		Name:        get(colName),
		CreatedDate: get(colCreatedDate),
		Description: get(colDescription),
		SheetURL:    get(colSheetURL),
		IsDefault:   isDefault(row),
	}
}

func toRow(e models.TrackedSheet) []string {
	flag := ""
	if e.IsDefault {
		flag = defaultFlag
	}
	return []string{e.SheetID, e.Name, e.CreatedDate, e.Description, e.SheetURL, flag}
}
