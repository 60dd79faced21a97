package rows

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// Records is a Mutator bound to a record schema
type Records struct {
	*Mutator
	Schema record.Schema
}

// OpenRecords opens the tab of the given schema
func OpenRecords(ctx context.Context, gw sheets.Gateway, spreadsheetID string, schema record.Schema) (*Records, error) {
	m, err := Open(ctx, gw, spreadsheetID, LayoutFor(schema))
	if err != nil {
		return nil, err
	}
	return &Records{Mutator: m, Schema: schema}, nil
}

// LayoutFor returns the table layout of a record schema
func LayoutFor(schema record.Schema) Layout {
	return Layout{Tab: schema.Tab, KeyColumn: record.ColID, Width: schema.Width()}
}

// List returns every record of the tab in sheet order. Rows with an
// unreadable items cell are still returned; their errors come back in warns.
func (r *Records) List(ctx context.Context) (recs []models.Record, warns []error, err error) {
	data, err := r.DataRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	recs = make([]models.Record, 0, len(data))
	for _, row := range data {
		if len(row) == 0 || row[record.ColID] == "" {
			continue
		}
		rec, warn := r.Schema.FromRow(row)
		if warn != nil {
			warns = append(warns, warn)
		}
		recs = append(recs, rec)
	}
	return recs, warns, nil
}

// Get returns the record with the given ID
func (r *Records) Get(ctx context.Context, id string) (models.Record, int, error) {
	idx, row, err := r.Locate(ctx, id)
	if err != nil {
		return models.Record{}, NotFound, err
	}
	rec, _ := r.Schema.FromRow(row)
	return rec, idx, nil
}

// Append adds a record at the end of the tab
func (r *Records) Append(ctx context.Context, rec models.Record) error {
	return r.AppendRow(ctx, r.Schema.ToRow(rec))
}

// Modify reads the record with id, applies fn and writes the whole row
// back. Nothing is written when fn fails.
func (r *Records) Modify(ctx context.Context, id string, fn func(rec *models.Record) error) (models.Record, error) {
	idx, row, err := r.Locate(ctx, id)
	if err != nil {
		return models.Record{}, err
	}
	rec, _ := r.Schema.FromRow(row)
	if err := fn(&rec); err != nil {
		return models.Record{}, err
	}
	if err := r.UpdateRow(ctx, idx, r.Schema.ToRow(rec)); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// SetStatus updates the status cell of one record
func (r *Records) SetStatus(ctx context.Context, id, status string) error {
	if !r.Schema.ValidStatus(status) {
		return fmt.Errorf("status %q: %w", status, models.ErrInvalidInput)
	}
	idx, _, err := r.Locate(ctx, id)
	if err != nil {
		return err
	}
	return r.UpdateCellRange(ctx, idx, record.ColStatus, record.ColStatus, []string{status})
}

// RecordPartialPayment adds amount to the invoice's paid amount and derives
// its status: Paid once the cumulative payment covers the total, Partially
// Paid otherwise. The whole row is written back.
func (r *Records) RecordPartialPayment(ctx context.Context, invoiceID string, amount decimal.Decimal, date string) (models.Record, error) {
	if r.Schema.Kind != models.KindInvoice {
		return models.Record{}, fmt.Errorf("payments on %s: %w", r.Schema.Kind, models.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return models.Record{}, fmt.Errorf("payment %s must be positive: %w", amount, models.ErrInvalidInput)
	}

	idx, row, err := r.Locate(ctx, invoiceID)
	if err != nil {
		return models.Record{}, err
	}

	total, err := record.AmountOf(row)
	if err != nil {
		return models.Record{}, fmt.Errorf("invoice %s total: %w", invoiceID, err)
	}

	rec, _ := r.Schema.FromRow(row)
	paid := decimal.Zero
	if rec.PaidAmount != nil {
		paid = *rec.PaidAmount
	}
	if paid.Add(amount).GreaterThan(total) {
		return models.Record{}, fmt.Errorf("payment %s exceeds outstanding %s: %w", amount, total.Sub(paid), models.ErrInvalidInput)
	}
	paid = paid.Add(amount)

	rec.Amount = total
	rec.PaidAmount = &paid
	rec.LastPaymentDate = date
	if paid.GreaterThanOrEqual(total) {
		rec.Status = models.StatusPaid
	} else {
		rec.Status = models.StatusPartiallyPaid
	}

	if err := r.UpdateRow(ctx, idx, r.Schema.ToRow(rec)); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}
