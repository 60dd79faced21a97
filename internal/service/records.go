package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/rows"
)

var templates = map[string]bool{
	models.TemplateModern:  true,
	models.TemplateClassic: true,
	models.TemplateMinimal: true,
	models.TemplateElegant: true,
}

func (s *DefaultService) openRecords(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string) (*rows.Records, error) {
	schema, err := record.ForKind(kind)
	if err != nil {
		return nil, err
	}
	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}
	id, err := s.spreadsheetFor(ctx, caller, gw, sheetURL)
	if err != nil {
		return nil, err
	}
	return rows.OpenRecords(ctx, gw, id, schema)
}

// ListRecords returns every record of the tab. Rows with malformed items are
// returned without items and reported in Warnings.
func (s *DefaultService) ListRecords(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string) (*models.RecordsResponse, error) {
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return nil, err
	}

	list, warns, err := recs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", recs.Schema.Tab, err)
	}

	resp := &models.RecordsResponse{Status: "success", Records: list}
	for _, w := range warns {
		s.log.WarnContext(ctx, "malformed record row", "spreadsheet_id", recs.SpreadsheetID(), "error", w)
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	return resp, nil
}

func (s *DefaultService) GetRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL, id string) (*models.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("record id: %w", models.ErrMissingParameter)
	}
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return nil, err
	}
	rec, _, err := recs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateRecord appends a new record. A missing ID is generated from the
// schema prefix, a missing amount is derived from the line items.
func (s *DefaultService) CreateRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, rec models.Record) (*models.Record, error) {
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return nil, err
	}

	rec.ID = strings.TrimSpace(rec.ID)
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s-%06d", recs.Schema.IDPrefix, rand.IntN(1_000_000))
	}
	if rec.Date == "" {
		rec.Date = s.today()
	}
	if rec.Status == "" {
		rec.Status = models.StatusPending
		if kind == models.KindQuotation {
			rec.Status = models.StatusDraft
		}
	}
	if rec.Amount.IsZero() && len(rec.Items) > 0 {
		rec.Amount = sumItems(rec.Items)
	}
	if err := validateRecord(recs.Schema, rec); err != nil {
		return nil, err
	}

	_, _, err = recs.Get(ctx, rec.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s %s already exists: %w", kind, rec.ID, models.ErrConflict)
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	if err := recs.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("error appending %s: %w", kind, err)
	}
	s.log.InfoContext(ctx, "created record", "kind", kind, "record_id", rec.ID, "spreadsheet_id", recs.SpreadsheetID())

	out, _ := recs.Schema.FromRow(recs.Schema.ToRow(rec))
	return &out, nil
}

// UpdateRecord rewrites the full row of rec.ID. Payment fields left empty in
// rec keep their stored values.
func (s *DefaultService) UpdateRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, rec models.Record) (*models.Record, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("record id: %w", models.ErrMissingParameter)
	}
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return nil, err
	}

	updated, err := recs.Modify(ctx, rec.ID, func(existing *models.Record) error {
		if rec.PaidAmount == nil {
			rec.PaidAmount = existing.PaidAmount
		}
		if rec.LastPaymentDate == "" {
			rec.LastPaymentDate = existing.LastPaymentDate
		}
		if rec.Status == "" {
			rec.Status = existing.Status
		}
		if rec.Amount.IsZero() && len(rec.Items) > 0 {
			rec.Amount = sumItems(rec.Items)
		}
		if err := validateRecord(recs.Schema, rec); err != nil {
			return err
		}
		*existing = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error updating %s: %w", kind, err)
	}

	out, _ := recs.Schema.FromRow(recs.Schema.ToRow(updated))
	return &out, nil
}

func (s *DefaultService) SetRecordStatus(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL, id, status string) error {
	if id == "" || status == "" {
		return fmt.Errorf("record id and status: %w", models.ErrMissingParameter)
	}
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return err
	}
	return recs.SetStatus(ctx, id, status)
}

// MarkInvoice sets an invoice to Pending or Paid. Marking paid settles the
// paid amount at the invoice total; marking pending clears the payment.
func (s *DefaultService) MarkInvoice(ctx context.Context, caller models.Caller, sheetURL, invoiceID, status string) (*models.Record, error) {
	if invoiceID == "" {
		return nil, fmt.Errorf("invoice id: %w", models.ErrMissingParameter)
	}
	if status != models.StatusPending && status != models.StatusPaid {
		return nil, fmt.Errorf("status %q: %w", status, models.ErrInvalidInput)
	}

	recs, err := s.openRecords(ctx, caller, models.KindInvoice, sheetURL)
	if err != nil {
		return nil, err
	}
	rec, err := recs.Modify(ctx, invoiceID, func(rec *models.Record) error {
		rec.Status = status
		if status == models.StatusPaid {
			total := rec.Amount
			rec.PaidAmount = &total
			rec.LastPaymentDate = s.today()
		} else {
			rec.PaidAmount = nil
			rec.LastPaymentDate = ""
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error updating invoice: %w", err)
	}
	return &rec, nil
}

func (s *DefaultService) RecordPartialPayment(ctx context.Context, caller models.Caller, req models.PartialPaymentRequest) (*models.Record, error) {
	if req.InvoiceID == "" {
		return nil, fmt.Errorf("invoice id: %w", models.ErrMissingParameter)
	}
	recs, err := s.openRecords(ctx, caller, models.KindInvoice, req.SheetURL)
	if err != nil {
		return nil, err
	}

	date := req.PaymentDate
	if date == "" {
		date = s.today()
	}
	rec, err := recs.RecordPartialPayment(ctx, req.InvoiceID, req.Amount, date)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "recorded payment", "invoice_id", rec.ID, "amount", req.Amount.String(), "status", rec.Status)
	return &rec, nil
}

// BulkDeleteRecords deletes every listed record and returns how many rows went
func (s *DefaultService) BulkDeleteRecords(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("ids: %w", models.ErrMissingParameter)
	}
	recs, err := s.openRecords(ctx, caller, kind, sheetURL)
	if err != nil {
		return 0, err
	}
	n, err := recs.DeleteByKeys(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("error deleting %s rows: %w", kind, err)
	}
	s.log.InfoContext(ctx, "bulk deleted records", "kind", kind, "requested", len(ids), "deleted", n)
	return n, nil
}

func validateRecord(schema record.Schema, rec models.Record) error {
	if !schema.ValidStatus(rec.Status) {
		return fmt.Errorf("status %q: %w", rec.Status, models.ErrInvalidInput)
	}
	if rec.Template != "" && !templates[rec.Template] {
		return fmt.Errorf("template %q: %w", rec.Template, models.ErrInvalidInput)
	}
	if rec.Amount.IsNegative() {
		return fmt.Errorf("amount %s must not be negative: %w", rec.Amount, models.ErrInvalidInput)
	}
	if rec.PaidAmount != nil && schema.Kind == models.KindInvoice {
		if rec.PaidAmount.IsNegative() || rec.PaidAmount.GreaterThan(rec.Amount) {
			return fmt.Errorf("paid amount %s outside 0..%s: %w", rec.PaidAmount, rec.Amount, models.ErrInvalidInput)
		}
	}
	return nil
}
