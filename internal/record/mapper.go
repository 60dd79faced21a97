// Package record maps spreadsheet rows to invoice and quotation records.
// It is the only place that knows column positions.
package record

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rongwang/invoice-sheets/internal/models"
)

// Column offsets, 0-based
const (
	ColID = iota
	ColDate
	ColDueDate
	ColCustomerName
	ColCustomerEmail
	ColCustomerAddress
	ColItems
	ColAmount
	ColNotes
	ColTemplate
	ColStatus
	ColPaidAmount
	ColLastPaymentDate
)

// Schema describes one record tab
type Schema struct {
	Kind     models.Kind
	Tab      string
	IDPrefix string
	headers  []string
	statuses []string
}

// Invoices is the schema of the Invoices tab
var Invoices = Schema{
	Kind:     models.KindInvoice,
	Tab:      "Invoices",
	IDPrefix: "INV",
	headers: []string{
		"Invoice ID", "Date", "Due Date", "Customer Name", "Customer Email", "Customer Address",
		"Items", "Amount", "Notes", "Template", "Status", "Paid Amount", "Last Payment Date",
	},
	statuses: []string{
		models.StatusDraft, models.StatusPending, models.StatusSent, models.StatusPaid,
		models.StatusPartiallyPaid, models.StatusOverdue, models.StatusCancelled,
	},
}

// Quotations is the schema of the Quotations tab
var Quotations = Schema{
	Kind:     models.KindQuotation,
	Tab:      "Quotations",
	IDPrefix: "QUO",
	headers: []string{
		"Quotation ID", "Date", "Valid Until", "Customer Name", "Customer Email", "Customer Address",
		"Items", "Amount", "Notes", "Template", "Status",
	},
	statuses: []string{
		models.StatusDraft, models.StatusPending, models.StatusSent, models.StatusOverdue, models.StatusCancelled,
	},
}

// ForKind returns the schema of a record kind
func ForKind(kind models.Kind) (Schema, error) {
	switch kind {
	case models.KindInvoice:
		return Invoices, nil
	case models.KindQuotation:
		return Quotations, nil
	}
	return Schema{}, fmt.Errorf("record kind %q: %w", kind, models.ErrInvalidInput)
}

// Headers returns a copy of the header row
func (s Schema) Headers() []string {
	return append([]string(nil), s.headers...)
}

// Width is the number of columns of the schema
func (s Schema) Width() int {
	return len(s.headers)
}

// ValidStatus reports whether status belongs to the schema's vocabulary
func (s Schema) ValidStatus(status string) bool {
	for _, st := range s.statuses {
		if st == status {
			return true
		}
	}
	return false
}

// MalformedItemsError reports an items cell that is not valid JSON.
// The record returned alongside it is still usable, with no items.
type MalformedItemsError struct {
	RecordID string
	Err      error
}

func (e *MalformedItemsError) Error() string {
	return fmt.Sprintf("record %s: malformed items: %v", e.RecordID, e.Err)
}

func (e *MalformedItemsError) Unwrap() error {
	return e.Err
}

// FromRow converts a row into a record. It always returns a record: missing
// cells become empty strings and unparseable numbers become zero. A non-nil
// error is a *MalformedItemsError and is meant to be logged, not returned.
func (s Schema) FromRow(row []string) (models.Record, error) {
	rec := models.Record{
		ID:      cell(row, ColID),
		Date:    cell(row, ColDate),
		DueDate: cell(row, ColDueDate),
		Customer: models.Customer{
			Name:    cell(row, ColCustomerName),
			Email:   cell(row, ColCustomerEmail),
			Address: cell(row, ColCustomerAddress),
		},
		Items:    []models.LineItem{},
		Amount:   ParseAmount(cell(row, ColAmount)),
		Notes:    cell(row, ColNotes),
		Template: cell(row, ColTemplate),
		Status:   cell(row, ColStatus),
	}
	if rec.Template == "" {
		rec.Template = models.TemplateModern
	}

	if s.Kind == models.KindInvoice {
		if paid := cell(row, ColPaidAmount); paid != "" {
			d := ParseAmount(paid)
			rec.PaidAmount = &d
		}
		rec.LastPaymentDate = cell(row, ColLastPaymentDate)
	}

	var warn error
	if raw := strings.TrimSpace(cell(row, ColItems)); raw != "" {
		var items []models.LineItem
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			warn = &MalformedItemsError{RecordID: rec.ID, Err: err}
		} else if items != nil {
			rec.Items = items
		}
	}

	return rec, warn
}

// ToRow converts a record into a row in column order. Fields outside the
// schema are dropped.
func (s Schema) ToRow(rec models.Record) []string {
	items := rec.Items
	if items == nil {
		items = []models.LineItem{}
	}
	itemsJSON, _ := json.Marshal(items)

	template := rec.Template
	if template == "" {
		template = models.TemplateModern
	}

	row := []string{
		rec.ID,
		rec.Date,
		rec.DueDate,
		rec.Customer.Name,
		rec.Customer.Email,
		rec.Customer.Address,
		string(itemsJSON),
		rec.Amount.String(),
		rec.Notes,
		template,
		rec.Status,
	}

	if s.Kind == models.KindInvoice {
		paid := ""
		if rec.PaidAmount != nil {
			paid = rec.PaidAmount.String()
		}
		row = append(row, paid, rec.LastPaymentDate)
	}
	return row
}

// ParseAmount parses a money cell, tolerating currency symbols and thousands
// separators. It returns zero when the cell is not a number.
func ParseAmount(s string) decimal.Decimal {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AmountOf returns the amount cell of row, failing when it is not a number
func AmountOf(row []string) (decimal.Decimal, error) {
	return ParseAmountStrict(cell(row, ColAmount))
}

// ParseAmountStrict is ParseAmount but reports unparseable input
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, models.ErrInvalidInput)
	}
	return d, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
