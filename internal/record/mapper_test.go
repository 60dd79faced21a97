package record_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
)

func fullInvoice() models.Record {
	paid := decimal.RequireFromString("40.5")
	return models.Record{
		ID:      "INV-000123",
		Date:    "2024-03-01",
		DueDate: "2024-03-31",
		Customer: models.Customer{
			Name:    "Acme Ltd",
			Email:   "billing@acme.test",
			Address: "1 Main St, Springfield",
		},
		Items: []models.LineItem{
			{Description: "Design", Quantity: decimal.NewFromInt(2), Price: decimal.RequireFromString("25.25")},
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(50)},
		},
		Amount:          decimal.RequireFromString("100.5"),
		Notes:           "Thanks, \"really\"",
		Template:        models.TemplateElegant,
		Status:          models.StatusPartiallyPaid,
		PaidAmount:      &paid,
		LastPaymentDate: "2024-03-10",
	}
}

func assertSameRecord(t *testing.T, want, got models.Record) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.DueDate, got.DueDate)
	assert.Equal(t, want.Customer, got.Customer)
	assert.True(t, want.Amount.Equal(got.Amount), "amount %s != %s", want.Amount, got.Amount)
	assert.Equal(t, want.Notes, got.Notes)
	assert.Equal(t, want.Template, got.Template)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.LastPaymentDate, got.LastPaymentDate)

	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].Description, got.Items[i].Description)
		assert.True(t, want.Items[i].Quantity.Equal(got.Items[i].Quantity))
		assert.True(t, want.Items[i].Price.Equal(got.Items[i].Price))
	}

	if want.PaidAmount == nil {
		assert.Nil(t, got.PaidAmount)
	} else {
		require.NotNil(t, got.PaidAmount)
		assert.True(t, want.PaidAmount.Equal(*got.PaidAmount))
	}
}

func TestInvoiceRoundTrip(t *testing.T) {
	want := fullInvoice()

	row := record.Invoices.ToRow(want)
	require.Len(t, row, record.Invoices.Width())

	got, err := record.Invoices.FromRow(row)
	require.NoError(t, err)
	assertSameRecord(t, want, got)
}

func TestQuotationRoundTripDropsInvoiceOnlyFields(t *testing.T) {
	in := fullInvoice()
	in.ID = "QUO-000001"
	in.Status = models.StatusSent

	row := record.Quotations.ToRow(in)
	require.Len(t, row, record.Quotations.Width())

	got, err := record.Quotations.FromRow(row)
	require.NoError(t, err)

	want := in
	want.PaidAmount = nil
	want.LastPaymentDate = ""
	assertSameRecord(t, want, got)
}

func TestFromRowShortRowDefaults(t *testing.T) {
	got, err := record.Invoices.FromRow([]string{"INV-1", "2024-01-01"})
	require.NoError(t, err)

	assert.Equal(t, "INV-1", got.ID)
	assert.Equal(t, "", got.DueDate)
	assert.Equal(t, models.Customer{}, got.Customer)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
	assert.True(t, got.Amount.IsZero())
	assert.Equal(t, models.TemplateModern, got.Template)
	assert.Nil(t, got.PaidAmount)
}

func TestFromRowUnparseableAmountIsZero(t *testing.T) {
	row := record.Invoices.ToRow(fullInvoice())
	row[record.ColAmount] = "twelve"

	got, err := record.Invoices.FromRow(row)
	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())
}

func TestFromRowAmountWithCurrencyFormatting(t *testing.T) {
	row := record.Invoices.ToRow(fullInvoice())
	row[record.ColAmount] = "$1,250.00"

	got, err := record.Invoices.FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "1250", got.Amount.String())
}

func TestFromRowMalformedItemsIsSurfaced(t *testing.T) {
	row := record.Invoices.ToRow(fullInvoice())
	row[record.ColItems] = "[{not json"

	got, err := record.Invoices.FromRow(row)

	var malformed *record.MalformedItemsError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "INV-000123", malformed.RecordID)
	assert.Equal(t, "INV-000123", got.ID)
	assert.Empty(t, got.Items)
}

func TestToRowDefaultsTemplateAndItems(t *testing.T) {
	row := record.Invoices.ToRow(models.Record{ID: "INV-2", Amount: decimal.NewFromInt(5)})

	assert.Equal(t, "[]", row[record.ColItems])
	assert.Equal(t, "5", row[record.ColAmount])
	assert.Equal(t, models.TemplateModern, row[record.ColTemplate])
	assert.Equal(t, "", row[record.ColPaidAmount])
}

func TestSchemaStatuses(t *testing.T) {
	assert.True(t, record.Invoices.ValidStatus(models.StatusPartiallyPaid))
	assert.False(t, record.Quotations.ValidStatus(models.StatusPartiallyPaid))
	assert.False(t, record.Invoices.ValidStatus("paid"))

	s, err := record.ForKind(models.KindQuotation)
	require.NoError(t, err)
	assert.Equal(t, "Quotations", s.Tab)
	assert.Equal(t, "Valid Until", s.Headers()[record.ColDueDate])

	_, err = record.ForKind("receipt")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestProfileRoundTrip(t *testing.T) {
	p := models.BusinessProfile{
		CompanyName:  "Acme Ltd",
		Email:        "hello@acme.test",
		Phone:        "+1 555 0100",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		Country:      "US",
		TaxID:        "US-99",
	}

	rows := record.ProfileToRows(p)
	assert.Equal(t, []string{"Field", "Value"}, rows[0])
	assert.Equal(t, p, record.ProfileFromRows(rows))
}
