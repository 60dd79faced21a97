package rows_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/rows"
	"github.com/rongwang/invoice-sheets/internal/sheets/sheetstest"
)

func seedPayment(t *testing.T, total, paid string) (*sheetstest.Memory, string, *rows.Records) {
	t.Helper()
	row := record.Invoices.ToRow(models.Record{ID: "INV-9", Status: models.StatusPending})
	row[record.ColAmount] = total
	row[record.ColPaidAmount] = paid

	mem := sheetstest.New()
	book := mem.AddBook("Book", map[string][][]string{
		record.Invoices.Tab: {record.Invoices.Headers(), row},
	}, record.Invoices.Tab)

	recs, err := rows.OpenRecords(context.Background(), mem, book.ID, record.Invoices)
	require.NoError(t, err)
	return mem, book.ID, recs
}

func TestRecordPartialPayment(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		paid       string
		payment    string
		wantStatus string
		wantPaid   string
	}{
		{"settles the balance", "100", "40", "60", models.StatusPaid, "100"},
		{"first partial payment", "100", "", "30", models.StatusPartiallyPaid, "30"},
		{"explicit zero paid", "100", "0", "30", models.StatusPartiallyPaid, "30"},
		{"decimal amounts", "99.99", "50.5", "49.49", models.StatusPaid, "99.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, bookID, recs := seedPayment(t, tt.total, tt.paid)

			rec, err := recs.RecordPartialPayment(context.Background(), "INV-9", decimal.RequireFromString(tt.payment), "2024-05-01")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Status)
			require.NotNil(t, rec.PaidAmount)
			assert.True(t, decimal.RequireFromString(tt.wantPaid).Equal(*rec.PaidAmount))

			written := mem.Rows(bookID, record.Invoices.Tab)[1]
			assert.Equal(t, tt.wantStatus, written[record.ColStatus])
			assert.True(t, decimal.RequireFromString(tt.wantPaid).Equal(decimal.RequireFromString(written[record.ColPaidAmount])))
			assert.Equal(t, "2024-05-01", written[record.ColLastPaymentDate])
		})
	}
}

func TestRecordPartialPaymentErrors(t *testing.T) {
	ctx := context.Background()

	_, _, recs := seedPayment(t, "100", "")
	_, err := recs.RecordPartialPayment(ctx, "INV-404", decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = recs.RecordPartialPayment(ctx, "INV-9", decimal.Zero, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = recs.RecordPartialPayment(ctx, "INV-9", decimal.NewFromInt(101), "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, _, recs = seedPayment(t, "a lot", "")
	_, err = recs.RecordPartialPayment(ctx, "INV-9", decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
