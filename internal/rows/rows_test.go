package rows_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/rows"
	"github.com/rongwang/invoice-sheets/internal/sheets/sheetstest"
)

func TestFindRowIndex(t *testing.T) {
	data := [][]string{
		{"Invoice ID", "Date"},
		{"INV-1", "2024-01-01"},
		{},
		{"INV-2"},
		{"INV-1", "duplicate"},
	}

	assert.Equal(t, 1, rows.FindRowIndex(data, "INV-1", 0), "first match wins")
	assert.Equal(t, 3, rows.FindRowIndex(data, "INV-2", 0))
	assert.Equal(t, rows.NotFound, rows.FindRowIndex(data, "INV-3", 0))
	assert.Equal(t, 0, rows.FindRowIndex(data, "Invoice ID", 0), "header is scanned unless skipped")
	assert.Equal(t, rows.NotFound, rows.FindRowIndex(data[rows.HeaderRows:], "Invoice ID", 0))
	assert.Equal(t, rows.NotFound, rows.FindRowIndex(data, "x", 7))
}

func seedInvoices(t *testing.T, ids ...string) (*sheetstest.Memory, string, *rows.Records) {
	t.Helper()
	mem := sheetstest.New()

	data := [][]string{record.Invoices.Headers()}
	for _, id := range ids {
		data = append(data, record.Invoices.ToRow(models.Record{
			ID:     id,
			Amount: decimal.NewFromInt(100),
			Status: models.StatusPending,
		}))
	}
	book := mem.AddBook("Acme Invoices", map[string][][]string{record.Invoices.Tab: data}, record.Invoices.Tab)

	recs, err := rows.OpenRecords(context.Background(), mem, book.ID, record.Invoices)
	require.NoError(t, err)
	return mem, book.ID, recs
}

func keys(t *testing.T, mem *sheetstest.Memory, bookID string) []string {
	t.Helper()
	var out []string
	for _, r := range mem.Rows(bookID, record.Invoices.Tab)[rows.HeaderRows:] {
		out = append(out, r[record.ColID])
	}
	return out
}

func TestOpenUnknownTab(t *testing.T) {
	mem := sheetstest.New()
	book := mem.AddBook("Empty", nil, "Sheet1")

	_, err := rows.OpenRecords(context.Background(), mem, book.ID, record.Invoices)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteRowsDescending(t *testing.T) {
	ctx := context.Background()
	mem, bookID, recs := seedInvoices(t, "A", "B", "C", "D", "E", "F")

	// rows 1..6 hold A..F; delete B, D, E given in ascending order with a duplicate
	err := recs.DeleteRows(ctx, []int{2, 4, 5, 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "F"}, keys(t, mem, bookID))
	assert.Equal(t, []string{bookID + "/5", bookID + "/4", bookID + "/2"}, mem.Deletions)
}

func TestDeleteRowsRejectsHeader(t *testing.T) {
	mem, bookID, recs := seedInvoices(t, "A", "B")

	err := recs.DeleteRows(context.Background(), []int{2, 0})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, mem.Deletions)
	assert.Equal(t, []string{"A", "B"}, keys(t, mem, bookID))
}

func TestDeleteByKeysKeepsUnselectedRows(t *testing.T) {
	ctx := context.Background()
	ids := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		ids = append(ids, fmt.Sprintf("INV-%02d", i))
	}
	mem, bookID, recs := seedInvoices(t, ids...)

	selected := map[string]bool{"INV-01": true, "INV-02": true, "INV-07": true, "INV-13": true, "INV-19": true}
	var toDelete []string
	var survivors []string
	for _, id := range ids {
		if selected[id] {
			toDelete = append(toDelete, id)
		} else {
			survivors = append(survivors, id)
		}
	}

	n, err := recs.DeleteByKeys(ctx, append(toDelete, "INV-404"))
	require.NoError(t, err)
	assert.Equal(t, len(toDelete), n)
	assert.Equal(t, survivors, keys(t, mem, bookID))
}

func TestDeleteByKeysStopsOnFailure(t *testing.T) {
	mem, _, recs := seedInvoices(t, "A", "B")
	boom := errors.New("quota exceeded")
	mem.Fail["DeleteRow"] = boom

	_, err := recs.DeleteByKeys(context.Background(), []string{"A", "B"})
	assert.ErrorIs(t, err, boom)
}

func TestUpdateCellRange(t *testing.T) {
	ctx := context.Background()
	mem, bookID, recs := seedInvoices(t, "A", "B")

	require.NoError(t, recs.UpdateCellRange(ctx, 2, record.ColStatus, record.ColStatus, []string{models.StatusPaid}))
	assert.Equal(t, models.StatusPaid, mem.Rows(bookID, record.Invoices.Tab)[2][record.ColStatus])

	err := recs.UpdateCellRange(ctx, 2, 3, 5, []string{"x"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAppendAndGet(t *testing.T) {
	ctx := context.Background()
	_, _, recs := seedInvoices(t, "A")

	require.NoError(t, recs.Append(ctx, models.Record{ID: "B", Amount: decimal.NewFromInt(7), Status: models.StatusDraft}))

	got, idx, err := recs.Get(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "7", got.Amount.String())

	_, _, err = recs.Get(ctx, "Invoice ID")
	assert.ErrorIs(t, err, models.ErrNotFound, "header row is never a record")
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	mem, bookID, recs := seedInvoices(t, "A", "B")

	require.NoError(t, recs.SetStatus(ctx, "B", models.StatusPaid))
	assert.Equal(t, models.StatusPaid, mem.Rows(bookID, record.Invoices.Tab)[2][record.ColStatus])
	assert.Equal(t, models.StatusPending, mem.Rows(bookID, record.Invoices.Tab)[1][record.ColStatus])

	assert.ErrorIs(t, recs.SetStatus(ctx, "B", "Done"), models.ErrInvalidInput)
	assert.ErrorIs(t, recs.SetStatus(ctx, "Z", models.StatusPaid), models.ErrNotFound)
}

func TestModify(t *testing.T) {
	ctx := context.Background()
	mem, bookID, recs := seedInvoices(t, "A", "B")

	rec, err := recs.Modify(ctx, "B", func(rec *models.Record) error {
		rec.Notes = "net 30"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "net 30", rec.Notes)
	assert.Equal(t, "net 30", mem.Rows(bookID, record.Invoices.Tab)[2][record.ColNotes])

	_, err = recs.Modify(ctx, "A", func(rec *models.Record) error {
		rec.Notes = "discarded"
		return models.ErrInvalidInput
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, mem.Rows(bookID, record.Invoices.Tab)[1][record.ColNotes])

	_, err = recs.Modify(ctx, "Z", func(*models.Record) error { return nil })
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListSkipsBlankRowsAndReportsMalformedItems(t *testing.T) {
	ctx := context.Background()
	mem := sheetstest.New()
	bad := record.Invoices.ToRow(models.Record{ID: "BAD"})
	bad[record.ColItems] = "{oops"
	book := mem.AddBook("Book", map[string][][]string{record.Invoices.Tab: {
		record.Invoices.Headers(),
		record.Invoices.ToRow(models.Record{ID: "OK"}),
		{},
		bad,
	}}, record.Invoices.Tab)

	recs, err := rows.OpenRecords(ctx, mem, book.ID, record.Invoices)
	require.NoError(t, err)

	list, warns, err := recs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "OK", list[0].ID)
	assert.Equal(t, "BAD", list[1].ID)
	require.Len(t, warns, 1)
}
