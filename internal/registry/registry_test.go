package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/registry"
	"github.com/rongwang/invoice-sheets/internal/sheets/sheetstest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestGetOrCreateCreatesOnce(t *testing.T) {
	ctx := context.Background()
	mem := sheetstest.New()

	first, err := registry.New(mem, quiet).GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, registry.TrackerName, first.Name)

	book := mem.Book(first.ID)
	require.NotNil(t, book)
	grid := book.Grid(registry.TabName)
	require.NotNil(t, grid)
	assert.Equal(t, registry.Headers, grid.Rows[0])
	assert.Equal(t, []int{0}, grid.BoldRows)

	second, err := registry.New(mem, quiet).GetOrCreate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, mem.Books(), 1)
}

func TestGetOrCreateFindsExisting(t *testing.T) {
	mem := sheetstest.New()
	existing := mem.AddBook(registry.TrackerName, map[string][][]string{
		registry.TabName: {registry.Headers},
	}, registry.TabName)

	tracker, err := registry.New(mem, quiet).GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, existing.ID, tracker.ID)
	assert.Equal(t, existing.URL(), tracker.WebViewLink)
}

func TestGetOrCreateSearchFailure(t *testing.T) {
	mem := sheetstest.New()
	mem.Fail["FindSpreadsheet"] = models.ErrUpstream

	_, err := registry.New(mem, quiet).GetOrCreate(context.Background())
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.Empty(t, mem.Books())
}

func TestFindNeverCreates(t *testing.T) {
	ctx := context.Background()
	mem := sheetstest.New()
	reg := registry.New(mem, quiet)

	_, err := reg.Find(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = reg.Default(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, mem.Books())

	existing := mem.AddBook(registry.TrackerName, map[string][][]string{
		registry.TabName: {registry.Headers},
	}, registry.TabName)
	tracker, err := registry.New(mem, quiet).Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, tracker.ID)
}

func TestHeaderFormattingFailureIsNotFatal(t *testing.T) {
	mem := sheetstest.New()
	mem.Fail["BoldRow"] = errors.New("formatting unavailable")

	_, err := registry.New(mem, quiet).GetOrCreate(context.Background())
	assert.NoError(t, err)
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(sheetstest.New(), quiet)

	require.NoError(t, reg.Append(ctx, models.TrackedSheet{
		SheetID: "SHEET-000001", Name: "Acme", Description: "first", SheetURL: "https://docs.google.com/spreadsheets/d/a/edit",
	}))
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{
		SheetID: "SHEET-000002", Name: "Globex", CreatedDate: "2024-02-01", SheetURL: "https://docs.google.com/spreadsheets/d/b/edit",
	}))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Acme", list[0].Name)
	assert.NotEmpty(t, list[0].CreatedDate)
	assert.Equal(t, "2024-02-01", list[1].CreatedDate)
	assert.False(t, list[0].IsDefault)
}

func TestMarkDefaultLeavesSingleDefault(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(sheetstest.New(), quiet)

	urls := []string{
		"https://docs.google.com/spreadsheets/d/a/edit",
		"https://docs.google.com/spreadsheets/d/b/edit",
		"https://docs.google.com/spreadsheets/d/c/edit",
	}
	for i, u := range urls {
		require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: registry.NewID(registry.SheetPrefix), Name: string(rune('A' + i)), SheetURL: u}))
	}

	require.NoError(t, reg.MarkDefault(ctx, urls[0]))
	require.NoError(t, reg.MarkDefault(ctx, urls[1]))

	list, err := reg.List(ctx)
	require.NoError(t, err)
	var defaults []string
	for _, e := range list {
		if e.IsDefault {
			defaults = append(defaults, e.SheetURL)
		}
	}
	assert.Equal(t, []string{urls[1]}, defaults)

	def, err := reg.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, "B", def.Name)

	assert.ErrorIs(t, reg.MarkDefault(ctx, "https://docs.google.com/spreadsheets/d/zzz/edit"), models.ErrNotFound)
}

func TestDefaultMissing(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(sheetstest.New(), quiet)
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "SHEET-1", SheetURL: "u"}))

	_, err := reg.Default(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(sheetstest.New(), quiet)
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "SHEET-1", SheetURL: "u1"}))
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "SHEET-2", SheetURL: "u2"}))

	require.NoError(t, reg.Delete(ctx, "u1"))
	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u2", list[0].SheetURL)

	assert.ErrorIs(t, reg.Delete(ctx, "u1"), models.ErrNotFound)
}

func TestFindByPrefix(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(sheetstest.New(), quiet)
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "BUSINESS-000001", SheetURL: "old"}))
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "SHEET-000002", SheetURL: "s"}))
	require.NoError(t, reg.Append(ctx, models.TrackedSheet{SheetID: "BUSINESS-000003", SheetURL: "new"}))

	got, err := reg.FindByPrefix(ctx, registry.BusinessPrefix)
	require.NoError(t, err)
	assert.Equal(t, "new", got.SheetURL)

	_, err = reg.FindByPrefix(ctx, "OTHER")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNewID(t *testing.T) {
	assert.Regexp(t, `^SHEET-\d{6}$`, registry.NewID(registry.SheetPrefix))
	assert.Regexp(t, `^BUSINESS-\d{6}$`, registry.NewID(registry.BusinessPrefix))
}
