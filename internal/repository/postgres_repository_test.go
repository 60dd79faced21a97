package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/repository"
	"github.com/rongwang/invoice-sheets/internal/repository/testhelper"
)

func newRepo(t *testing.T) *repository.PostgresRepository {
	return repository.NewPostgresRepository(testhelper.SetupTestDB(t))
}

func seedUser(t *testing.T, repo *repository.PostgresRepository, id string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: id + "@example.com", Name: "User " + id, RefreshToken: "sealed-" + id}
	require.NoError(t, repo.UpsertUser(context.Background(), user))
	return user
}

func TestUpsertUserKeepsRefreshToken(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "g-1")

	// A later sign-in without a refresh token keeps the stored one
	again := &models.User{ID: "g-1", Email: "g-1@example.com", Name: "Renamed"}
	require.NoError(t, repo.UpsertUser(ctx, again))
	assert.Equal(t, "sealed-g-1", again.RefreshToken)

	got, err := repo.GetUserByID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "sealed-g-1", got.RefreshToken)

	_, err = repo.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Email belongs to another account
	err = repo.UpsertUser(ctx, &models.User{ID: "g-2", Email: "g-1@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserUpdates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "g-1")

	require.NoError(t, repo.SetDefaultSheet(ctx, "g-1", "https://docs.google.com/spreadsheets/d/abc/edit"))

	got, err := repo.GetUserByID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc/edit", got.DefaultSheetURL)
	assert.Equal(t, "sealed-g-1", got.RefreshToken)

	assert.ErrorIs(t, repo.SetDefaultSheet(ctx, "missing", "x"), models.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteUser(ctx, "missing"), models.ErrNotFound)
}

func TestShareTokens(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "g-1")
	now := time.Now().UTC().Truncate(time.Second)

	active := &models.ShareToken{Token: "tok-a", RecordID: "INV-000001", OwnerID: "g-1", ExpiresAt: now.Add(time.Hour)}
	expired := &models.ShareToken{Token: "tok-b", RecordID: "INV-000002", OwnerID: "g-1", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repo.CreateShareToken(ctx, active))
	require.NoError(t, repo.CreateShareToken(ctx, expired))
	assert.NotEmpty(t, active.ID)

	got, err := repo.GetActiveShareToken(ctx, "INV-000001", "tok-a", now)
	require.NoError(t, err)
	assert.Equal(t, "g-1", got.OwnerID)

	// Exact pair only
	_, err = repo.GetActiveShareToken(ctx, "INV-000002", "tok-a", now)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.GetActiveShareToken(ctx, "INV-000002", "tok-b", now)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Still valid one second before expiry, gone at expiry
	_, err = repo.GetActiveShareToken(ctx, "INV-000001", "tok-a", now.Add(time.Hour-time.Second))
	assert.NoError(t, err)
	_, err = repo.GetActiveShareToken(ctx, "INV-000001", "tok-a", now.Add(time.Hour))
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = repo.CreateShareToken(ctx, &models.ShareToken{Token: "tok-a", RecordID: "INV-000001", OwnerID: "g-1", ExpiresAt: now})
	assert.ErrorIs(t, err, models.ErrConflict)

	n, err := repo.DeleteExpiredShareTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteUserCascadesShareTokens(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	seedUser(t, repo, "g-1")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateShareToken(ctx, &models.ShareToken{Token: "tok", RecordID: "INV-1", OwnerID: "g-1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.DeleteUser(ctx, "g-1"))

	_, err := repo.GetActiveShareToken(ctx, "INV-1", "tok", now)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
