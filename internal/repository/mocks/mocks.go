package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rongwang/invoice-sheets/internal/models"
)

// Repository is a mock for repository.Repository.
type Repository struct {
	mock.Mock
}

func (m *Repository) UpsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Repository) SetDefaultSheet(ctx context.Context, userID, sheetURL string) error {
	args := m.Called(ctx, userID, sheetURL)
	return args.Error(0)
}

func (m *Repository) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *Repository) CreateShareToken(ctx context.Context, token *models.ShareToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *Repository) GetActiveShareToken(ctx context.Context, recordID, token string, now time.Time) (*models.ShareToken, error) {
	args := m.Called(ctx, recordID, token, now)
	if st, ok := args.Get(0).(*models.ShareToken); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Repository) DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}
