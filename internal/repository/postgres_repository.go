package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rongwang/invoice-sheets/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	SetDefaultSheet(ctx context.Context, userID, sheetURL string) error
	DeleteUser(ctx context.Context, userID string) error

	// Share token operations
	CreateShareToken(ctx context.Context, token *models.ShareToken) error
	GetActiveShareToken(ctx context.Context, recordID, token string, now time.Time) (*models.ShareToken, error)
	DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error)
}

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var userColumns = []string{"id", "email", "name", "refresh_token", "default_sheet_url", "created_at", "updated_at"}

var shareTokenColumns = []string{"id", "token", "record_id", "owner_id", "expires_at", "created_at"}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// mapError converts driver errors to model sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Constraint)
	}
	return err
}

func (r *PostgresRepository) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	return res, mapError(err)
}

func (r *PostgresRepository) get(ctx context.Context, dest any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return mapError(r.db.GetContext(ctx, dest, query, args...))
}

// User repository methods

// UpsertUser inserts the user or refreshes its profile. An empty refresh
// token keeps the stored one, since Google only returns it on first consent.
func (r *PostgresRepository) UpsertUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user id: %w", models.ErrMissingParameter)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	insert := psql.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Email, user.Name, user.RefreshToken, user.DefaultSheetURL, user.CreatedAt, user.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			refresh_token = CASE WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token ELSE users.refresh_token END,
			updated_at = EXCLUDED.updated_at
			RETURNING created_at, refresh_token, default_sheet_url`)

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	row := r.db.QueryRowxContext(ctx, query, args...)
	return mapError(row.Scan(&user.CreatedAt, &user.RefreshToken, &user.DefaultSheetURL))
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.get(ctx, &user, psql.Select(userColumns...).From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresRepository) updateUser(ctx context.Context, userID string, set map[string]any) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.exec(ctx, psql.Update("users").SetMap(set).Where(sq.Eq{"id": userID}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetDefaultSheet(ctx context.Context, userID, sheetURL string) error {
	return r.updateUser(ctx, userID, map[string]any{"default_sheet_url": sheetURL})
}

// DeleteUser removes the user. Share tokens go with it through the foreign key.
func (r *PostgresRepository) DeleteUser(ctx context.Context, userID string) error {
	res, err := r.exec(ctx, psql.Delete("users").Where(sq.Eq{"id": userID}))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Share token repository methods
func (r *PostgresRepository) CreateShareToken(ctx context.Context, token *models.ShareToken) error {
	// Generate a new UUID if not provided
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := r.exec(ctx, psql.Insert("share_tokens").
		Columns(shareTokenColumns...).
		Values(token.ID, token.Token, token.RecordID, token.OwnerID, token.ExpiresAt, token.CreatedAt))
	return err
}

// GetActiveShareToken matches the exact (recordID, token) pair and only
// returns it while expires_at is after now.
func (r *PostgresRepository) GetActiveShareToken(ctx context.Context, recordID, token string, now time.Time) (*models.ShareToken, error) {
	var st models.ShareToken
	err := r.get(ctx, &st, psql.Select(shareTokenColumns...).
		From("share_tokens").
		Where(sq.Eq{"record_id": recordID, "token": token}).
		Where(sq.Gt{"expires_at": now}))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *PostgresRepository) DeleteExpiredShareTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.exec(ctx, psql.Delete("share_tokens").Where(sq.LtOrEq{"expires_at": now}))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
