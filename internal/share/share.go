// Package share issues and resolves read-only share links for a single record.
package share

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/registry"
	"github.com/rongwang/invoice-sheets/internal/rows"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// DefaultTTL is how long an issued link stays valid
const DefaultTTL = 30 * 24 * time.Hour

// Store is the relational token store
type Store interface {
	CreateShareToken(ctx context.Context, token *models.ShareToken) error
	GetActiveShareToken(ctx context.Context, recordID, token string, now time.Time) (*models.ShareToken, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Unsealer opens a stored refresh token
type Unsealer interface {
	Open(sealed string) (string, error)
}

// Service issues and resolves share tokens
type Service struct {
	store     Store
	vault     Unsealer
	connector sheets.Connector
	secret    []byte
	ttl       time.Duration
	log       *slog.Logger

	now func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a share token service. secret keys the token hash;
// secrets longer than a BLAKE2b key are hashed down first.
func NewService(store Store, vault Unsealer, connector sheets.Connector, secret []byte, logger *slog.Logger, opts ...Option) *Service {
	if len(secret) > blake2b.Size {
		sum := blake2b.Sum256(secret)
		secret = sum[:]
	}
	s := &Service{
		store:     store,
		vault:     vault,
		connector: connector,
		secret:    secret,
		ttl:       DefaultTTL,
		log:       logger.With("component", "share"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates and stores a new token for recordID owned by ownerID
func (s *Service) Issue(ctx context.Context, recordID, ownerID string) (*models.ShareToken, error) {
	if recordID == "" || ownerID == "" {
		return nil, fmt.Errorf("record id and owner id: %w", models.ErrMissingParameter)
	}

	now := s.now().UTC()
	token, err := s.derive(recordID, ownerID, now)
	if err != nil {
		return nil, err
	}

	st := &models.ShareToken{
		ID:        uuid.New().String(),
		Token:     token,
		RecordID:  recordID,
		OwnerID:   ownerID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateShareToken(ctx, st); err != nil {
		return nil, fmt.Errorf("store share token: %w", err)
	}

	s.log.InfoContext(ctx, "issued share token", "record_id", recordID, "owner_id", ownerID, "expires_at", st.ExpiresAt)
	return st, nil
}

// derive hashes the record, the owner, the issue time and a random salt
// under the server key. The result reveals none of its inputs.
func (s *Service) derive(recordID, ownerID string, at time.Time) (string, error) {
	h, err := blake2b.New256(s.secret)
	if err != nil {
		return "", fmt.Errorf("share token key: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("share token salt: %w", err)
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(at.UnixNano()))

	for _, part := range [][]byte{[]byte(recordID), {0}, []byte(ownerID), {0}, ts[:], salt} {
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Resolve returns the record a valid token grants access to. The record is
// read from the owner's default spreadsheet with the owner's credentials.
func (s *Service) Resolve(ctx context.Context, recordID, token string) (*models.Record, error) {
	if recordID == "" || token == "" {
		return nil, fmt.Errorf("record id and token: %w", models.ErrMissingParameter)
	}

	st, err := s.store.GetActiveShareToken(ctx, recordID, token, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("share link: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("look up share token: %w", errors.Join(models.ErrUpstream, err))
	}

	owner, err := s.store.GetUserByID(ctx, st.OwnerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("share link owner: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("load share link owner: %w", errors.Join(models.ErrUpstream, err))
	}
	if owner.RefreshToken == "" {
		return nil, fmt.Errorf("owner %s has no stored credentials: %w", owner.ID, models.ErrUpstream)
	}

	refresh, err := s.vault.Open(owner.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("open owner credentials: %w", errors.Join(models.ErrUpstream, err))
	}

	gw, err := s.connector.ForRefreshToken(ctx, refresh)
	if err != nil {
		s.log.WarnContext(ctx, "owner credential refresh failed", "owner_id", owner.ID, "error", err)
		return nil, fmt.Errorf("refresh owner credentials: %w", errors.Join(models.ErrUpstream, err))
	}

	spreadsheetID, err := s.defaultSpreadsheet(ctx, gw, owner)
	if err != nil {
		return nil, asUpstream(err)
	}

	rec, err := FindRecord(ctx, gw, spreadsheetID, recordID)
	if err != nil {
		return nil, asUpstream(err)
	}
	return rec, nil
}

// asUpstream keeps ErrNotFound and reports anything else as ErrUpstream, so
// an anonymous viewer never sees the owner's credential errors.
func asUpstream(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return err
	}
	return errors.Join(models.ErrUpstream, err)
}

// FindRecord looks recordID up in the invoices tab, then in the quotations tab
func FindRecord(ctx context.Context, gw sheets.Gateway, spreadsheetID, recordID string) (*models.Record, error) {
	for _, schema := range []record.Schema{record.Invoices, record.Quotations} {
		rec, err := lookup(ctx, gw, spreadsheetID, schema, recordID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, fmt.Errorf("record %s: %w", recordID, models.ErrNotFound)
}

func (s *Service) defaultSpreadsheet(ctx context.Context, gw sheets.Gateway, owner *models.User) (string, error) {
	url := owner.DefaultSheetURL
	if url == "" {
		def, err := registry.New(gw, s.log).Default(ctx)
		if err != nil {
			return "", fmt.Errorf("owner default sheet: %w", err)
		}
		url = def.SheetURL
	}

	id, ok := sheets.SpreadsheetID(url)
	if !ok {
		return "", fmt.Errorf("owner default sheet %q: %w", url, models.ErrNotFound)
	}
	return id, nil
}

func lookup(ctx context.Context, gw sheets.Gateway, spreadsheetID string, schema record.Schema, id string) (*models.Record, error) {
	recs, err := rows.OpenRecords(ctx, gw, spreadsheetID, schema)
	if err != nil {
		return nil, err
	}
	rec, _, err := recs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
