package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rongwang/invoice-sheets/internal/auth"
	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/registry"
	"github.com/rongwang/invoice-sheets/internal/repository"
	"github.com/rongwang/invoice-sheets/internal/share"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (*models.AuthResponse, error)
	Logout(ctx context.Context, caller models.Caller) error
	VerifySession(token string) (string, error)

	// Tracked spreadsheets
	CreateSheet(ctx context.Context, caller models.Caller, req models.CreateSheetRequest) (*models.TrackedSheet, error)
	ListSheets(ctx context.Context, caller models.Caller) ([]models.TrackedSheet, error)
	SetDefaultSheet(ctx context.Context, caller models.Caller, sheetURL string) error
	DeleteSheet(ctx context.Context, caller models.Caller, sheetURL string) error

	// Business details
	CreateBusinessSheet(ctx context.Context, caller models.Caller, profile models.BusinessProfile) (*models.TrackedSheet, error)
	GetBusinessDetails(ctx context.Context, caller models.Caller) (*models.BusinessDetailsResponse, error)
	UpdateBusinessDetails(ctx context.Context, caller models.Caller, profile models.BusinessProfile) error

	// Invoices and quotations
	ListRecords(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string) (*models.RecordsResponse, error)
	GetRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL, id string) (*models.Record, error)
	CreateRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, rec models.Record) (*models.Record, error)
	UpdateRecord(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, rec models.Record) (*models.Record, error)
	SetRecordStatus(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL, id, status string) error
	MarkInvoice(ctx context.Context, caller models.Caller, sheetURL, invoiceID, status string) (*models.Record, error)
	RecordPartialPayment(ctx context.Context, caller models.Caller, req models.PartialPaymentRequest) (*models.Record, error)
	BulkDeleteRecords(ctx context.Context, caller models.Caller, kind models.Kind, sheetURL string, ids []string) (int, error)

	// Share links
	CreateShareLink(ctx context.Context, caller models.Caller, recordID string) (*models.ShareLinkResponse, error)
	ResolveShareLink(ctx context.Context, recordID, token string) (*models.Record, error)
	CleanupExpiredShareTokens(ctx context.Context) (int64, error)

	// Account
	DeleteAccount(ctx context.Context, caller models.Caller) error
}

// Dependencies are the collaborators of DefaultService
type Dependencies struct {
	Repo          repository.Repository
	Connector     sheets.Connector
	Provider      auth.Provider
	Sessions      *auth.Sessions
	Vault         *auth.Vault
	Shares        *share.Service
	PublicBaseURL string
	Logger        *slog.Logger
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	connector     sheets.Connector
	provider      auth.Provider
	sessions      *auth.Sessions
	vault         *auth.Vault
	shares        *share.Service
	publicBaseURL string
	log           *slog.Logger

	now func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(deps Dependencies) Service {
	return &DefaultService{
		repo:          deps.Repo,
		connector:     deps.Connector,
		provider:      deps.Provider,
		sessions:      deps.Sessions,
		vault:         deps.Vault,
		shares:        deps.Shares,
		publicBaseURL: deps.PublicBaseURL,
		log:           deps.Logger.With("component", "service"),
		now:           time.Now,
	}
}

// Authentication methods
func (s *DefaultService) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

func (s *DefaultService) HandleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	ident, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("error exchanging authorization code: %w", err)
	}

	sealed, err := s.vault.Seal(ident.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("error sealing refresh token: %w", err)
	}

	user := &models.User{
		ID:           ident.UserID,
		Email:        ident.Email,
		Name:         ident.Name,
		RefreshToken: sealed,
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user: %w", err)
	}
	if ident.RefreshToken == "" && user.RefreshToken == "" {
		s.log.WarnContext(ctx, "no refresh token stored, share links will not resolve", "user_id", user.ID)
	}

	token, expiresAt, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:      "success",
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Token:       token,
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
		AccessToken: ident.AccessToken,
	}, nil
}

// Logout ends the session. Google tokens are left alone: revoking the access
// token would also revoke the stored refresh token that share links rely on.
func (s *DefaultService) Logout(ctx context.Context, caller models.Caller) error {
	s.log.InfoContext(ctx, "user signed out", "user_id", caller.UserID)
	return nil
}

func (s *DefaultService) VerifySession(token string) (string, error) {
	return s.sessions.Verify(token)
}

// gateway builds a gateway acting as the caller
func (s *DefaultService) gateway(ctx context.Context, caller models.Caller) (sheets.Gateway, error) {
	if caller.AccessToken == "" {
		return nil, fmt.Errorf("access token: %w", models.ErrUnauthenticated)
	}
	return s.connector.ForAccessToken(ctx, caller.AccessToken)
}

// spreadsheetFor resolves sheetURL to a spreadsheet ID. An empty URL selects
// the caller's default sheet: the one stored with the account, or else the
// registry entry flagged as default.
func (s *DefaultService) spreadsheetFor(ctx context.Context, caller models.Caller, gw sheets.Gateway, sheetURL string) (string, error) {
	if sheetURL == "" {
		url, err := s.defaultSheetURL(ctx, caller, gw)
		if err != nil {
			return "", err
		}
		sheetURL = url
	}

	id, ok := sheets.SpreadsheetID(sheetURL)
	if !ok {
		return "", fmt.Errorf("sheet url %q: %w", sheetURL, models.ErrNotFound)
	}
	return id, nil
}

func (s *DefaultService) defaultSheetURL(ctx context.Context, caller models.Caller, gw sheets.Gateway) (string, error) {
	user, err := s.repo.GetUserByID(ctx, caller.UserID)
	switch {
	case err == nil && user.DefaultSheetURL != "":
		return user.DefaultSheetURL, nil
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return "", fmt.Errorf("error getting user: %w", err)
	}

	def, err := registry.New(gw, s.log).Default(ctx)
	if err != nil {
		return "", fmt.Errorf("no sheet given and no default sheet set: %w", err)
	}
	return def.SheetURL, nil
}

func (s *DefaultService) today() string {
	return s.now().UTC().Format(time.DateOnly)
}

func sumItems(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Quantity.Mul(it.Price))
	}
	return total
}
