package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/registry"
	"github.com/rongwang/invoice-sheets/internal/share"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

// CreateShareLink issues a share link for a record of the caller's default sheet
func (s *DefaultService) CreateShareLink(ctx context.Context, caller models.Caller, recordID string) (*models.ShareLinkResponse, error) {
	if recordID == "" {
		return nil, fmt.Errorf("record id: %w", models.ErrMissingParameter)
	}

	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}
	spreadsheetID, err := s.spreadsheetFor(ctx, caller, gw, "")
	if err != nil {
		return nil, err
	}

	if _, err := share.FindRecord(ctx, gw, spreadsheetID, recordID); err != nil {
		return nil, fmt.Errorf("record in default sheet: %w", err)
	}

	st, err := s.shares.Issue(ctx, recordID, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("error issuing share link: %w", err)
	}

	return &models.ShareLinkResponse{
		Status:    "success",
		Token:     st.Token,
		URL:       fmt.Sprintf("%s/shared/%s?token=%s", strings.TrimRight(s.publicBaseURL, "/"), url.PathEscape(recordID), st.Token),
		ExpiresAt: st.ExpiresAt,
	}, nil
}

func (s *DefaultService) ResolveShareLink(ctx context.Context, recordID, token string) (*models.Record, error) {
	return s.shares.Resolve(ctx, recordID, token)
}

func (s *DefaultService) CleanupExpiredShareTokens(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredShareTokens(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired share tokens: %w", err)
	}
	return n, nil
}

// DeleteAccount deletes every registered spreadsheet, the registry, revokes
// the stored Google credential and removes the user. Only the final step
// can fail the call; earlier failures are logged.
func (s *DefaultService) DeleteAccount(ctx context.Context, caller models.Caller) error {
	log := s.log.With("user_id", caller.UserID)

	if gw, err := s.gateway(ctx, caller); err != nil {
		log.WarnContext(ctx, "skipping spreadsheet cleanup", "error", err)
	} else {
		s.deleteSpreadsheets(ctx, gw, caller)
	}

	user, err := s.repo.GetUserByID(ctx, caller.UserID)
	switch {
	case err != nil:
		log.WarnContext(ctx, "failed to load user for credential revocation", "error", err)
	case user.RefreshToken != "":
		refresh, err := s.vault.Open(user.RefreshToken)
		if err != nil {
			log.WarnContext(ctx, "failed to open stored credential", "error", err)
			break
		}
		if err := s.provider.Revoke(ctx, refresh); err != nil {
			log.WarnContext(ctx, "failed to revoke stored credential", "error", err)
		}
	}

	if err := s.repo.DeleteUser(ctx, caller.UserID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	log.InfoContext(ctx, "deleted account")
	return nil
}

func (s *DefaultService) deleteSpreadsheets(ctx context.Context, gw sheets.Gateway, caller models.Caller) {
	log := s.log.With("user_id", caller.UserID)

	reg := registry.New(gw, s.log)
	tracker, err := reg.Find(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return
	}
	if err != nil {
		log.WarnContext(ctx, "failed to look up registry", "error", err)
		return
	}

	entries, err := reg.List(ctx)
	if err != nil {
		log.WarnContext(ctx, "failed to list registry", "error", err)
		return
	}
	for _, e := range entries {
		id, ok := sheets.SpreadsheetID(e.SheetURL)
		if !ok {
			continue
		}
		if err := gw.DeleteFile(ctx, id); err != nil {
			log.WarnContext(ctx, "failed to delete spreadsheet", "sheet_id", e.SheetID, "error", err)
		}
	}

	if err := gw.DeleteFile(ctx, tracker.ID); err != nil {
		log.WarnContext(ctx, "failed to delete registry", "error", err)
	}
}
