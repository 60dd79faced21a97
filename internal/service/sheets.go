package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/record"
	"github.com/rongwang/invoice-sheets/internal/registry"
	"github.com/rongwang/invoice-sheets/internal/rows"
	"github.com/rongwang/invoice-sheets/internal/sheets"
)

const businessSheetName = "Business Details"

var businessLayout = rows.Layout{Tab: record.BusinessTab, KeyColumn: 0, Width: 2}

// CreateSheet creates a spreadsheet with Invoices and Quotations tabs and
// registers it in the caller's registry
func (s *DefaultService) CreateSheet(ctx context.Context, caller models.Caller, req models.CreateSheetRequest) (*models.TrackedSheet, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("sheet name: %w", models.ErrMissingParameter)
	}

	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}

	ss, err := gw.CreateSpreadsheet(ctx, name, record.Invoices.Tab, record.Quotations.Tab)
	if err != nil {
		return nil, fmt.Errorf("error creating spreadsheet: %w", err)
	}

	for _, schema := range []record.Schema{record.Invoices, record.Quotations} {
		tab, ok := ss.TabByTitle(schema.Tab)
		if !ok {
			return nil, fmt.Errorf("tab %q missing from new spreadsheet: %w", schema.Tab, models.ErrUpstream)
		}
		table := rows.NewMutator(gw, ss.ID, tab, rows.LayoutFor(schema))
		if err := table.WriteHeader(ctx, schema.Headers()); err != nil {
			return nil, fmt.Errorf("error writing %s header: %w", schema.Tab, err)
		}
		if err := gw.BoldRow(ctx, ss.ID, tab.ID, 0, schema.Width()); err != nil {
			s.log.WarnContext(ctx, "failed to format header", "spreadsheet_id", ss.ID, "tab", schema.Tab, "error", err)
		}
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Invoices and quotations for " + name
	}

	entry := models.TrackedSheet{
		SheetID:     registry.NewID(registry.SheetPrefix),
		Name:        name,
		CreatedDate: s.today(),
		Description: description,
		SheetURL:    spreadsheetURL(ss),
	}
	if err := registry.New(gw, s.log).Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("error registering spreadsheet: %w", err)
	}

	s.log.InfoContext(ctx, "created spreadsheet", "user_id", caller.UserID, "sheet_id", entry.SheetID, "spreadsheet_id", ss.ID)
	return &entry, nil
}

func (s *DefaultService) ListSheets(ctx context.Context, caller models.Caller) ([]models.TrackedSheet, error) {
	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}
	return registry.New(gw, s.log).List(ctx)
}

// SetDefaultSheet flags the entry in the registry and stores the URL with
// the account so share links resolve against it
func (s *DefaultService) SetDefaultSheet(ctx context.Context, caller models.Caller, sheetURL string) error {
	if sheetURL == "" {
		return fmt.Errorf("sheet url: %w", models.ErrMissingParameter)
	}

	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return err
	}
	if err := registry.New(gw, s.log).MarkDefault(ctx, sheetURL); err != nil {
		return fmt.Errorf("error marking default sheet: %w", err)
	}
	if err := s.repo.SetDefaultSheet(ctx, caller.UserID, sheetURL); err != nil {
		return fmt.Errorf("error saving default sheet: %w", err)
	}
	return nil
}

// DeleteSheet removes the registry entry. The spreadsheet itself stays in Drive.
func (s *DefaultService) DeleteSheet(ctx context.Context, caller models.Caller, sheetURL string) error {
	if sheetURL == "" {
		return fmt.Errorf("sheet url: %w", models.ErrMissingParameter)
	}

	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return err
	}
	if err := registry.New(gw, s.log).Delete(ctx, sheetURL); err != nil {
		return fmt.Errorf("error deleting registry entry: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("error getting user: %w", err)
	}
	if user.DefaultSheetURL == sheetURL {
		if err := s.repo.SetDefaultSheet(ctx, caller.UserID, ""); err != nil {
			return fmt.Errorf("error clearing default sheet: %w", err)
		}
	}
	return nil
}

// CreateBusinessSheet creates the business details spreadsheet. When one is
// already registered its details are overwritten instead.
func (s *DefaultService) CreateBusinessSheet(ctx context.Context, caller models.Caller, profile models.BusinessProfile) (*models.TrackedSheet, error) {
	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}
	reg := registry.New(gw, s.log)

	existing, err := reg.FindByPrefix(ctx, registry.BusinessPrefix)
	switch {
	case err == nil:
		if err := s.writeProfile(ctx, gw, existing.SheetURL, profile); err != nil {
			return nil, err
		}
		return existing, nil
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("error reading registry: %w", err)
	}

	ss, err := gw.CreateSpreadsheet(ctx, businessSheetName, record.BusinessTab)
	if err != nil {
		return nil, fmt.Errorf("error creating business spreadsheet: %w", err)
	}
	tab, ok := ss.TabByTitle(record.BusinessTab)
	if !ok {
		return nil, fmt.Errorf("tab %q missing from new spreadsheet: %w", record.BusinessTab, models.ErrUpstream)
	}

	table := rows.NewMutator(gw, ss.ID, tab, businessLayout)
	if err := table.WriteRows(ctx, record.ProfileToRows(profile)); err != nil {
		return nil, fmt.Errorf("error writing business details: %w", err)
	}
	if err := gw.BoldRow(ctx, ss.ID, tab.ID, 0, businessLayout.Width); err != nil {
		s.log.WarnContext(ctx, "failed to format header", "spreadsheet_id", ss.ID, "error", err)
	}

	entry := models.TrackedSheet{
		SheetID:     registry.NewID(registry.BusinessPrefix),
		Name:        businessSheetName,
		CreatedDate: s.today(),
		Description: "Business profile",
		SheetURL:    spreadsheetURL(ss),
	}
	if err := reg.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("error registering business spreadsheet: %w", err)
	}
	return &entry, nil
}

func (s *DefaultService) GetBusinessDetails(ctx context.Context, caller models.Caller) (*models.BusinessDetailsResponse, error) {
	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return nil, err
	}

	entry, err := registry.New(gw, s.log).FindByPrefix(ctx, registry.BusinessPrefix)
	if err != nil {
		return nil, fmt.Errorf("business details: %w", err)
	}
	table, err := s.openBusiness(ctx, gw, entry.SheetURL)
	if err != nil {
		return nil, err
	}
	all, err := table.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading business details: %w", err)
	}

	return &models.BusinessDetailsResponse{
		Status:   "success",
		SheetURL: entry.SheetURL,
		Details:  record.ProfileFromRows(all),
	}, nil
}

// UpdateBusinessDetails overwrites the whole profile
func (s *DefaultService) UpdateBusinessDetails(ctx context.Context, caller models.Caller, profile models.BusinessProfile) error {
	gw, err := s.gateway(ctx, caller)
	if err != nil {
		return err
	}
	entry, err := registry.New(gw, s.log).FindByPrefix(ctx, registry.BusinessPrefix)
	if err != nil {
		return fmt.Errorf("business details: %w", err)
	}
	return s.writeProfile(ctx, gw, entry.SheetURL, profile)
}

func (s *DefaultService) writeProfile(ctx context.Context, gw sheets.Gateway, sheetURL string, profile models.BusinessProfile) error {
	table, err := s.openBusiness(ctx, gw, sheetURL)
	if err != nil {
		return err
	}
	if err := table.WriteRows(ctx, record.ProfileToRows(profile)); err != nil {
		return fmt.Errorf("error writing business details: %w", err)
	}
	return nil
}

func (s *DefaultService) openBusiness(ctx context.Context, gw sheets.Gateway, sheetURL string) (*rows.Mutator, error) {
	id, ok := sheets.SpreadsheetID(sheetURL)
	if !ok {
		return nil, fmt.Errorf("business sheet url %q: %w", sheetURL, models.ErrNotFound)
	}
	return rows.Open(ctx, gw, id, businessLayout)
}

func spreadsheetURL(ss *sheets.Spreadsheet) string {
	if ss.URL != "" {
		return ss.URL
	}
	return sheets.URL(ss.ID)
}
