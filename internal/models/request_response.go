package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request models
type AuthCallbackRequest struct {
	Code string `json:"code" binding:"required"`
}

type CreateSheetRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type SheetURLRequest struct {
	SheetURL string `json:"sheetUrl" binding:"required"`
}

type InvoiceStatusRequest struct {
	SheetURL  string `json:"sheetUrl"`
	InvoiceID string `json:"invoiceId" binding:"required"`
}

type RecordRequest struct {
	SheetURL string `json:"sheetUrl"`
	Record   Record `json:"record"`
}

type RecordStatusRequest struct {
	SheetURL string `json:"sheetUrl"`
	ID       string `json:"id" binding:"required"`
	Status   string `json:"status" binding:"required"`
}

type PartialPaymentRequest struct {
	SheetURL    string          `json:"sheetUrl"`
	InvoiceID   string          `json:"invoiceId" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"paymentDate"`
}

type BulkDeleteRequest struct {
	SheetURL string   `json:"sheetUrl"`
	IDs      []string `json:"ids" binding:"required,min=1"`
}

type ShareLinkRequest struct {
	InvoiceID string `json:"invoiceId" binding:"required"`
}

// Response models
type AuthURLResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

type AuthResponse struct {
	Status      string `json:"status"`
	UserID      string `json:"userId,omitempty"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	Token       string `json:"token,omitempty"`
	ExpiresIn   int    `json:"expiresIn,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

type SheetResponse struct {
	Status string       `json:"status"`
	Sheet  TrackedSheet `json:"sheet"`
}

type SheetsResponse struct {
	Status string         `json:"status"`
	Sheets []TrackedSheet `json:"sheets"`
}

type BusinessDetailsResponse struct {
	Status   string          `json:"status"`
	SheetURL string          `json:"sheetUrl,omitempty"`
	Details  BusinessProfile `json:"details"`
}

type RecordsResponse struct {
	Status   string   `json:"status"`
	Records  []Record `json:"records"`
	Warnings []string `json:"warnings,omitempty"`
}

type RecordResponse struct {
	Status string `json:"status"`
	Record Record `json:"record"`
}

type BulkDeleteResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
}

type ShareLinkResponse struct {
	Status    string    `json:"status"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
