package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects which tab of a tracked spreadsheet a record lives in
type Kind string

const (
	KindInvoice   Kind = "invoice"
	KindQuotation Kind = "quotation"
)

// Record statuses. Invoices and quotations share most of the vocabulary.
const (
	StatusDraft         = "Draft"
	StatusPending       = "Pending"
	StatusSent          = "Sent"
	StatusPaid          = "Paid"
	StatusPartiallyPaid = "Partially Paid"
	StatusOverdue       = "Overdue"
	StatusCancelled     = "Cancelled"
)

// Templates a record can be rendered with
const (
	TemplateModern  = "modern"
	TemplateClassic = "classic"
	TemplateMinimal = "minimal"
	TemplateElegant = "elegant"
)

// User represents a signed-in Google account known to the relational store
type User struct {
	ID              string    `db:"id" json:"id"`
	Email           string    `db:"email" json:"email"`
	Name            string    `db:"name" json:"name"`
	RefreshToken    string    `db:"refresh_token" json:"-"` // sealed, never returned in JSON
	DefaultSheetURL string    `db:"default_sheet_url" json:"defaultSheetUrl"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Customer is the billed party of a record
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// LineItem is one billable line of a record
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Record is an invoice or a quotation persisted as one spreadsheet row
type Record struct {
	ID              string           `json:"id"`
	Date            string           `json:"date"`
	DueDate         string           `json:"dueDate"`
	Customer        Customer         `json:"customer"`
	Items           []LineItem       `json:"items"`
	Amount          decimal.Decimal  `json:"amount"`
	Notes           string           `json:"notes"`
	Template        string           `json:"template"`
	Status          string           `json:"status"`
	PaidAmount      *decimal.Decimal `json:"paidAmount,omitempty"`
	LastPaymentDate string           `json:"lastPaymentDate,omitempty"`
}

// TrackedSheet is one row of the user's Master Registry
type TrackedSheet struct {
	SheetID     string `json:"sheetId"`
	Name        string `json:"name"`
	CreatedDate string `json:"createdDate"`
	Description string `json:"description"`
	SheetURL    string `json:"sheetUrl"`
	IsDefault   bool   `json:"isDefault"`
}

// Tracker identifies the Master Registry spreadsheet itself
type Tracker struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// ShareToken grants anonymous read access to exactly one record
type ShareToken struct {
	ID        string    `db:"id" json:"id"`
	Token     string    `db:"token" json:"token"`
	RecordID  string    `db:"record_id" json:"recordId"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// BusinessProfile is the singleton Field/Value table of a user's company details
type BusinessProfile struct {
	CompanyName  string `json:"companyName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	TaxID        string `json:"taxId"`
}

// Caller is the authenticated identity a request acts as
type Caller struct {
	UserID      string
	AccessToken string
}
