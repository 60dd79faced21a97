package api_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/api/testutils"
	"github.com/rongwang/invoice-sheets/internal/models"
)

func TestShareLink(t *testing.T) {
	testCtx, _ := setupInvoices(t, "INV-000001", "INV-000002")

	var stored *models.ShareToken
	testCtx.Repository.On("CreateShareToken", mock.Anything, mock.AnythingOfType("*models.ShareToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.ShareToken) }).
		Return(nil).Once()

	// Test case 1: Owner creates a link
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/invoices/shared/create-link",
		models.ShareLinkRequest{InvoiceID: "INV-000001"}, testCtx.Headers())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	link := testutils.DecodeJSON[models.ShareLinkResponse](t, w)
	assert.Equal(t, "http://localhost:3000/shared/INV-000001?token="+link.Token, link.URL)
	require.NotNil(t, stored)
	assert.Equal(t, link.Token, stored.Token)

	testCtx.Repository.On("GetActiveShareToken", mock.Anything, "INV-000001", link.Token, mock.Anything).Return(stored, nil)
	testCtx.Repository.On("GetActiveShareToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, models.ErrNotFound)

	// Test case 2: Anyone with the link can view the record without auth headers
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		"/api/invoices/shared/INV-000001?token="+url.QueryEscape(link.Token), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "INV-000001", testutils.DecodeJSON[models.RecordResponse](t, w).Record.ID)
	assert.Equal(t, []string{testCtx.TestRefreshToken}, testCtx.Sheets.RefreshTokens)

	// Test case 3: The token does not open another record
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet,
		"/api/invoices/shared/INV-000002?token="+url.QueryEscape(link.Token), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Test case 4: Missing token
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/invoices/shared/INV-000001", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 5: Links only go to records that exist
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/invoices/shared/create-link",
		models.ShareLinkRequest{InvoiceID: "INV-404404"}, testCtx.Headers())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareLinkOwnerCredentialFailure(t *testing.T) {
	testCtx, _ := setupInvoices(t, "INV-000001")
	testCtx.Sheets.RefreshErr = models.ErrUnauthenticated

	testCtx.Repository.On("GetActiveShareToken", mock.Anything, "INV-000001", "deadbeef", mock.Anything).
		Return(&models.ShareToken{RecordID: "INV-000001", Token: "deadbeef", OwnerID: testCtx.TestUserID}, nil)

	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/invoices/shared/INV-000001?token=deadbeef", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "UPSTREAM_ERROR", testutils.DecodeJSON[models.ErrorResponse](t, w).Code)
}
