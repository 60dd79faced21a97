package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rongwang/invoice-sheets/internal/api"
	"github.com/rongwang/invoice-sheets/internal/auth"
	"github.com/rongwang/invoice-sheets/internal/models"
	"github.com/rongwang/invoice-sheets/internal/repository/mocks"
	"github.com/rongwang/invoice-sheets/internal/service"
	"github.com/rongwang/invoice-sheets/internal/share"
	"github.com/rongwang/invoice-sheets/internal/sheets/sheetstest"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Service    service.Service
	Repository *mocks.Repository
	Sheets     *sheetstest.Memory
	Provider   *FakeProvider
	Vault      *auth.Vault
	Sessions   *auth.Sessions

	TestUserID       string
	TestUserJWT      string
	TestAccessToken  string
	TestRefreshToken string
}

// FakeProvider is an auth.Provider returning a fixed identity
type FakeProvider struct {
	Identity *auth.Identity
	Err      error
	Revoked  []string
}

func (p *FakeProvider) AuthURL(state string) string {
	return "https://accounts.google.test/o/oauth2/auth?access_type=offline&state=" + state
}

func (p *FakeProvider) Exchange(_ context.Context, _ string) (*auth.Identity, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Identity, nil
}

func (p *FakeProvider) Revoke(_ context.Context, token string) error {
	p.Revoked = append(p.Revoked, token)
	return nil
}

// SetupTestContext wires the real service and router over an in-memory
// spreadsheet account and a mocked repository
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := new(mocks.Repository)
	mem := sheetstest.New()
	provider := &FakeProvider{}
	vault := auth.NewVault("test-vault-secret-key")
	sessions := auth.NewSessions("test-secret-key-for-sessions", time.Hour)

	svc := service.NewDefaultService(service.Dependencies{
		Repo:          repo,
		Connector:     mem,
		Provider:      provider,
		Sessions:      sessions,
		Vault:         vault,
		Shares:        share.NewService(repo, vault, mem, []byte("test-share-secret-key"), logger),
		PublicBaseURL: "http://localhost:3000",
		Logger:        logger,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandler(svc, logger).SetupRoutes(router)

	testUserID := "google-user-1"
	token, _, err := sessions.Issue(testUserID)
	require.NoError(t, err, "Failed to generate session token")

	return &TestContext{
		Router:           router,
		Service:          svc,
		Repository:       repo,
		Sheets:           mem,
		Provider:         provider,
		Vault:            vault,
		Sessions:         sessions,
		TestUserID:       testUserID,
		TestUserJWT:      token,
		TestAccessToken:  "ya29.test-access-token",
		TestRefreshToken: "1//test-refresh-token",
	}
}

// WithStoredUser makes the repository return the test user with the given
// default sheet and a sealed refresh token
func (tc *TestContext) WithStoredUser(t *testing.T, defaultSheetURL string) *models.User {
	t.Helper()
	sealed, err := tc.Vault.Seal(tc.TestRefreshToken)
	require.NoError(t, err)

	user := &models.User{
		ID:              tc.TestUserID,
		Email:           "testuser@example.com",
		Name:            "Test User",
		RefreshToken:    sealed,
		DefaultSheetURL: defaultSheetURL,
	}
	tc.Repository.On("GetUserByID", mock.Anything, tc.TestUserID).Return(user, nil).Maybe()
	return user
}

// Headers returns the auth headers of the test user
func (tc *TestContext) Headers() map[string]string {
	return AuthHeaders(tc.TestAccessToken, tc.TestUserJWT)
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with the Google access token and the session token
func AuthHeaders(accessToken, sessionToken string) map[string]string {
	return map[string]string{
		"Authorization":   fmt.Sprintf("Bearer %s", accessToken),
		api.SessionHeader: sessionToken,
	}
}

// DecodeJSON unmarshals a response body
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
