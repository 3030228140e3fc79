package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"promptdoumi/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signUp(t *testing.T, app *fiber.App, email string) *models.Session {
	t.Helper()
	resp := do(t, app, jsonRequest(t, http.MethodPost, "/api/auth/signup",
		CredentialsRequest{Email: email, Password: testPassword}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body SessionResponse
	decode(t, resp, &body)
	require.NotNil(t, body.Session)
	return body.Session
}

func TestSignUp_DisabledByDefault(t *testing.T) {
	_, app := newTestServer(t, "")

	resp := do(t, app, jsonRequest(t, http.MethodPost, "/api/auth/signup",
		CredentialsRequest{Email: "admin@example.com", Password: testPassword}))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var body models.ErrorResponse
	decode(t, resp, &body)
	assert.Equal(t, "Sign-up is disabled", body.Error)
	assert.Equal(t, "/admin", body.Redirect)
}

func TestAuthFlow(t *testing.T) {
	_, app := newTestServer(t, "admin_signup=on")

	session := signUp(t, app, "Admin@Example.com")
	assert.Equal(t, "admin@example.com", session.Email)
	assert.NotEmpty(t, session.AccessToken)

	t.Run("session resolves from bearer token", func(t *testing.T) {
		resp := do(t, app, asAdmin(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), session.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body SessionResponse
		decode(t, resp, &body)
		require.NotNil(t, body.Session)
		assert.Equal(t, session.UserID, body.Session.UserID)

		resp = do(t, app, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		decode(t, resp, &body)
		assert.Nil(t, body.Session)
	})

	t.Run("me reports admin", func(t *testing.T) {
		resp := do(t, app, asAdmin(httptest.NewRequest(http.MethodGet, "/api/me", nil), session.AccessToken))
		var me MeResponse
		decode(t, resp, &me)
		assert.True(t, me.IsAdmin)
	})

	t.Run("sign in with wrong password", func(t *testing.T) {
		resp := do(t, app, jsonRequest(t, http.MethodPost, "/api/auth/signin",
			CredentialsRequest{Email: "admin@example.com", Password: "wrong"}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var body models.ErrorResponse
		decode(t, resp, &body)
		assert.Equal(t, "Invalid login credentials", body.Error)
	})

	t.Run("admin may edit and delete any post", func(t *testing.T) {
		resp, _ := submitPost(t, app, "owner", "Someone else's cat")
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		req := asAdmin(asClient(httptest.NewRequest(http.MethodGet, "/api/gallery/1/edit", nil), "stranger"), session.AccessToken)
		resp = do(t, app, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var edit EditResponse
		decode(t, resp, &edit)
		assert.Equal(t, "Someone else's cat", edit.Form.Title)

		req = asAdmin(asClient(httptest.NewRequest(http.MethodDelete, "/api/gallery/1?confirm=true", nil), "stranger"), session.AccessToken)
		resp = do(t, app, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("password update requires a session", func(t *testing.T) {
		resp := do(t, app, jsonRequest(t, http.MethodPut, "/api/auth/password", map[string]string{"password": "N3w-Secret!pass"}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = do(t, app, asAdmin(jsonRequest(t, http.MethodPut, "/api/auth/password", map[string]string{"password": "short"}), session.AccessToken))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = do(t, app, asAdmin(jsonRequest(t, http.MethodPut, "/api/auth/password", map[string]string{"password": "N3w-Secret!pass"}), session.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = do(t, app, jsonRequest(t, http.MethodPost, "/api/auth/signin",
			CredentialsRequest{Email: "admin@example.com", Password: "N3w-Secret!pass"}))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ws ticket needs admin", func(t *testing.T) {
		resp := do(t, app, httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp = do(t, app, asAdmin(httptest.NewRequest(http.MethodPost, "/api/ws/ticket", nil), session.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Ticket    string `json:"ticket"`
			ExpiresIn int    `json:"expires_in"`
		}
		decode(t, resp, &body)
		assert.NotEmpty(t, body.Ticket)
		assert.Equal(t, 30, body.ExpiresIn)
	})

	t.Run("websocket route rejects plain requests", func(t *testing.T) {
		resp := do(t, app, httptest.NewRequest(http.MethodGet, "/api/ws/auth", nil))
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	})

	t.Run("sign out revokes the token", func(t *testing.T) {
		resp := do(t, app, asAdmin(httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil), session.AccessToken))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body SessionResponse
		decode(t, resp, &body)
		assert.Nil(t, body.Session)

		resp = do(t, app, asAdmin(httptest.NewRequest(http.MethodGet, "/api/auth/session", nil), session.AccessToken))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		var errBody models.ErrorResponse
		decode(t, resp, &errBody)
		assert.Equal(t, "Token has been revoked", errBody.Error)

		// Signing out again without a session is a no-op.
		resp = do(t, app, httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
