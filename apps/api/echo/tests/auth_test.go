package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/harmony/apps/api/echo"
	"github.com/trezcool/harmony/core/session"
)

func Test_authApi_login(t *testing.T) {
	env.Reset()

	admin := env.CreateUser(t, "Admin", "admin@test.test", true)
	naughty := env.CreateUser(t, "N Dog", "ndog@test.test", false)

	login := func(email, pwd string) []byte {
		return marshallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Missing credentials", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{name: "Unknown email", body: login("who@test.test", "Tr3ble&Bass"), wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"})},
		{name: "Wrong password", body: login(admin.Email, "nope"), wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"})},
		{name: "Inactive user", body: login(naughty.Email, "Tr3ble&Bass"), wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Signed in", body: login(" ADMIN@test.test ", "Tr3ble&Bass"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				if assert.NotNil(t, resp.Session) && assert.NotNil(t, resp.Session.User) {
					assert.Equal(t, admin.ID, resp.Session.User.ID)
				}
			}
		})
	}
}

func Test_authApi_sessionAndLogout(t *testing.T) {
	env.Reset()

	admin := env.CreateUser(t, "Admin", "admin@test.test", true)
	token := env.SignIn(t, admin)

	getSession := func(token string) *session.Session {
		req, rec := newAuthRequest(http.MethodGet, "/v1/auth/session", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var sess *session.Session
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		return sess
	}

	assert.Nil(t, getSession(""), "no token")
	assert.Nil(t, getSession("not-a-jwt"), "garbage token")

	sess := getSession(token)
	if assert.NotNil(t, sess) {
		assert.Equal(t, admin.Email, sess.User.Email)
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Nil(t, getSession(token), "signed out token")

	// signing out again is harmless
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_authApi_refreshToken(t *testing.T) {
	env.Reset()

	admin := env.CreateUser(t, "Admin", "admin@test.test", true)
	token := env.SignIn(t, admin)

	req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingSession)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, token, resp.Token)

	// the old token is revoked
	req, rec = newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
