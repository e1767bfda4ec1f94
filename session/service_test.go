package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pipelinecrm/go-auth-client/session"
	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProfile = session.UserProfile{
	ID:          1,
	Email:       "jane@example.com",
	FirstName:   "Jane",
	LastName:    "Doe",
	Role:        session.RoleCloser,
	WorkspaceID: 7,
}

// testFixture holds the service under test and its collaborators.
type testFixture struct {
	service *session.Service
	store   *tokenstore.MemoryStore
	server  *httptest.Server
}

func setupTestFixture(t *testing.T, handler http.Handler) *testFixture {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokenstore.NewMemoryStore()
	service, err := session.NewService(server.URL, store)
	require.NoError(t, err)

	return &testFixture{service: service, store: store, server: server}
}

func writeSession(t *testing.T, w http.ResponseWriter, access, refresh string) {
	t.Helper()

	err := json.NewEncoder(w).Encode(session.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         testProfile,
	})
	require.NoError(t, err)
}

// countingDoer counts requests; used to prove an operation made no calls.
type countingDoer struct {
	calls int
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, errors.New("unexpected network call")
}

func TestNewServiceValidation(t *testing.T) {
	_, err := session.NewService("", tokenstore.NewMemoryStore())
	require.Error(t, err)

	_, err = session.NewService("http://localhost", nil)
	require.Error(t, err)
}

func TestLoginPersistsFullTriple(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var creds session.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "jane@example.com", creds.Email)

		writeSession(t, w, "access-1", "refresh-1")
	}))

	sess, err := f.service.Login(context.Background(), session.Credentials{
		Email:    "jane@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-1", sess.AccessToken)
	assert.Equal(t, testProfile, sess.User)

	access, ok := f.store.Get(tokenstore.FieldAccessToken)
	require.True(t, ok)
	assert.Equal(t, "access-1", access)

	refresh, ok := f.store.Get(tokenstore.FieldRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)

	rawUser, ok := f.store.Get(tokenstore.FieldUser)
	require.True(t, ok)
	var stored session.UserProfile
	require.NoError(t, json.Unmarshal([]byte(rawUser), &stored))
	assert.Equal(t, testProfile, stored)
}

func TestLoginFailurePropagatesAPIError(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))

	_, err := f.service.Login(context.Background(), session.Credentials{
		Email:    "jane@example.com",
		Password: "wrong",
	})
	require.Error(t, err)

	var apiErr *session.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	assert.False(t, f.service.IsAuthenticated())
}

func TestRegisterPersistsSession(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)

		var reg session.Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		require.Equal(t, "Acme", reg.WorkspaceName)

		writeSession(t, w, "access-1", "refresh-1")
	}))

	_, err := f.service.Register(context.Background(), session.Registration{
		Email:         "jane@example.com",
		Password:      "password123",
		FirstName:     "Jane",
		LastName:      "Doe",
		WorkspaceName: "Acme",
	})
	require.NoError(t, err)
	assert.True(t, f.service.IsAuthenticated())
}

func TestLogoutClearsStore(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	f.store.SetAll(tokenstore.Session{AccessToken: "a", RefreshToken: "r", User: "{}"})

	f.service.Logout(context.Background())

	assert.False(t, f.service.IsAuthenticated())
	_, ok := f.store.Get(tokenstore.FieldRefreshToken)
	assert.False(t, ok)
}

func TestLogoutClearsStoreWhenRemoteFails(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kill    bool
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name:    "network failure",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			kill:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, tt.handler)
			f.store.SetAll(tokenstore.Session{AccessToken: "a", RefreshToken: "r", User: "{}"})
			if tt.kill {
				f.server.Close()
			}

			f.service.Logout(context.Background())

			for _, field := range []tokenstore.Field{
				tokenstore.FieldAccessToken,
				tokenstore.FieldRefreshToken,
				tokenstore.FieldUser,
			} {
				_, ok := f.store.Get(field)
				assert.False(t, ok, "field %s should be cleared", field)
			}
		})
	}
}

func TestRefreshTokenWithoutStoredTokenMakesNoCall(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	doer := &countingDoer{}
	service, err := session.NewService("http://auth.invalid", store, session.WithHTTPClient(doer))
	require.NoError(t, err)

	_, err = service.RefreshToken(context.Background())
	require.ErrorIs(t, err, session.NoRefreshTokenErr)
	assert.Zero(t, doer.calls)
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "refresh-1", body.RefreshToken)

		_, _ = w.Write([]byte(`{"accessToken":"access-2","refreshToken":"refresh-2"}`))
	}))
	f.store.SetAll(tokenstore.Session{AccessToken: "access-1", RefreshToken: "refresh-1", User: "{}"})

	accessToken, err := f.service.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", accessToken)

	refresh, _ := f.store.Get(tokenstore.FieldRefreshToken)
	assert.Equal(t, "refresh-2", refresh)
}

func TestRefreshTokenFailureKeepsStaleTokens(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Refresh token expired"}`))
	}))
	f.store.SetAll(tokenstore.Session{AccessToken: "access-1", RefreshToken: "refresh-1", User: "{}"})

	_, err := f.service.RefreshToken(context.Background())
	require.Error(t, err)

	access, ok := f.store.Get(tokenstore.FieldAccessToken)
	require.True(t, ok)
	assert.Equal(t, "access-1", access)
	refresh, ok := f.store.Get(tokenstore.FieldRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)
}

func TestGetProfileOverwritesCachedUser(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/profile", r.URL.Path)
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewEncoder(w).Encode(testProfile))
	}))
	f.store.SetAll(tokenstore.Session{AccessToken: "access-1", RefreshToken: "refresh-1", User: `{"id":99}`})

	profile, err := f.service.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testProfile, *profile)

	rawUser, ok := f.store.Get(tokenstore.FieldUser)
	require.True(t, ok)
	var stored session.UserProfile
	require.NoError(t, json.Unmarshal([]byte(rawUser), &stored))
	assert.Equal(t, testProfile, stored)
}

func TestGetCurrentUser(t *testing.T) {
	f := setupTestFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(testProfile))
	}))

	profile, err := f.service.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.RoleCloser, profile.Role)
}

func TestIsAuthenticatedIsPresenceOnly(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	service, err := session.NewService("http://auth.invalid", store)
	require.NoError(t, err)

	assert.False(t, service.IsAuthenticated())

	// Any present token counts, valid or not.
	store.SetTokens("not-even-a-jwt", "r")
	assert.True(t, service.IsAuthenticated())

	store.Clear()
	assert.False(t, service.IsAuthenticated())
}

func TestLoginRefreshLogoutLeavesStoreEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeSession(t, w, "access-1", "refresh-1")
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"accessToken":"access-2","refreshToken":"refresh-2"}`))
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f := setupTestFixture(t, mux)

	ctx := context.Background()
	_, err := f.service.Login(ctx, session.Credentials{Email: "jane@example.com", Password: "p"})
	require.NoError(t, err)

	_, err = f.service.RefreshToken(ctx)
	require.NoError(t, err)

	f.service.Logout(ctx)

	for _, field := range []tokenstore.Field{
		tokenstore.FieldAccessToken,
		tokenstore.FieldRefreshToken,
		tokenstore.FieldUser,
	} {
		_, ok := f.store.Get(field)
		assert.False(t, ok, "field %s should be empty after logout", field)
	}
}
