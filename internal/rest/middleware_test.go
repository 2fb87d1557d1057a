package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paracordchat/paracord/internal/appstate"
	"github.com/paracordchat/paracord/internal/auth"
	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/eventbus"
	"github.com/paracordchat/paracord/internal/media"
	"github.com/paracordchat/paracord/internal/memberindex"
	"github.com/paracordchat/paracord/internal/models"
	"github.com/paracordchat/paracord/internal/snowflake"
	"github.com/paracordchat/paracord/internal/store"
)

func testAppState(t *testing.T) *appstate.State {
	t.Helper()
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	return appstate.New(cfg, zerolog.Nop(), store.NewMemory(), eventbus.New(zerolog.Nop()), memberindex.New(), snowflake.NewGenerator(1), media.New(cfg.Voice))
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	state := testAppState(t)
	handler := RequireAuth(state)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsValidBearerToken(t *testing.T) {
	state := testAppState(t)
	token, err := auth.CreateToken(7, state.Config.JWTSecret, time.Hour)
	require.NoError(t, err)

	var seen models.Snowflake
	handler := RequireAuth(state)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, seen)
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	state := testAppState(t)
	ctx := state.Context()
	_, err := state.Store.CreateUser(ctx, models.User{ID: 1, Username: "plain"})
	require.NoError(t, err)

	token, err := auth.CreateToken(1, state.Config.JWTSecret, time.Hour)
	require.NoError(t, err)

	handler := RequireAdmin(state)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminAcceptsAdmin(t *testing.T) {
	state := testAppState(t)
	ctx := state.Context()
	_, err := state.Store.CreateUser(ctx, models.User{ID: 2, Username: "root", Flags: models.UserFlagAdmin})
	require.NoError(t, err)

	token, err := auth.CreateToken(2, state.Config.JWTSecret, time.Hour)
	require.NoError(t, err)

	handler := RequireAdmin(state)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
