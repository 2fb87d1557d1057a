package media

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paracordchat/paracord/internal/config"
)

func TestIssueJoinTokenDecodesProviderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(JoinToken{Token: "abc", URL: "wss://voice.example", ExpiresAt: 1})
	}))
	defer srv.Close()

	c := New(config.Voice{HTTPURL: srv.URL, APIKey: "test-key"})

	token, err := c.IssueJoinToken(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "abc", token.Token)
	assert.Equal(t, "wss://voice.example", token.URL)
}

func TestIssueJoinTokenWrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(config.Voice{HTTPURL: srv.URL})

	_, err := c.IssueJoinToken(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestSignalForwardsPayloadAndRelaysResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signal/session_desc", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"sdp":"v=0"}`, string(body))
		_, _ = w.Write([]byte(`{"sdp":"v=0 (answer)"}`))
	}))
	defer srv.Close()

	c := New(config.Voice{HTTPURL: srv.URL})

	resp, err := c.Signal(context.Background(), "session_desc", json.RawMessage(`{"sdp":"v=0"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sdp":"v=0 (answer)"}`, string(resp))
}

func TestSignalWrapsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(config.Voice{HTTPURL: srv.URL})

	_, err := c.Signal(context.Background(), "speaker_update", json.RawMessage(`{}`))
	assert.Error(t, err)
}
