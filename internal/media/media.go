// Package media is a thin façade over an external voice/media provider:
// it issues join tokens and proxies signaling metadata, treating the
// provider itself as an opaque collaborator the way the specification's
// non-goals section describes voice/media transport. Its HTTP client is
// grounded on veteran-software-discord-api-wrapper's utilities/rest.go,
// which wraps gojek/heimdall's retrying client the same way; the teacher's
// client/client.go FetchJSON wrapper grounds the response-decoding style.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/paracordchat/paracord/internal/config"
	"github.com/paracordchat/paracord/internal/models"
)

// Client issues voice join tokens against an external provider over HTTP,
// retrying transient failures with an exponential backoff the way
// utilities/rest.go configures gojek/heimdall.
type Client struct {
	http      *httpclient.Client
	baseURL   string
	apiKey    string
	apiSecret string
}

// New constructs a media Client from the voice provider section of the
// application configuration.
func New(cfg config.Voice) *Client {
	backoff := heimdall.NewExponentialBackoff(
		500*time.Millisecond, 10*time.Second, 2.0, 2*time.Millisecond,
	)
	retrier := heimdall.NewRetrier(backoff)

	return &Client{
		http: httpclient.NewClient(
			httpclient.WithHTTPTimeout(10*time.Second),
			httpclient.WithRetrier(retrier),
			httpclient.WithRetryCount(2),
		),
		baseURL:   cfg.HTTPURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// JoinToken is the credential a client uses to connect directly to the
// voice/media provider for a given channel.
type JoinToken struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	ExpiresAt int64 `json:"expires_at"`
}

// IssueJoinToken requests a join token scoped to channelID for userID.
// Errors from the provider are wrapped, not interpreted: this façade's job
// is transport, not voice-session policy.
func (c *Client) IssueJoinToken(ctx context.Context, channelID, userID models.Snowflake) (JoinToken, error) {
	body, err := json.Marshal(map[string]any{
		"channel_id": channelID.String(),
		"user_id":    userID.String(),
	})
	if err != nil {
		return JoinToken{}, fmt.Errorf("media: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", bytes.NewReader(body))
	if err != nil {
		return JoinToken{}, fmt.Errorf("media: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return JoinToken{}, fmt.Errorf("media: requesting join token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return JoinToken{}, fmt.Errorf("media: provider returned status %d", resp.StatusCode)
	}

	var token JoinToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return JoinToken{}, fmt.Errorf("media: decoding response: %w", err)
	}
	return token, nil
}

// Signal forwards one voice-signaling message (key exchange, session
// description, speaker update, subscribe) to the provider and returns its
// raw response body unparsed: the gateway only relays these bytes, it
// doesn't interpret them, matching the specification's treatment of the
// signaling payload itself as opaque.
func (c *Client) Signal(ctx context.Context, kind string, payload json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signal/"+kind, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("media: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: forwarding %s signal: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("media: provider returned status %d for %s signal", resp.StatusCode, kind)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("media: reading %s signal response: %w", kind, err)
	}
	return json.RawMessage(body), nil
}
