package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// messagePageSize caps one message listing. Messages beyond the cap are left
// for a later run; there is no pagination loop.
const messagePageSize = 500

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api returned %d: %s", e.StatusCode, e.Body)
}

// Client is a minimal typed client for the Graph mail endpoints. The caller
// supplies an access token per request; the client holds no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a Graph client against the public v1.0 endpoint.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, accessToken, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &APIError{StatusCode: res.StatusCode, Body: string(payload)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// ListMailFolders returns the user's top-level mail folders.
func (c *Client) ListMailFolders(ctx context.Context, accessToken string) ([]MailFolder, error) {
	var res listResponse[MailFolder]
	if err := c.do(ctx, accessToken, http.MethodGet, "/me/mailFolders", nil, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// GetInbox resolves the well-known inbox folder.
func (c *Client) GetInbox(ctx context.Context, accessToken string) (MailFolder, error) {
	var folder MailFolder
	err := c.do(ctx, accessToken, http.MethodGet, "/me/mailFolders/inbox", nil, &folder)
	return folder, err
}

// ListMessages returns up to messagePageSize messages from a folder.
func (c *Client) ListMessages(ctx context.Context, accessToken, folderID string) ([]Message, error) {
	var res listResponse[Message]
	path := fmt.Sprintf("/me/mailFolders/%s/messages?$top=%d", folderID, messagePageSize)
	if err := c.do(ctx, accessToken, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// MoveMessage moves one message into the destination folder.
func (c *Client) MoveMessage(ctx context.Context, accessToken, messageID, destinationID string) error {
	path := fmt.Sprintf("/me/messages/%s/move", messageID)
	return c.do(ctx, accessToken, http.MethodPost, path, moveRequest{DestinationID: destinationID}, nil)
}

// ListInboxRules returns the user's inbox message rules.
func (c *Client) ListInboxRules(ctx context.Context, accessToken string) ([]MessageRule, error) {
	var res listResponse[MessageRule]
	if err := c.do(ctx, accessToken, http.MethodGet, "/me/mailFolders/inbox/messageRules", nil, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// DeleteInboxRule removes one inbox message rule.
func (c *Client) DeleteInboxRule(ctx context.Context, accessToken, ruleID string) error {
	path := fmt.Sprintf("/me/mailFolders/inbox/messageRules/%s", ruleID)
	return c.do(ctx, accessToken, http.MethodDelete, path, nil, nil)
}
