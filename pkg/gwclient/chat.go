package gwclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/solanize/solanize-client/internal/utils"
	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const sessionsPath = "/chat/sessions"

type ChatAPI interface {
	ListSessions(ctx context.Context) ([]types.Session, error)
	CreateSession(ctx context.Context, title string) (*types.Session, error)
	ListMessages(ctx context.Context, sessionID string) ([]types.Message, error)
	SendMessage(ctx context.Context, sessionID string, req types.SendMessageRequest) (*types.SendMessageResponse, error)
	// DeleteSession succeeds when the session no longer exists on the gateway.
	DeleteSession(ctx context.Context, sessionID string) error
	Health(ctx context.Context) (*types.HealthResponse, error)
	Models(ctx context.Context) ([]string, error)
}

var _ ChatAPI = (*Client)(nil)

func sessionPath(sessionID string) string {
	return sessionsPath + "/" + url.PathEscape(sessionID)
}

func (c *Client) ListSessions(ctx context.Context) ([]types.Session, error) {
	sessions, err := call[[]types.Session](ctx, c, http.MethodGet, sessionsPath, nil, "fetching sessions")
	if err != nil {
		return nil, err
	}
	return *sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	return call[types.Session](ctx, c, http.MethodPost, sessionsPath, types.CreateSessionRequest{Title: title}, "creating session")
}

func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	messages, err := call[[]types.Message](ctx, c, http.MethodGet, sessionPath(sessionID)+"/messages", nil, "fetching messages")
	if err != nil {
		return nil, err
	}
	return *messages, nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID string, req types.SendMessageRequest) (*types.SendMessageResponse, error) {
	return call[types.SendMessageResponse](ctx, c, http.MethodPost, sessionPath(sessionID)+"/messages", req, "sending message")
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	const operation = "deleting session"
	resp, err := c.Do(ctx, http.MethodDelete, sessionPath(sessionID), nil)
	if err != nil {
		return newNetworkError(operation, err)
	}

	if isHTTPError(resp) && resp.StatusCode != http.StatusNotFound {
		return newHTTPError(ctx, resp, operation)
	}

	utils.DeferredClose(ctx, resp.Body, "closing response body")
	return nil
}

func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	return call[types.HealthResponse](ctx, c, http.MethodGet, "/chat/health", nil, "checking health")
}

func (c *Client) Models(ctx context.Context) ([]string, error) {
	models, err := call[[]string](ctx, c, http.MethodGet, "/chat/models", nil, "fetching models")
	if err != nil {
		return nil, err
	}
	return *models, nil
}
