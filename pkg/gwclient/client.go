// Package gwclient is the client of the Solanize gateway. Every request issued by the application goes through
// Client.Do, which attaches the bearer credential and reacts to the gateway rejecting it.
package gwclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/tokenstore"
	"github.com/solanize/solanize-client/internal/utils"
)

const (
	apiPrefix      = "/api/v1"
	DefaultTimeout = 30 * time.Second
)

// UnauthorizedHandler is notified when the gateway answers 401 on an authenticated endpoint. rejectedToken is the
// token that was attached to the rejected request, empty when none was stored.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context, rejectedToken string)
}

type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Tokens     tokenstore.TokenStore
	metrics    metrics.MetricsService

	mu           sync.RWMutex
	unauthorized UnauthorizedHandler
}

func NewClient(baseURL string, tokens tokenstore.TokenStore, metricsService metrics.MetricsService) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		BaseURL:    baseURL,
		Tokens:     tokens,
		metrics:    metricsService,
	}
}

// SetUnauthorizedHandler registers the component that owns the authentication state. Without one, a rejected
// credential is simply cleared from the store.
func (c *Client) SetUnauthorizedHandler(handler UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = handler
}

func (c *Client) unauthorizedHandler() UnauthorizedHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unauthorized
}

// Do issues a request against the gateway. path is relative to the API prefix. A non-nil bodyObj is sent as JSON.
// The raw response is returned for every status code; callers own status interpretation beyond 401.
func (c *Client) Do(ctx context.Context, method, path string, bodyObj any) (*http.Response, error) {
	var reqBody io.Reader
	if bodyObj != nil {
		bodyBytes, err := json.Marshal(bodyObj)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	u, err := url.JoinPath(c.BaseURL, apiPrefix, path)
	if err != nil {
		return nil, fmt.Errorf("joining path: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	var token string
	if !isPublicEndpoint(path) {
		token, err = c.Tokens.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting stored credential: %w", err)
		}
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	endpoint := metricsEndpoint(path)
	start := time.Now()
	resp, err := c.HTTPClient.Do(request)
	c.metrics.ObserveGatewayRequestDuration(endpoint, method, time.Since(start).Seconds())
	if err != nil {
		c.metrics.IncGatewayRequests(endpoint, method, 0)
		return nil, fmt.Errorf("sending request: %w", err)
	}
	c.metrics.IncGatewayRequests(endpoint, method, resp.StatusCode)

	// A 401 without a credential still means the session is gone, another writer may have cleared the token.
	if resp.StatusCode == http.StatusUnauthorized && !isPublicEndpoint(path) {
		c.metrics.IncGatewayUnauthorized(endpoint)
		log.Ctx(ctx).Warnf("gateway rejected the credential on %s %s", method, endpoint)
		c.onUnauthorized(ctx, token)
	}

	return resp, nil
}

func (c *Client) onUnauthorized(ctx context.Context, rejectedToken string) {
	if handler := c.unauthorizedHandler(); handler != nil {
		handler.HandleUnauthorized(ctx, rejectedToken)
		return
	}

	if rejectedToken == "" {
		return
	}
	if err := c.Tokens.Clear(ctx); err != nil {
		log.Ctx(ctx).Errorf("clearing rejected credential: %v", err)
	}
}

// call issues a request and decodes a 2xx JSON response into T. Other statuses become an *APIError.
func call[T any](ctx context.Context, c *Client, method, path string, bodyObj any, operation string) (*T, error) {
	resp, err := c.Do(ctx, method, path, bodyObj)
	if err != nil {
		return nil, newNetworkError(operation, err)
	}

	if isHTTPError(resp) {
		return nil, newHTTPError(ctx, resp, operation)
	}

	result, err := parseResponseBody[T](ctx, resp.Body)
	if err != nil {
		return nil, &APIError{
			Kind:       ErrorKindUnknown,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid response while %s", operation),
			Err:        err,
		}
	}

	return result, nil
}

func parseResponseBody[T any](ctx context.Context, respBody io.ReadCloser) (*T, error) {
	defer utils.DeferredClose(ctx, respBody, "closing response body")

	respBodyBytes, err := io.ReadAll(respBody)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var response T
	err = json.Unmarshal(respBodyBytes, &response)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling response body: %w", err)
	}

	return &response, nil
}

func isHTTPError(resp *http.Response) bool {
	return resp.StatusCode < 200 || resp.StatusCode >= 300
}

// isPublicEndpoint reports whether the path belongs to the challenge-response exchange, which never carries a
// bearer credential.
func isPublicEndpoint(path string) bool {
	return strings.HasPrefix(path, challengePath+"/") || path == verifyPath
}

// metricsEndpoint replaces path parameters so metric labels have a bounded cardinality.
func metricsEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "sessions":
			segments[i] = ":id"
		case "challenge":
			segments[i] = ":address"
		}
	}
	return "/" + strings.Join(segments, "/")
}
