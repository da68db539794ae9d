package gwclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

const (
	challengePath = "/auth/challenge"
	verifyPath    = "/auth/verify"
	refreshPath   = "/auth/refresh"
)

type AuthAPI interface {
	// Challenge requests a challenge that the wallet must sign to prove ownership of walletAddress.
	Challenge(ctx context.Context, walletAddress string) (string, error)
	// Verify exchanges a signed challenge for a bearer token.
	Verify(ctx context.Context, req types.VerifyRequest) (string, error)
	// RefreshToken rotates the stored bearer token and returns the new one.
	RefreshToken(ctx context.Context) (string, error)
}

var _ AuthAPI = (*Client)(nil)

var errEmptyAuthPayload = errors.New("the gateway response has no value")

func (c *Client) Challenge(ctx context.Context, walletAddress string) (string, error) {
	const operation = "requesting challenge"
	resp, err := call[types.ChallengeResponse](ctx, c, http.MethodPost, challengePath+"/"+url.PathEscape(walletAddress), nil, operation)
	if err != nil {
		return "", err
	}

	if resp.Value() == "" {
		return "", &APIError{Kind: ErrorKindUnknown, StatusCode: http.StatusOK, Message: "no challenge received from the gateway", Err: errEmptyAuthPayload}
	}
	return resp.Value(), nil
}

func (c *Client) Verify(ctx context.Context, req types.VerifyRequest) (string, error) {
	const operation = "verifying signature"
	resp, err := call[types.TokenResponse](ctx, c, http.MethodPost, verifyPath, req, operation)
	if err != nil {
		return "", err
	}

	if resp.Value() == "" {
		return "", &APIError{Kind: ErrorKindUnknown, StatusCode: http.StatusOK, Message: "no token received from the gateway", Err: errEmptyAuthPayload}
	}
	return resp.Value(), nil
}

func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	const operation = "refreshing token"
	resp, err := call[types.TokenResponse](ctx, c, http.MethodPost, refreshPath, nil, operation)
	if err != nil {
		return "", err
	}

	if resp.Value() == "" {
		return "", &APIError{Kind: ErrorKindUnknown, StatusCode: http.StatusOK, Message: "no token received from the gateway", Err: errEmptyAuthPayload}
	}
	return resp.Value(), nil
}
