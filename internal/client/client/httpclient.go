package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/client/models"
	"github.com/dmitrijs2005/volunteerhub/internal/netx"
)

// HTTPClient talks to the server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
	User        struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		UserType string `json:"userType"`
	} `json:"user"`
}

// mapError turns transport failures into ErrUnavailable and auth statuses
// into the package sentinels. The server's message is kept in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *netx.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	default:
		return apiErr
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	return mapError(netx.DoJSON(ctx, c.http, method, c.baseURL+path, token, in, out))
}

func (c *HTTPClient) Register(ctx context.Context, email string, password []byte, name, userType string) error {
	req := map[string]string{
		"email":    email,
		"password": string(password),
		"name":     name,
		"userType": userType,
	}
	return c.do(ctx, http.MethodPost, "/auth/register", "", req, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email string, password []byte) (*models.Session, error) {
	req := map[string]string{"email": email, "password": string(password)}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &models.Session{
		UserID:   resp.User.ID,
		Email:    resp.User.Email,
		Name:     resp.User.Name,
		UserType: resp.User.UserType,
		Token:    resp.AccessToken,
	}, nil
}

func (c *HTTPClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context, token string) (*models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Ping probes the liveness endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}
