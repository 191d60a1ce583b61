package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dronestore/storefront/internal/application/cartsync"
	"github.com/dronestore/storefront/internal/domain/cart"
)

// stockConflictCode is the error code the cart API sends with a 409 when a
// requested quantity exceeds stock
const stockConflictCode = "ERR_INSUFFICIENT_STOCK"

// CredentialSource supplies the bearer token for cart API calls
type CredentialSource interface {
	Credential() (token string, ok bool)
}

// StaticCredential is a fixed bearer token. An empty token means none.
type StaticCredential string

// Credential implements CredentialSource
func (s StaticCredential) Credential() (string, bool) {
	return string(s), s != ""
}

// CartGateway talks to the remote cart API over HTTP
type CartGateway struct {
	config      *GatewayConfig
	httpClient  *http.Client
	credentials CredentialSource
	logger      *zap.Logger

	// fetches coalesces concurrent FetchCart calls made with the same credential
	fetches singleflight.Group
}

var _ cartsync.Gateway = (*CartGateway)(nil)

// GatewayOption configures a CartGateway
type GatewayOption func(*CartGateway)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *CartGateway) {
		g.httpClient = client
	}
}

// WithGatewayLogger sets the logger
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *CartGateway) {
		g.logger = logger
	}
}

// NewCartGateway creates a gateway with the given configuration
func NewCartGateway(config *GatewayConfig, credentials CredentialSource, opts ...GatewayOption) (*CartGateway, error) {
	if config == nil {
		return nil, ErrGatewayMissingBaseURL
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if credentials == nil {
		credentials = StaticCredential("")
	}

	g := &CartGateway{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		credentials: credentials,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.config.MaxResponseBytes <= 0 {
		g.config.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return g, nil
}

// FetchCart returns the server's cart with quantities floored to 1
func (g *CartGateway) FetchCart(ctx context.Context) ([]cart.Item, error) {
	token, ok := g.credentials.Credential()
	if !ok {
		return nil, fmt.Errorf("%w: no credential", cart.ErrAuthRequired)
	}

	// The shared call must outlive any single caller's cancellation
	ch := g.fetches.DoChan(token, func() (interface{}, error) {
		body, err := g.do(context.WithoutCancel(ctx), token, http.MethodGet, "/cart", nil)
		if err != nil {
			return nil, err
		}
		return decodeItems(body)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cart.CloneItems(res.Val.([]cart.Item)), nil
	}
}

// AddItem adds delta units of a product to the server cart
func (g *CartGateway) AddItem(ctx context.Context, id cart.ProductID, delta int) error {
	_, err := g.call(ctx, http.MethodPost, "/cart/items", addItemRequest{
		ProductID: string(id),
		Quantity:  delta,
	})
	return err
}

// SetQuantity sets the server quantity of a line. Zero deletes the line.
func (g *CartGateway) SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error {
	path := "/cart/items/" + url.PathEscape(string(id))
	if quantity <= 0 {
		_, err := g.call(ctx, http.MethodDelete, path, nil)
		return err
	}
	_, err := g.call(ctx, http.MethodPatch, path, setQuantityRequest{Quantity: quantity})
	return err
}

// ClearCart empties the server cart
func (g *CartGateway) ClearCart(ctx context.Context) error {
	_, err := g.call(ctx, http.MethodDelete, "/cart", nil)
	return err
}

func (g *CartGateway) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, ok := g.credentials.Credential()
	if !ok {
		return nil, fmt.Errorf("%w: no credential", cart.ErrAuthRequired)
	}
	return g.do(ctx, token, method, path, payload)
}

// do performs an HTTP request against the cart API and classifies the response
func (g *CartGateway) do(ctx context.Context, token, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("storefront: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	endpoint := strings.TrimRight(g.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("storefront: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", cart.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", cart.ErrTransportFailure, err)
	}

	g.logger.Debug("cart api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= 400 {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	return body, nil
}

// classifyStatus maps an error response to a cart outcome error
func classifyStatus(status int, body []byte) error {
	var env apiResponse
	var code, message string
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		code, message = env.Error.Code, env.Error.Message
	}

	se := &StatusError{Status: status, Code: code, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", cart.ErrAuthRequired, se)
	case status == http.StatusConflict && (code == "" || code == stockConflictCode):
		return fmt.Errorf("%w: %w", cart.ErrStockConflict, se)
	default:
		return fmt.Errorf("%w: %w", cart.ErrTransportFailure, se)
	}
}

// StatusError carries the HTTP status and server error code of a failed call
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

func isHTTPStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
