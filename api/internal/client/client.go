// Package client is the Go counterpart of the inventory web UI's API layer: every
// request and response body travels through the sealed channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockroom/api/internal/core/domain"
	"stockroom/api/internal/infrastructure/crypto"
)

// fallbackMessage is reported when an error body cannot be opened or parsed.
const fallbackMessage = "An error occurred"

// Transport sends one HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL   string
	transport Transport
	sealer    domain.Sealer
}

type Option func(*Client)

func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

func WithSealer(s domain.Sealer) Option {
	return func(c *Client) { c.sealer = s }
}

// New builds a client for baseURL (e.g. "http://localhost:8000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: &http.Client{Timeout: 30 * time.Second},
		sealer:    crypto.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do seals in (when non-nil), sends the request, and opens the answer into out.
// An empty response body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		sealed, err := c.sealer.Seal(string(raw))
		if err != nil {
			return fmt.Errorf("seal request: %w", err)
		}
		body = strings.NewReader(sealed)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", crypto.ContentType)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.transport.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	raw = bytes.TrimSpace(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: c.errorMessage(raw)}
	}

	if len(raw) == 0 {
		return nil
	}

	plain, err := c.sealer.Open(string(raw))
	if err != nil {
		return fmt.Errorf("open response: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(plain), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) errorMessage(raw []byte) string {
	if len(raw) == 0 {
		return fallbackMessage
	}
	plain, err := c.sealer.Open(string(raw))
	if err != nil {
		return fallbackMessage
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(plain), &body); err != nil || body.Message == "" {
		return fallbackMessage
	}
	return body.Message
}

// ==============================================================================
// Groups
// ==============================================================================

func (c *Client) ListGroups(ctx context.Context) ([]domain.ProductGroup, error) {
	var out []domain.ProductGroup
	err := c.do(ctx, http.MethodGet, "/groups", nil, &out)
	return out, err
}

func (c *Client) GetGroup(ctx context.Context, id int64) (*domain.ProductGroup, error) {
	var out domain.ProductGroup
	if err := c.do(ctx, http.MethodGet, "/groups/"+itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateGroup(ctx context.Context, g domain.ProductGroup) (*domain.ProductGroup, error) {
	var out domain.ProductGroup
	if err := c.do(ctx, http.MethodPost, "/groups", groupBody(g), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateGroup(ctx context.Context, id int64, g domain.ProductGroup) (*domain.ProductGroup, error) {
	var out domain.ProductGroup
	if err := c.do(ctx, http.MethodPut, "/groups/"+itoa(id), groupBody(g), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+itoa(id), nil, nil)
}

func groupBody(g domain.ProductGroup) map[string]string {
	return map[string]string{"name": g.Name, "description": g.Description}
}

// ==============================================================================
// Products
// ==============================================================================

// ListProducts lists all products, or the products of groupID when it is positive.
func (c *Client) ListProducts(ctx context.Context, groupID int64) ([]domain.Product, error) {
	path := "/products"
	if groupID > 0 {
		path += "?groupId=" + itoa(groupID)
	}
	var out []domain.Product
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = 0
	var out domain.Product
	if err := c.do(ctx, http.MethodPost, "/products", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, p domain.Product) (*domain.Product, error) {
	p.ID = id
	var out domain.Product
	if err := c.do(ctx, http.MethodPut, "/products/"+itoa(id), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/products/"+itoa(id), nil, nil)
}

func (c *Client) AddStock(ctx context.Context, id, amount int64) (*domain.Product, error) {
	return c.stock(ctx, id, "add", amount)
}

func (c *Client) SellStock(ctx context.Context, id, amount int64) (*domain.Product, error) {
	return c.stock(ctx, id, "sell", amount)
}

func (c *Client) stock(ctx context.Context, id int64, op string, amount int64) (*domain.Product, error) {
	var out domain.Product
	body := map[string]int64{"amount": amount}
	if err := c.do(ctx, http.MethodPost, "/products/"+itoa(id)+"/"+op, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var out []domain.Product
	err := c.do(ctx, http.MethodGet, "/products/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

// ==============================================================================
// Statistics
// ==============================================================================

func (c *Client) TotalValue(ctx context.Context) (float64, error) {
	var out domain.TotalValue
	err := c.do(ctx, http.MethodGet, "/stats/total-value", nil, &out)
	return out.TotalValue, err
}

func (c *Client) GroupTotalValue(ctx context.Context, groupID int64) (float64, error) {
	var out domain.TotalValue
	err := c.do(ctx, http.MethodGet, "/stats/groups/"+itoa(groupID)+"/total-value", nil, &out)
	return out.TotalValue, err
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
