// Package api is the typed client of the contacts CRUD service.
package api

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
	"time"

	"go.uber.org/zap"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// Error classes of the gateway. Every error returned by Client wraps exactly one of them.
var (
	ErrNetwork    = errors.New("contacts service unreachable")
	ErrNotFound   = errors.New("contact not found")
	ErrValidation = errors.New("contact rejected by service")
	ErrEmptyTerm  = errors.New("empty search term")
)

// Error describes a failed call
type Error struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap lets errors.Is match the gateway classes
func (e *Error) Unwrap() error { return e.Err }

// Client talks to the contacts resource rooted at baseURL
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for baseURL (e.g. http://localhost:8080/api/contatos)
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("api"),
	}
}

// List returns every contact in service order
func (c *Client) List(ctx context.Context) ([]contacts.Contact, error) {
	var out []contacts.Contact
	if err := c.do(ctx, "list", http.MethodGet, c.baseURL, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Search returns the contacts whose name matches term. Matching is up to the service.
func (c *Client) Search(ctx context.Context, term string) ([]contacts.Contact, error) {
	if term == "" {
		return nil, &Error{Op: "search", Err: ErrEmptyTerm}
	}
	u := c.baseURL + "/buscar?nome=" + url.QueryEscape(term)
	var out []contacts.Contact
	if err := c.do(ctx, "search", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Get fetches a single contact
func (c *Client) Get(ctx context.Context, id contacts.ID) (*contacts.Contact, error) {
	var out contacts.Contact
	if err := c.do(ctx, "get", http.MethodGet, c.itemURL(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create persists a draft and returns it with its assigned ID
func (c *Client) Create(ctx context.Context, draft contacts.Contact) (*contacts.Contact, error) {
	draft.ID = ""
	var out contacts.Contact
	if err := c.do(ctx, "create", http.MethodPost, c.baseURL, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the contact stored under id
func (c *Client) Update(ctx context.Context, id contacts.ID, draft contacts.Contact) (*contacts.Contact, error) {
	draft.ID = ""
	var out contacts.Contact
	if err := c.do(ctx, "update", http.MethodPut, c.itemURL(id), draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the contact stored under id
func (c *Client) Delete(ctx context.Context, id contacts.ID) error {
	return c.do(ctx, "delete", http.MethodDelete, c.itemURL(id), nil, nil)
}

// ExportAll returns a snapshot of every contact, meant for serialization
func (c *Client) ExportAll(ctx context.Context) ([]contacts.Contact, error) {
	var out []contacts.Contact
	if err := c.do(ctx, "export", http.MethodGet, c.baseURL+"/exportar", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// ImportReplace asks the service to discard its records and store list instead
func (c *Client) ImportReplace(ctx context.Context, list []contacts.Contact) error {
	return c.do(ctx, "import", http.MethodPost, c.baseURL+"/importar", nonNil(list), nil)
}

func (c *Client) itemURL(id contacts.ID) string {
	return c.baseURL + "/" + url.PathEscape(string(id))
}

// do performs one round trip. in is JSON-encoded when non-nil; out is decoded when non-nil.
func (c *Client) do(ctx context.Context, op, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("%w: marshal request: %v", ErrValidation, err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: create request: %v", ErrNetwork, err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("op", op), zap.String("url", u), zap.Error(err))
		return &Error{Op: op, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("%w: read response: %v", ErrNetwork, err)}
	}

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody)), Err: classify(resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: unmarshal response: %v", ErrNetwork, err)}
	}
	return nil
}

func classify(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrNetwork
	}
}

func nonNil(list []contacts.Contact) []contacts.Contact {
	if list == nil {
		return []contacts.Contact{}
	}
	return list
}
