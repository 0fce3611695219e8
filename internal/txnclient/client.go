// Package txnclient talks to the transactions backend.
//
// Every response is validated in one step at this boundary: callers get
// either fully valid values or a *FetchError. Nothing is retried or cached.
package txnclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/overview"
	"expenses/internal/query"
)

const defaultTimeout = 30 * time.Second

type (
	// Page is one slice of GET /txns. NextID is the startId of the next page.
	Page struct {
		NextID string
		Txns   []core.Transaction
	}

	// Similar is the GET /txns/similar result.
	Similar struct {
		Selected []core.Transaction
		Similar  []core.Transaction
	}

	Client struct {
		baseURL    string
		httpClient *http.Client
	}

	Option func(*Client)
)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTransactions returns the first page matching f.
func (c *Client) FetchTransactions(ctx context.Context, f query.Filters, limit int) (Page, error) {
	return c.FetchPage(ctx, f, "", limit)
}

// FetchPage returns the page of transactions starting at startID.
func (c *Client) FetchPage(ctx context.Context, f query.Filters, startID string, limit int) (Page, error) {
	params := query.BuildParams(f)
	setLimit(params, limit)
	if startID != "" {
		params.Set("startId", startID)
	}
	body, err := c.do(ctx, http.MethodGet, "/txns", params, nil)
	if err != nil {
		return Page{}, err
	}
	return decodePage(body)
}

// FetchSimilar returns the transactions in f.IDs plus the ones with a
// similar description.
func (c *Client) FetchSimilar(ctx context.Context, f query.Filters, limit int) (Similar, error) {
	params := query.BuildParams(f)
	setLimit(params, limit)
	body, err := c.do(ctx, http.MethodGet, "/txns/similar", params, nil)
	if err != nil {
		return Similar{}, err
	}
	return decodeSimilar(body)
}

// PatchTags applies a tag edit. Tags are never sent for clear.
func (c *Client) PatchTags(ctx context.Context, edit core.TagEdit) error {
	payload, err := json.Marshal(edit.Normalized())
	if err != nil {
		return fmt.Errorf("marshal tag edit: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/txns/tags", nil, payload)
	return err
}

// CreateTxn stores a new transaction and returns its id.
func (c *Client) CreateTxn(ctx context.Context, t core.Transaction) (string, error) {
	t.ID = ""
	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/txns", nil, payload)
	if err != nil {
		return "", err
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := decodeJSON(body, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.ID, 10), nil
}

// FetchOverview returns the dashboard rows, "all" first.
func (c *Client) FetchOverview(ctx context.Context) ([]overview.Row, error) {
	body, err := c.do(ctx, http.MethodGet, "/txns/overview", nil, nil)
	if err != nil {
		return nil, err
	}
	var rows []overview.Row
	if err := decodeJSON(body, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchYearly returns yearly expenses per tag. Zero years are unbounded.
func (c *Client) FetchYearly(ctx context.Context, fromYear, toYear int) ([]overview.YearTag, error) {
	params := url.Values{}
	if fromYear > 0 {
		params.Set("fromYear", strconv.Itoa(fromYear))
	}
	if toYear > 0 {
		params.Set("toYear", strconv.Itoa(toYear))
	}
	body, err := c.do(ctx, http.MethodGet, "/txns/yearly", params, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Expenses []overview.YearTag `json:"expenses"`
	}
	if err := decodeJSON(body, &resp); err != nil {
		return nil, err
	}
	return resp.Expenses, nil
}

func setLimit(params url.Values, limit int) {
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("read response body: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}
