// Package remote talks to a santa JSON API over HTTP.
package remote

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

	"github.com/hpungsan/santa/internal/errors"
	"github.com/hpungsan/santa/internal/wish"
)

// AdminHeader carries the moderator password on destructive requests.
const AdminHeader = "X-Admin-Password"

// DefaultTimeout bounds each request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

// Options configures the client.
type Options struct {
	BaseURL       string // e.g. http://localhost:8080/api
	AdminPassword string
	HTTPClient    *http.Client
}

// Client calls the wish store endpoints of a remote santa server.
type Client struct {
	baseURL       string
	adminPassword string
	httpClient    *http.Client
}

// NewClient validates opts and builds a client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.NewInvalidRequest("remote url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid remote url: %v", err))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:       base,
		adminPassword: opts.AdminPassword,
		httpClient:    httpClient,
	}, nil
}

// SetAdminPassword changes the password sent on deletes.
func (c *Client) SetAdminPassword(password string) {
	c.adminPassword = password
}

type wishesResponse struct {
	Wishes []wish.Wish `json:"wishes"`
}

type eventsResponse struct {
	Events []wish.Event `json:"events"`
}

type countResponse struct {
	Count int `json:"count"`
}

type errorEnvelope struct {
	Error *errors.SantaError `json:"error"`
}

func (c *Client) ListWishes(ctx context.Context) ([]wish.Wish, error) {
	var out wishesResponse
	if err := c.do(ctx, http.MethodGet, "/wishes", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Wishes == nil {
		out.Wishes = []wish.Wish{}
	}
	return out.Wishes, nil
}

func (c *Client) CreateWish(ctx context.Context, d wish.Draft) (*wish.Wish, error) {
	var out wish.Wish
	if err := c.do(ctx, http.MethodPost, "/wishes", nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteWish(ctx context.Context, id int64) error {
	q := url.Values{"id": {strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodDelete, "/wishes", q, nil, nil)
}

func (c *Client) ClaimWish(ctx context.Context, id int64) (*wish.Event, error) {
	body := map[string]any{"type": wish.EventWishClaimed, "wish_id": id}
	var out wish.Event
	if err := c.do(ctx, http.MethodPost, "/events", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentEvents(ctx context.Context, limit int) ([]wish.Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out eventsResponse
	if err := c.do(ctx, http.MethodGet, "/events", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Events == nil {
		out.Events = []wish.Event{}
	}
	return out.Events, nil
}

func (c *Client) TrackVisitor(ctx context.Context, visitorID string) error {
	return c.do(ctx, http.MethodPost, "/visitors", nil, map[string]string{"visitor_id": visitorID}, nil)
}

func (c *Client) VisitorCount(ctx context.Context) (int, error) {
	var out countResponse
	if err := c.do(ctx, http.MethodGet, "/visitors", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// do sends one request. Transport failures and 5xx responses become
// UNAVAILABLE; 4xx responses keep the server's error code.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternal(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.NewInternal(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodDelete && c.adminPassword != "" {
		req.Header.Set(AdminHeader, c.adminPassword)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewUnavailable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.NewUnavailable(err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewUnavailable(fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func decodeError(status int, data []byte) error {
	if status >= 500 {
		return errors.NewUnavailable(fmt.Errorf("server returned %d", status))
	}

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		env.Error.Status = status
		return env.Error
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewUnauthorized("admin password rejected")
	case http.StatusNotFound:
		return &errors.SantaError{Code: errors.ErrNotFound, Status: status, Message: "not found"}
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("request rejected with status %d", status))
	}
}
