package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/notifhub/notifhub/pkg/notification"
)

// CredentialSupplier returns the current auth token. It is consulted on every
// request so token rotation by the host application is picked up without
// re-creating the client.
type CredentialSupplier func() string

// Client talks to the notification backend over REST.
type Client struct {
	baseURL    string
	credential CredentialSupplier
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to adjust the
// request timeout or to inject a test transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a new notification API client.
func New(baseURL string, credential CredentialSupplier, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListParams filters and pages the notification list.
type ListParams struct {
	Read      *bool
	Type      notification.Type
	CompanyID string
	Page      int
	Limit     int
}

// ListResponse is the paged notification list with counter metadata.
type ListResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	Total         int                         `json:"total"`
	Page          int                         `json:"page"`
	Limit         int                         `json:"limit"`
	TotalPages    int                         `json:"totalPages"`
	UnreadCount   int                         `json:"unreadCount"`
}

// MarkAllResponse is the result of a bulk mark-read.
type MarkAllResponse struct {
	Affected    int `json:"affected"`
	UnreadCount int `json:"unreadCount"`
}

// UnreadCountResponse carries a single unread counter.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// UnreadByCompanyResponse buckets unread counters per company. The "personal"
// key counts notifications not scoped to any company.
type UnreadByCompanyResponse struct {
	CountByCompany map[string]int `json:"countByCompany"`
}

// List fetches one page of notifications.
func (c *Client) List(ctx context.Context, params ListParams) (*ListResponse, error) {
	q := url.Values{}
	if params.Read != nil {
		q.Set("read", strconv.FormatBool(*params.Read))
	}
	if params.Type != "" {
		q.Set("type", string(params.Type))
	}
	if params.CompanyID != "" {
		q.Set("companyId", params.CompanyID)
	}
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("limit", strconv.Itoa(params.Limit))

	var resp ListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("apiclient.List: %w", err)
	}
	return &resp, nil
}

// MarkRead marks a single notification as read and returns the updated record.
func (c *Client) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	var n notification.Notification
	if err := c.doRequest(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, &n); err != nil {
		return nil, fmt.Errorf("apiclient.MarkRead: %w", err)
	}
	return &n, nil
}

// MarkAllRead marks all notifications as read. A non-empty companyID limits
// the bulk operation to that company's scope.
func (c *Client) MarkAllRead(ctx context.Context, companyID string) (*MarkAllResponse, error) {
	body := map[string]string{}
	if companyID != "" {
		body["companyId"] = companyID
	}
	var resp MarkAllResponse
	if err := c.doRequest(ctx, http.MethodPatch, "/notifications/read/all", body, &resp); err != nil {
		return nil, fmt.Errorf("apiclient.MarkAllRead: %w", err)
	}
	return &resp, nil
}

// Delete removes a notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("apiclient.Delete: %w", err)
	}
	return nil
}

// UnreadCount returns the unread counter, optionally scoped to a company.
func (c *Client) UnreadCount(ctx context.Context, companyID string) (int, error) {
	path := "/notifications/unread-count"
	if companyID != "" {
		q := url.Values{}
		q.Set("companyId", companyID)
		path += "?" + q.Encode()
	}
	var resp UnreadCountResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("apiclient.UnreadCount: %w", err)
	}
	return resp.Count, nil
}

// UnreadCountByCompany returns unread counters bucketed per company.
func (c *Client) UnreadCountByCompany(ctx context.Context) (map[string]int, error) {
	var resp UnreadByCompanyResponse
	if err := c.doRequest(ctx, http.MethodGet, "/notifications/unread-count-by-company", nil, &resp); err != nil {
		return nil, fmt.Errorf("apiclient.UnreadCountByCompany: %w", err)
	}
	return resp.CountByCompany, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential != nil {
		if token := c.credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
