// Package client talks to the maintenance request API over HTTP. Client
// satisfies draft.Saver so a draft.Guard can run in a process that has no
// direct store access.
package client

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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/draft"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

// Config describes how to reach the API.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a thin JSON client for the maintenance endpoints.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *zap.Logger
}

var _ draft.Saver = (*Client)(nil)

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: u, token: strings.TrimSpace(cfg.Token), http: httpClient, logger: logger}, nil
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

// Page is one page of requests.
type Page struct {
	Items      []models.MaintenanceRequest
	Pagination *models.Pagination
}

// List fetches submitted requests matching filter.
func (c *Client) List(ctx context.Context, filter models.MaintenanceFilter) (*Page, error) {
	return c.listAt(ctx, "/maintenance", filter)
}

// ListMine fetches the caller's submitted requests.
func (c *Client) ListMine(ctx context.Context, filter models.MaintenanceFilter) (*Page, error) {
	return c.listAt(ctx, "/maintenance/mine", filter)
}

// ListDrafts fetches the caller's drafts.
func (c *Client) ListDrafts(ctx context.Context, filter models.MaintenanceFilter) (*Page, error) {
	return c.listAt(ctx, "/maintenance/my-drafts", filter)
}

// Get fetches one request.
func (c *Client) Get(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodGet, "/maintenance/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create submits a complete request straight to pending.
func (c *Client) Create(ctx context.Context, form draft.Form) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodPost, "/maintenance", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update sends a patch. Keys absent from patch are left alone on the server.
func (c *Client) Update(ctx context.Context, id string, patch map[string]interface{}) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodPut, "/maintenance/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a draft.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/maintenance/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// Assign sets the technician, or clears it when technicianID is nil.
func (c *Client) Assign(ctx context.Context, id string, technicianID *string) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	body := map[string]*string{"technicianId": technicianID}
	if _, err := c.do(ctx, http.MethodPut, "/maintenance/"+url.PathEscape(id)+"/assign", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves work forward as the assigned technician.
func (c *Client) UpdateStatus(ctx context.Context, id string, status models.MaintenanceStatus, notes *string) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	body := map[string]interface{}{"status": status}
	if notes != nil {
		body["notes"] = *notes
	}
	if _, err := c.do(ctx, http.MethodPut, "/maintenance/"+url.PathEscape(id)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel cancels a request that has not started.
func (c *Client) Cancel(ctx context.Context, id, reason string) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	body := map[string]string{"reason": reason}
	if _, err := c.do(ctx, http.MethodPost, "/maintenance/"+url.PathEscape(id)+"/cancel", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Technicians lists assignable users.
func (c *Client) Technicians(ctx context.Context) ([]models.Technician, error) {
	out := make([]models.Technician, 0)
	if _, err := c.do(ctx, http.MethodGet, "/users/technicians", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDraft saves a new draft from form.
func (c *Client) CreateDraft(ctx context.Context, form draft.Form) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodPost, "/maintenance/draft", nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDraft overwrites draft id with form.
func (c *Client) UpdateDraft(ctx context.Context, id string, form draft.Form) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodPut, "/maintenance/draft/"+url.PathEscape(id), nil, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitDraft promotes draft id to pending.
func (c *Client) SubmitDraft(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	var out models.MaintenanceRequest
	if _, err := c.do(ctx, http.MethodPost, "/maintenance/draft/"+url.PathEscape(id)+"/submit", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) listAt(ctx context.Context, path string, filter models.MaintenanceFilter) (*Page, error) {
	items := make([]models.MaintenanceRequest, 0)
	pagination, err := c.do(ctx, http.MethodGet, path, filterQuery(filter), nil, &items)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Pagination: pagination}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, reqBody, out interface{}) (*models.Pagination, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestid.HeaderKey, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("maintenance api unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to read response")
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && env.Error != nil && env.Error.Code != "" {
			if env.Error.Status == 0 {
				env.Error.Status = resp.StatusCode
			}
			return nil, env.Error
		}
		return nil, appErrors.Wrap(
			fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(raw))),
			appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, appErrors.ErrUpstream.Message,
		)
	}
	if decodeErr != nil {
		return nil, appErrors.Wrap(decodeErr, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed response")
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "malformed response")
		}
	}
	return env.Pagination, nil
}

func filterQuery(filter models.MaintenanceFilter) url.Values {
	q := url.Values{}
	if len(filter.Status) > 0 {
		parts := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			parts = append(parts, string(s))
		}
		q.Set("status", strings.Join(parts, ","))
	}
	if len(filter.Priority) > 0 {
		parts := make([]string, 0, len(filter.Priority))
		for _, p := range filter.Priority {
			parts = append(parts, string(p))
		}
		q.Set("priority", strings.Join(parts, ","))
	}
	if filter.AssignedTo != "" {
		q.Set("assignedTo", filter.AssignedTo)
	}
	if filter.RequestedBy != "" {
		q.Set("requestedBy", filter.RequestedBy)
	}
	if filter.DateFrom != nil {
		q.Set("dateFrom", filter.DateFrom.UTC().Format(time.RFC3339))
	}
	if filter.DateTo != nil {
		q.Set("dateTo", filter.DateTo.UTC().Format(time.RFC3339))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(filter.PageSize))
	}
	if filter.SortBy != "" {
		q.Set("sortBy", filter.SortBy)
	}
	if filter.SortOrder != "" {
		q.Set("sortOrder", filter.SortOrder)
	}
	return q
}
