package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-maintenance-api/internal/draft"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	reqID  string
	body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, payload string, rec *recorded) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.auth = r.Header.Get("Authorization")
		rec.reqID = r.Header.Get(requestid.HeaderKey)
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/v1", Token: "tok"})
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestListSendsFilterAndDecodesPage(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusOK, `{"data":[{"id":"m1","status":"pending","title":"Leak"}],"pagination":{"page":2,"page_size":10,"total_count":11}}`, rec)

	page, err := c.List(context.Background(), models.MaintenanceFilter{
		Status:   []models.MaintenanceStatus{models.StatusPending, models.StatusApproved},
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m1", page.Items[0].ID)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, 11, page.Pagination.TotalCount)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/maintenance", rec.path)
	assert.Contains(t, rec.query, "status=pending%2Capproved")
	assert.Contains(t, rec.query, "page=2")
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.NotEmpty(t, rec.reqID)
}

func TestCreateDraftPostsForm(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusCreated, `{"data":{"id":"d1","status":"draft","isDraft":true,"title":"Broken chair"}}`, rec)

	saved, err := c.CreateDraft(context.Background(), draft.Form{Title: "Broken chair"})
	require.NoError(t, err)
	assert.Equal(t, "d1", saved.ID)
	assert.True(t, saved.IsDraft)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/api/v1/maintenance/draft", rec.path)
	assert.Equal(t, "Broken chair", rec.body["title"])
}

func TestAssignSendsExplicitNull(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusOK, `{"data":{"id":"m1","status":"pending"}}`, rec)

	_, err := c.Assign(context.Background(), "m1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/v1/maintenance/m1/assign", rec.path)
	value, present := rec.body["technicianId"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusNoContent, "", rec)

	require.NoError(t, c.Delete(context.Background(), "d1"))
	assert.Equal(t, http.MethodDelete, rec.method)
}

func TestServerErrorIsDecoded(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusConflict, `{"error":{"code":"INVALID_TRANSITION","message":"status transition is not allowed","status":409}}`, rec)

	_, err := c.UpdateStatus(context.Background(), "m1", models.StatusCompleted, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, "completed", rec.body["status"])
}

func TestUnexpectedResponseIsUpstream(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, rec)

	_, err := c.Get(context.Background(), "m1")
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
}

func TestUnreachableServerIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base})
	require.NoError(t, err)
	_, err = c.Technicians(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
}

func TestClientDrivesGuard(t *testing.T) {
	rec := &recorded{}
	c := newTestServer(t, http.StatusCreated, `{"data":{"id":"d9","status":"draft","isDraft":true,"title":"Leak"}}`, rec)

	guard := draft.NewGuard(c)
	guard.Update(draft.Form{Title: "Leak"})
	saved, err := guard.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d9", saved.ID)
	assert.Equal(t, "d9", guard.DraftID())
}
