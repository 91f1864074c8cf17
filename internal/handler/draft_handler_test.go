package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-maintenance-api/internal/dto"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

type draftServiceMock struct {
	item        *models.MaintenanceRequest
	err         error
	lastActor   models.Actor
	lastID      string
	lastReq     dto.DraftRequest
	lastFilter  models.MaintenanceFilter
	saveCalled  bool
	submitCalls int
}

func (m *draftServiceMock) ListMine(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	m.lastActor = actor
	m.lastFilter = filter
	return []models.MaintenanceRequest{{ID: "d1", Status: models.StatusDraft, IsDraft: true}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.err
}

func (m *draftServiceMock) Save(ctx context.Context, actor models.Actor, req dto.DraftRequest) (*models.MaintenanceRequest, error) {
	m.saveCalled = true
	m.lastActor = actor
	m.lastReq = req
	return m.item, m.err
}

func (m *draftServiceMock) Update(ctx context.Context, actor models.Actor, id string, req dto.DraftRequest) (*models.MaintenanceRequest, error) {
	m.lastID = id
	m.lastReq = req
	return m.item, m.err
}

func (m *draftServiceMock) Submit(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error) {
	m.submitCalls++
	m.lastID = id
	return m.item, m.err
}

func (m *draftServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	m.lastID = id
	return m.err
}

var requesterClaims = &models.JWTClaims{UserID: "user-1", Role: models.RoleUser, FullName: "Rita Requester"}

func TestDraftHandlerSaveAcceptsEmptyBody(t *testing.T) {
	svc := &draftServiceMock{item: &models.MaintenanceRequest{ID: "d1", Status: models.StatusDraft, IsDraft: true}}
	h := NewDraftHandler(svc)

	c, w := newMaintenanceContext(http.MethodPost, "/maintenance/draft", "", requesterClaims)
	h.Save(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.saveCalled)
	assert.Equal(t, "user-1", svc.lastActor.ID)
	assert.Nil(t, svc.lastReq.Title)
}

func TestDraftHandlerUpdate(t *testing.T) {
	svc := &draftServiceMock{item: &models.MaintenanceRequest{ID: "d1"}}
	h := NewDraftHandler(svc)

	c, w := newMaintenanceContext(http.MethodPut, "/maintenance/draft/d1", `{"title":"Broken chair"}`, requesterClaims)
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "d1", svc.lastID)
	require.NotNil(t, svc.lastReq.Title)
	assert.Equal(t, "Broken chair", *svc.lastReq.Title)
}

func TestDraftHandlerSubmitReportsFieldErrors(t *testing.T) {
	svc := &draftServiceMock{err: appErrors.WithDetails(appErrors.ErrValidation, "draft is incomplete", map[string]string{"title": "required"})}
	h := NewDraftHandler(svc)

	c, w := newMaintenanceContext(http.MethodPost, "/maintenance/draft/d1/submit", "", requesterClaims)
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, svc.submitCalls)
	assert.Contains(t, w.Body.String(), `"title":"required"`)
}

func TestDraftHandlerListMine(t *testing.T) {
	svc := &draftServiceMock{}
	h := NewDraftHandler(svc)

	c, w := newMaintenanceContext(http.MethodGet, "/maintenance/my-drafts?page=1&pageSize=5", "", requesterClaims)
	h.ListMine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	assert.Contains(t, w.Body.String(), `"isDraft":true`)
}

func TestDraftHandlerDeleteNotFound(t *testing.T) {
	svc := &draftServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "draft not found")}
	h := NewDraftHandler(svc)

	c, w := newMaintenanceContext(http.MethodDelete, "/maintenance/draft/d1", "", requesterClaims)
	c.Params = gin.Params{{Key: "id", Value: "d1"}}
	h.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

type technicianServiceMock struct {
	items []models.Technician
	hit   bool
	err   error
}

func (m *technicianServiceMock) List(ctx context.Context) ([]models.Technician, bool, error) {
	return m.items, m.hit, m.err
}

func TestTechnicianHandlerList(t *testing.T) {
	h := NewTechnicianHandler(&technicianServiceMock{items: []models.Technician{{ID: "7", Name: "Tom", Role: models.RoleStaff}}, hit: true})

	c, w := newMaintenanceContext(http.MethodGet, "/users/technicians", "", requesterClaims)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Tom"`)
	assert.Contains(t, w.Body.String(), `"cache_hit":true`)
}

func TestTechnicianHandlerListError(t *testing.T) {
	h := NewTechnicianHandler(&technicianServiceMock{err: errors.New("db down")})

	c, w := newMaintenanceContext(http.MethodGet, "/users/technicians", "", requesterClaims)
	h.List(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
