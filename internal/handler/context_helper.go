package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/facility-maintenance-api/internal/middleware"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/response"
)

// actorFromContext returns the authenticated actor or writes a 401.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes the body into dest. An empty body is accepted when optional.
func bindJSON(c *gin.Context, dest interface{}, optional bool, message string) bool {
	if optional && (c.Request.Body == nil || c.Request.Body == http.NoBody) {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// parseMaintenanceFilter reads the list query. status and priority accept comma
// separated or repeated values; dates accept RFC3339 or YYYY-MM-DD, a bare
// dateTo covering the whole day.
func parseMaintenanceFilter(c *gin.Context) (models.MaintenanceFilter, error) {
	var filter models.MaintenanceFilter
	for _, s := range splitQuery(c.QueryArray("status")) {
		filter.Status = append(filter.Status, models.MaintenanceStatus(s))
	}
	for _, p := range splitQuery(c.QueryArray("priority")) {
		filter.Priority = append(filter.Priority, models.Priority(p))
	}
	filter.AssignedTo = strings.TrimSpace(c.Query("assignedTo"))
	filter.RequestedBy = strings.TrimSpace(c.Query("requestedBy"))

	if raw := strings.TrimSpace(c.Query("dateFrom")); raw != "" {
		from, _, err := parseDate(raw)
		if err != nil {
			return filter, appErrors.WithDetails(appErrors.ErrValidation, "invalid filter", map[string]string{"dateFrom": "must be RFC3339 or YYYY-MM-DD"})
		}
		filter.DateFrom = &from
	}
	if raw := strings.TrimSpace(c.Query("dateTo")); raw != "" {
		to, dateOnly, err := parseDate(raw)
		if err != nil {
			return filter, appErrors.WithDetails(appErrors.ErrValidation, "invalid filter", map[string]string{"dateTo": "must be RFC3339 or YYYY-MM-DD"})
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.DateTo = &to
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sortBy")
	filter.SortOrder = c.Query("sortOrder")
	return filter, nil
}

func splitQuery(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), true, nil
}
