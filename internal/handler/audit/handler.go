package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type AuditLister interface {
	List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error)
}

type Handler struct {
	service AuditLister
}

func NewHandler(service AuditLister) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/export", h.ExportLogs)
	}
}

func (h *Handler) filters(c *gin.Context) (*model.AuditFilters, error) {
	accountID, err := handler.QueryID(c, "account_id")
	if err != nil {
		return nil, err
	}
	entityID, err := handler.QueryID(c, "entity_id")
	if err != nil {
		return nil, err
	}
	page, err := handler.QueryPagination(c)
	if err != nil {
		return nil, err
	}

	filters := &model.AuditFilters{
		AccountID:  accountID,
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		Pagination: page,
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, errors.NewBadRequest("invalid since, expected RFC3339", err)
		}
		filters.Since = &t
	}
	return filters, nil
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters, err := h.filters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, logs, filters.Page, filters.Limit(), len(logs))
}

func (h *Handler) ExportLogs(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		httputil.RespondWithError(c, errors.NewBadRequest("unsupported format", nil))
		return
	}

	filters, err := h.filters(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_logs_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if format == "json" {
		c.JSON(http.StatusOK, logs)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	writer := csv.NewWriter(c.Writer)
	_ = writer.Write([]string{"ID", "Account ID", "Action", "Entity Type", "Entity ID", "IP Address", "Created At"})
	for _, entry := range logs {
		accountID := ""
		if entry.AccountID != nil {
			accountID = entry.AccountID.String()
		}
		_ = writer.Write([]string{
			entry.ID.String(),
			accountID,
			entry.Action,
			entry.EntityType,
			entry.EntityID.String(),
			entry.IPAddress,
			entry.CreatedAt.Format(time.RFC3339),
		})
	}
	writer.Flush()
}
