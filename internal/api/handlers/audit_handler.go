package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/service"
)

type AuditHandler struct {
	auditService service.AuditService
}

func (h *AuditHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	filters := &repository.AuditFilters{
		ActionPrefix: c.Query("actionPrefix"),
	}
	if v := c.Query("actorId"); v != "" {
		filters.ActorUserID = &v
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}

	entries, err := h.auditService.List(c.Request.Context(), c.Param("id"), userID, filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := make([]models.AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toAuditResponse(e))
	}
	c.JSON(http.StatusOK, resp)
}
