package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", middleware.RequirePermission("audit.read"), h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves filtered audit records with Users pre-loaded
// @Summary      Get audit logs
// @Description  Retrieves a filterable, paginated audit trail of all state-changing operations
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        user_id      query     string  false  "Filter by acting user"
// @Param        action       query     string  false  "Filter by action (e.g. REVERT_TRANSACTION)"
// @Param        entity_type  query     string  false  "Filter by entity type (e.g. BATCH)"
// @Param        from         query     string  false  "Start time (RFC 3339 or YYYY-MM-DD)"
// @Param        to           query     string  false  "End time (RFC 3339 or YYYY-MM-DD)"
// @Param        search       query     string  false  "Search entity names and details"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditQuery{
		UserID:     c.Query("user_id"),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Search:     c.Query("search"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}))
}
