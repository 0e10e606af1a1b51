package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	{
		reports.GET("/stock-summary", middleware.RequirePermission("reports.read"), h.GetStockSummary)
		reports.GET("/reconciliation", middleware.RequirePermission("reports.read"), h.GetReconciliation)
	}
}

// GetStockSummary returns available stock grouped by variant and unit type
// @Summary      Stock summary
// @Description  Aggregates available quantities per product variant and stock type
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/reports/stock-summary [get]
func (h *ReportHandler) GetStockSummary(c *gin.Context) {
	rows, err := h.reportService.GetStockSummary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"summary": rows,
	}))
}

// GetReconciliation cross-checks batch quantities against the ledger
// @Summary      Stock reconciliation
// @Description  Compares each active batch's stored quantity against its ledger sum and unit totals
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/reports/reconciliation [get]
func (h *ReportHandler) GetReconciliation(c *gin.Context) {
	rows, err := h.reportService.GetReconciliation(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"batches": rows,
	}))
}
