package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	batchService service.BatchService
}

func NewBatchHandler(batchService service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

func (h *BatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	batches := router.Group("/api")
	{
		batches.GET("/batches", middleware.RequirePermission("stock.read"), h.ListBatches)
		batches.POST("/batches", middleware.RequirePermission("stock.write"), h.CreateBatch)
		batches.GET("/batches/:id", middleware.RequirePermission("stock.read"), h.GetBatch)
	}
}

// ListBatches returns paginated production batches
// @Summary      List batches
// @Description  Retrieves a paginated list of production batches with derived stock state
// @Tags         batches
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        search      query     string  false  "Search by batch code"
// @Param        variant_id  query     string  false  "Filter by product variant"
// @Param        status      query     string  false  "Filter by batch status (ACTIVE or REVERTED)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/batches [get]
func (h *BatchHandler) ListBatches(c *gin.Context) {
	p := pagination.Parse(c)

	batches, total, err := h.batchService.ListBatches(c.Request.Context(), service.ListBatchesQuery{
		Search:    c.Query("search"),
		VariantID: c.Query("variant_id"),
		Status:    c.Query("status"),
		Page:      p.Page,
		Limit:     p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"batches": batches,
		"total":   total,
		"page":    p.Page,
		"limit":   p.Limit,
	}))
}

// CreateBatch records a new production batch with its stock units
// @Summary      Create batch
// @Description  Creates a production batch, its stock units and the opening PRODUCTION transaction atomically
// @Tags         batches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201      {object}  response.Response{data=service.BatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/batches [post]
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	batch, err := h.batchService.CreateBatch(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// GetBatch returns one batch with units and full transaction history
// @Summary      Get batch
// @Description  Retrieves a batch by ID including stock units and ledger history (reverted rows included)
// @Tags         batches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Batch ID"
// @Success      200  {object}  response.Response{data=service.BatchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/batches/{id} [get]
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.batchService.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}
