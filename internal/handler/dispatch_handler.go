package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DispatchHandler struct {
	dispatchService service.DispatchService
}

func NewDispatchHandler(dispatchService service.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService}
}

func (h *DispatchHandler) RegisterRoutes(router *gin.RouterGroup) {
	dispatch := router.Group("/api")
	{
		dispatch.GET("/dispatches", middleware.RequirePermission("dispatch.read"), h.ListDispatches)
		dispatch.POST("/dispatches", middleware.RequirePermission("dispatch.write"), h.CreateDispatch)
		dispatch.GET("/dispatches/:id", middleware.RequirePermission("dispatch.read"), h.GetDispatch)
	}
}

// ListDispatches returns paginated dispatch orders
// @Summary      List dispatches
// @Description  Retrieves a paginated list of dispatch orders with their items
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/dispatches [get]
func (h *DispatchHandler) ListDispatches(c *gin.Context) {
	p := pagination.Parse(c)

	dispatches, total, err := h.dispatchService.ListDispatches(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"dispatches": dispatches,
		"total":      total,
		"page":       p.Page,
		"limit":      p.Limit,
	}))
}

// CreateDispatch ships a set of whole stock units to a customer
// @Summary      Create dispatch
// @Description  Creates a dispatch order and the backing SALE transactions atomically; either every unit ships or none does
// @Tags         dispatches
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDispatchRequest  true  "Create Dispatch Payload"
// @Success      201      {object}  response.Response{data=service.DispatchResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/dispatches [post]
func (h *DispatchHandler) CreateDispatch(c *gin.Context) {
	var req service.CreateDispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	dispatch, err := h.dispatchService.CreateDispatch(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, dispatch))
}

// GetDispatch returns one dispatch order
// @Summary      Get dispatch
// @Description  Retrieves a dispatch order by ID including its items
// @Tags         dispatches
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Dispatch Order ID"
// @Success      200  {object}  response.Response{data=service.DispatchResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/dispatches/{id} [get]
func (h *DispatchHandler) GetDispatch(c *gin.Context) {
	dispatch, err := h.dispatchService.GetDispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, dispatch))
}
