package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type VariantHandler struct {
	variantService service.VariantService
}

func NewVariantHandler(variantService service.VariantService) *VariantHandler {
	return &VariantHandler{variantService: variantService}
}

func (h *VariantHandler) RegisterRoutes(router *gin.RouterGroup) {
	variants := router.Group("/api")
	{
		variants.GET("/variants", middleware.RequirePermission("catalog.read"), h.ListVariants)
		variants.POST("/variants", middleware.RequirePermission("catalog.write"), h.CreateVariant)
		variants.PUT("/variants/:id", middleware.RequirePermission("catalog.write"), h.UpdateVariant)
		variants.DELETE("/variants/:id", middleware.RequirePermission("catalog.write"), h.DeleteVariant)
	}
}

// ListVariants returns paginated product variants
// @Summary      List variants
// @Description  Retrieves a paginated list of pipe product variants
// @Tags         variants
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by variant name or code"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/variants [get]
func (h *VariantHandler) ListVariants(c *gin.Context) {
	p := pagination.Parse(c)

	variants, total, err := h.variantService.ListVariants(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"variants": variants,
		"total":    total,
		"page":     p.Page,
		"limit":    p.Limit,
	}))
}

// CreateVariant creates a product variant
// @Summary      Create variant
// @Description  Creates a new pipe product variant
// @Tags         variants
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VariantRequest  true  "Create Variant Payload"
// @Success      201      {object}  response.Response{data=service.VariantResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/variants [post]
func (h *VariantHandler) CreateVariant(c *gin.Context) {
	var req service.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	variant, err := h.variantService.CreateVariant(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, variant))
}

// UpdateVariant updates a product variant
// @Summary      Update variant
// @Description  Updates an existing product variant by ID
// @Tags         variants
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Variant ID"
// @Param        payload  body      service.VariantRequest  true  "Update Variant Payload"
// @Success      200      {object}  response.Response{data=service.VariantResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/variants/{id} [put]
func (h *VariantHandler) UpdateVariant(c *gin.Context) {
	var req service.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	variant, err := h.variantService.UpdateVariant(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, variant))
}

// DeleteVariant soft deletes a product variant
// @Summary      Delete variant
// @Description  Soft deletes a product variant by ID
// @Tags         variants
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Variant ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/variants/{id} [delete]
func (h *VariantHandler) DeleteVariant(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.variantService.DeleteVariant(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Variant deleted successfully"))
}
