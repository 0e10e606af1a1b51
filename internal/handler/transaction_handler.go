package handler

import (
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	ledgerService service.LedgerService
	revertService service.RevertService
}

func NewTransactionHandler(ledgerService service.LedgerService, revertService service.RevertService) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService, revertService: revertService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	tx := router.Group("/api")
	{
		tx.GET("/transactions", middleware.RequirePermission("stock.read"), h.ListTransactions)
		tx.POST("/transactions", middleware.RequirePermission("stock.write"), h.ApplyTransaction)
		tx.POST("/transactions/revert", middleware.RequirePermission("stock.revert"), h.RevertTransactions)
		tx.GET("/transactions/revert/:id", middleware.RequirePermission("stock.revert"), h.GetRevertOperation)
	}
}

type revertRequest struct {
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1"`
}

// ListTransactions returns the filtered ledger
// @Summary      List transactions
// @Description  Retrieves a paginated, filterable view of the stock ledger
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        page              query     int     false  "Page number (default 1)"
// @Param        limit             query     int     false  "Number of items per page (default 20)"
// @Param        batch_id          query     string  false  "Filter by batch"
// @Param        unit_id           query     string  false  "Filter by stock unit"
// @Param        type              query     string  false  "Filter by transaction type"
// @Param        include_reverted  query     bool    false  "Include soft-deleted (reverted) rows"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	p := pagination.Parse(c)
	includeReverted, _ := strconv.ParseBool(c.DefaultQuery("include_reverted", "false"))

	transactions, total, err := h.ledgerService.List(c.Request.Context(), service.ListTransactionsQuery{
		BatchID:         c.Query("batch_id"),
		UnitID:          c.Query("unit_id"),
		Type:            c.Query("type"),
		IncludeReverted: includeReverted,
		Page:            p.Page,
		Limit:           p.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"total":        total,
		"page":         p.Page,
		"limit":        p.Limit,
	}))
}

// ApplyTransaction records a stock movement against a batch
// @Summary      Apply transaction
// @Description  Appends a transaction (SALE, CUT_ROLL, ADJUSTMENT, RETURN, TRANSFER, INTERNAL_USE) to the ledger inside one DB transaction
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ApplyTransactionRequest  true  "Transaction Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) ApplyTransaction(c *gin.Context) {
	var req service.ApplyTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	tx, err := h.ledgerService.Apply(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// RevertTransactions reverts a set of transactions independently
// @Summary      Revert transactions
// @Description  Reverts each listed transaction in its own DB transaction; per-id failures do not abort the rest. Returns the operation id for polling plus the immediate result.
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.revertRequest  true  "Transaction IDs to revert"
// @Success      200      {object}  response.Response{data=service.RevertResult}
// @Failure      400      {object}  response.Response
// @Router       /api/transactions/revert [post]
func (h *TransactionHandler) RevertTransactions(c *gin.Context) {
	var req revertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := c.GetString("userID")

	result, err := h.revertService.Revert(c.Request.Context(), userID, req.TransactionIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetRevertOperation returns the server-side status of a revert operation
// @Summary      Get revert operation
// @Description  Polls a revert operation; the stored status is authoritative even if the original response was lost
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Revert Operation ID"
// @Success      200  {object}  response.Response{data=service.RevertOperationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/transactions/revert/{id} [get]
func (h *TransactionHandler) GetRevertOperation(c *gin.Context) {
	op, err := h.revertService.GetOperation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, op))
}
