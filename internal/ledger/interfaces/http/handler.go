package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/marketledger/internal/ledger/application"
	"github.com/wyfcoding/marketledger/pkg/response"
)

// MaxPageSize 分页大小上限
const MaxPageSize = 100

// TransactionHandler 交易台账接口
type TransactionHandler struct {
	ledger *application.LedgerService
}

func NewTransactionHandler(ledger *application.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

func (h *TransactionHandler) RegisterRoutes(r *gin.RouterGroup) {
	txs := r.Group("/transactions")
	{
		txs.POST("", h.RecordTransaction)
		txs.GET("/user/:userId", h.ListTransactions)
		txs.GET("/report/:userId", h.GenerateReport)
	}
}

type recordTransactionRequest struct {
	UserID   string          `json:"userId" binding:"required"`
	Ticker   string          `json:"ticker" binding:"required"`
	Type     string          `json:"type" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (h *TransactionHandler) RecordTransaction(c *gin.Context) {
	var req recordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, http.StatusBadRequest, "invalid transaction payload: "+err.Error())
		return
	}

	tx, err := h.ledger.RecordTransaction(c.Request.Context(), application.RecordTransactionCommand{
		UserID:   req.UserID,
		Ticker:   req.Ticker,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		response.Abort(c, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > MaxPageSize {
		response.Abort(c, http.StatusBadRequest, "size must be an integer between 1 and "+strconv.Itoa(MaxPageSize))
		return
	}

	res, err := h.ledger.ListTransactions(c.Request.Context(), c.Param("userId"), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TransactionHandler) GenerateReport(c *gin.Context) {
	report, err := h.ledger.GenerateReport(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
