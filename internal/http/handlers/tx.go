package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dileep812/credit-score/internal/gateway"
)

// TxService is the write gateway's operation set; satisfied by
// *gateway.Gateway. All fields arrive as strings because they are raw form
// input; the gateway owns validation and conversion.
type TxService interface {
	Register(ctx context.Context, name string) (*gateway.Result, error)
	Repay(ctx context.Context, loanID, amount string) (*gateway.Result, error)
	RequestLoan(ctx context.Context, amount, interestRate, durationDays, reason string) (*gateway.Result, error)
	Stake(ctx context.Context, amount string) (*gateway.Result, error)
	Unstake(ctx context.Context, amount string) (*gateway.Result, error)
	RecordDefault(ctx context.Context, loanID string) (*gateway.Result, error)
	RecordLatePayment(ctx context.Context, loanID string) (*gateway.Result, error)
	ApproveRequest(ctx context.Context, borrower, requestIndex, funding string) (*gateway.Result, error)
	RejectRequest(ctx context.Context, borrower, requestIndex, reason string) (*gateway.Result, error)
	UpdateOracleScore(ctx context.Context, user, score string) (*gateway.Result, error)
}

type JournalReader interface {
	ListByAddress(ctx context.Context, address string, limit int) ([]gateway.JournalEntry, error)
}

type TxHandler struct {
	service TxService
	journal JournalReader
}

func NewTxHandler(service TxService, journal JournalReader) *TxHandler {
	return &TxHandler{service: service, journal: journal}
}

func (h *TxHandler) respond(c *gin.Context, res *gateway.Result, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TxHandler) Register(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.Register(c.Request.Context(), req.Name)
	h.respond(c, res, err)
}

func (h *TxHandler) Repay(c *gin.Context) {
	var req struct {
		LoanID string `json:"loanId"`
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.Repay(c.Request.Context(), req.LoanID, req.Amount)
	h.respond(c, res, err)
}

func (h *TxHandler) RequestLoan(c *gin.Context) {
	var req struct {
		Amount       string `json:"amount"`
		InterestRate string `json:"interestRate"`
		DurationDays string `json:"durationDays"`
		Reason       string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.RequestLoan(c.Request.Context(), req.Amount, req.InterestRate, req.DurationDays, req.Reason)
	h.respond(c, res, err)
}

func (h *TxHandler) Stake(c *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.Stake(c.Request.Context(), req.Amount)
	h.respond(c, res, err)
}

func (h *TxHandler) Unstake(c *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.Unstake(c.Request.Context(), req.Amount)
	h.respond(c, res, err)
}

func (h *TxHandler) RecordDefault(c *gin.Context) {
	var req struct {
		LoanID string `json:"loanId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.RecordDefault(c.Request.Context(), req.LoanID)
	h.respond(c, res, err)
}

func (h *TxHandler) RecordLatePayment(c *gin.Context) {
	var req struct {
		LoanID string `json:"loanId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.RecordLatePayment(c.Request.Context(), req.LoanID)
	h.respond(c, res, err)
}

func (h *TxHandler) ApproveRequest(c *gin.Context) {
	var req struct {
		Borrower     string `json:"borrower"`
		RequestIndex string `json:"requestIndex"`
		Funding      string `json:"funding"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.ApproveRequest(c.Request.Context(), req.Borrower, req.RequestIndex, req.Funding)
	h.respond(c, res, err)
}

func (h *TxHandler) RejectRequest(c *gin.Context) {
	var req struct {
		Borrower     string `json:"borrower"`
		RequestIndex string `json:"requestIndex"`
		Reason       string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.RejectRequest(c.Request.Context(), req.Borrower, req.RequestIndex, req.Reason)
	h.respond(c, res, err)
}

func (h *TxHandler) UpdateOracleScore(c *gin.Context) {
	var req struct {
		Address string `json:"address"`
		Score   string `json:"score"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	res, err := h.service.UpdateOracleScore(c.Request.Context(), req.Address, req.Score)
	h.respond(c, res, err)
}

// ListJournal returns the session address's own submissions, newest first.
func (h *TxHandler) ListJournal(c *gin.Context) {
	v, ok := c.Get("wallet_address")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	address, _ := v.(string)

	limit, _ := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("limit", "50")))
	items, err := h.journal.ListByAddress(c.Request.Context(), strings.ToLower(address), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_journal_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
