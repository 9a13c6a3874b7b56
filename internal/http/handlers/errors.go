package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dileep812/credit-score/internal/chain"
)

// writeError maps the call-error taxonomy onto HTTP statuses. The message is
// the same human-readable text the dashboard renders.
func writeError(c *gin.Context, err error) {
	var cerr *chain.CallError
	if !errors.As(err, &cerr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	status := http.StatusInternalServerError
	switch cerr.Kind {
	case chain.KindValidation:
		status = http.StatusBadRequest
	case chain.KindPrecondition, chain.KindUserRejected:
		status = http.StatusConflict
	case chain.KindInsufficientFunds:
		status = http.StatusBadRequest
	case chain.KindContractRevert:
		status = http.StatusUnprocessableEntity
	case chain.KindTransport:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error":   string(cerr.Kind),
		"message": cerr.Message(),
	})
}
