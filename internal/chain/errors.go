package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindPrecondition      ErrorKind = "precondition"
	KindUserRejected      ErrorKind = "user_rejected"
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindContractRevert    ErrorKind = "contract_revert"
	KindTransport         ErrorKind = "transport"
)

// Provider error codes defined by EIP-1193 / EIP-3085.
const (
	CodeUserRejected = 4001
	CodeUnknownChain = 4902
)

// errorSelector is the 4-byte selector of Error(string).
const errorSelector = "08c379a0"

type CallError struct {
	Kind   ErrorKind
	Reason string
	err    error
}

func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return string(e.Kind)
}

func (e *CallError) Unwrap() error { return e.err }

// Message is the human-readable form surfaced to the dashboard. A revert
// reason from the contract is preferred verbatim; raw transport errors are
// never exposed.
func (e *CallError) Message() string {
	switch e.Kind {
	case KindUserRejected:
		return "User rejected transaction"
	case KindInsufficientFunds:
		return "Insufficient funds for transaction"
	case KindContractRevert:
		if e.Reason != "" {
			return e.Reason
		}
		return "Transaction failed"
	case KindValidation, KindPrecondition:
		return e.Reason
	default:
		return "Network error - please try again"
	}
}

func NewValidationError(reason string) *CallError {
	return &CallError{Kind: KindValidation, Reason: reason}
}

func NewPreconditionError(reason string) *CallError {
	return &CallError{Kind: KindPrecondition, Reason: reason}
}

// RPCError is a JSON-RPC error object returned by the provider or node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Classify maps an RPC-layer failure onto the dashboard error taxonomy.
func Classify(err error) *CallError {
	if err == nil {
		return nil
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch {
		case rpcErr.Code == CodeUserRejected:
			return &CallError{Kind: KindUserRejected, err: err}
		case strings.Contains(strings.ToLower(rpcErr.Message), "insufficient funds"):
			return &CallError{Kind: KindInsufficientFunds, err: err}
		case strings.Contains(strings.ToLower(rpcErr.Message), "execution reverted") || strings.Contains(strings.ToLower(rpcErr.Message), "revert"):
			return &CallError{Kind: KindContractRevert, Reason: revertReason(rpcErr), err: err}
		}
		return &CallError{Kind: KindTransport, err: err}
	}
	return &CallError{Kind: KindTransport, err: err}
}

// revertReason extracts the Error(string) payload from revert data, falling
// back to the reason the node embedded in its message, if any.
func revertReason(rpcErr *RPCError) string {
	if reason, ok := decodeRevertData(rpcErr.Data); ok {
		return reason
	}
	msg := rpcErr.Message
	if i := strings.Index(strings.ToLower(msg), "execution reverted:"); i >= 0 {
		return strings.TrimSpace(msg[i+len("execution reverted:"):])
	}
	return ""
}

func decodeRevertData(data string) (string, bool) {
	clean := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(data)), "0x")
	if !strings.HasPrefix(clean, errorSelector) {
		return "", false
	}
	raw, err := hex.DecodeString(clean[len(errorSelector):])
	if err != nil || len(raw) < 64 {
		return "", false
	}
	// word 0: offset (always 0x20), word 1: string length, then bytes.
	length := bigFromBytes(raw[32:64])
	if !length.IsInt64() {
		return "", false
	}
	n := int(length.Int64())
	if n < 0 || 64+n > len(raw) {
		return "", false
	}
	return string(raw[64 : 64+n]), true
}
