// Package gateway owns the write path: it validates form input, submits the
// contract call, waits for the receipt and signals the view to refresh. Local
// failures (validation, missing identity) never issue a network call.
package gateway

import (
	"context"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/currency"
	"github.com/dileep812/credit-score/internal/session"
)

const (
	OpRegister          = "register"
	OpRepay             = "repay"
	OpRequestLoan       = "requestLoan"
	OpStake             = "stake"
	OpUnstake           = "unstake"
	OpRecordDefault     = "recordDefault"
	OpRecordLatePayment = "recordLatePayment"
	OpApproveRequest    = "approveRequest"
	OpRejectRequest     = "rejectRequest"
	OpUpdateOracleScore = "updateOracleScore"
)

const (
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
	// StatusPending marks a submission whose receipt never arrived before the
	// wait gave up. The transaction may still mine later.
	StatusPending = "pending"
)

// ErrBusy fires when an operation is resubmitted while its previous
// transaction is still pending. Nothing is sent for the second attempt.
var ErrBusy = chain.NewPreconditionError("transaction already in progress")

// ContractWriter is the mutating surface of the bound contract handle,
// satisfied by *chain.Contract.
type ContractWriter interface {
	Provider() chain.RPC
	RegisterUser(ctx context.Context, from, name string) (string, error)
	RecordRepayment(ctx context.Context, from string, loanID uint64, amount *big.Int) (string, error)
	RecordDefault(ctx context.Context, from string, loanID uint64) (string, error)
	RecordLatePayment(ctx context.Context, from string, loanID uint64) (string, error)
	RequestLoan(ctx context.Context, from string, amount *big.Int, interestRate, durationDays uint64, reason string) (string, error)
	ApproveLoan(ctx context.Context, from, borrower string, requestIndex uint64, funding *big.Int) (string, error)
	RejectLoan(ctx context.Context, from, borrower string, requestIndex uint64, reason string) (string, error)
	Stake(ctx context.Context, from string, amount *big.Int) (string, error)
	Unstake(ctx context.Context, from string, amount *big.Int) (string, error)
	UpdateExternalScore(ctx context.Context, from, user string, score uint64) (string, error)
}

// Session is the identity slice the gateway needs.
type Session interface {
	Identity() (session.Identity, bool)
	Role() (string, bool)
}

// Journal persists every mined submission.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

type JournalEntry struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	Operation string    `json:"operation"`
	TxHash    string    `json:"txHash"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Refresher is the view-side callback surface; satisfied by
// *view.Controller.
type Refresher interface {
	RefreshSelf(ctx context.Context) error
	RefreshAdmin(ctx context.Context) error
	ClearForm(address, operation string)
}

// Result is the success payload for a confirmed write.
type Result struct {
	Operation   string `json:"operation"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

type Gateway struct {
	session Session
	writer  func() (ContractWriter, error)
	journal Journal
	view    Refresher
	logger  *slog.Logger

	receiptInterval time.Duration
	receiptTimeout  time.Duration

	mu       sync.Mutex
	inflight map[string]bool

	now func() time.Time
}

func New(s Session, writer func() (ContractWriter, error), journal Journal, view Refresher, logger *slog.Logger, receiptInterval, receiptTimeout time.Duration) *Gateway {
	if receiptInterval <= 0 {
		receiptInterval = 2 * time.Second
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 2 * time.Minute
	}
	return &Gateway{
		session:         s,
		writer:          writer,
		journal:         journal,
		view:            view,
		logger:          logger,
		receiptInterval: receiptInterval,
		receiptTimeout:  receiptTimeout,
		inflight:        make(map[string]bool),
		now:             time.Now,
	}
}

// begin acquires the per-operation in-flight slot. Operations are guarded
// independently so a pending stake does not block a repayment.
func (g *Gateway) begin(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[op] {
		return ErrBusy
	}
	g.inflight[op] = true
	return nil
}

func (g *Gateway) end(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, op)
}

func (g *Gateway) precondition(adminOnly bool) (string, ContractWriter, error) {
	identity, ok := g.session.Identity()
	if !ok {
		return "", nil, chain.NewPreconditionError("connect your wallet first")
	}
	if adminOnly {
		role, _ := g.session.Role()
		if role != session.RoleAdmin {
			return "", nil, chain.NewPreconditionError("only the admin can perform this action")
		}
	}
	w, err := g.writer()
	if err != nil {
		return "", nil, chain.NewPreconditionError("no contract configured")
	}
	return identity.Address, w, nil
}

// submit sends the prepared call, awaits one confirmation, journals the
// outcome and triggers the refresh for the views the operation touches. The
// form clears only on success and only for this operation.
func (g *Gateway) submit(ctx context.Context, op, from string, w ContractWriter, send func(context.Context) (string, error)) (*Result, error) {
	txHash, err := send(ctx)
	if err != nil {
		cerr := chain.Classify(err)
		g.logger.Warn("transaction submission failed", "operation", op, "from", from, "error", cerr)
		return nil, cerr
	}
	g.logger.Info("transaction submitted", "operation", op, "from", from, "tx", txHash)

	waitCtx, cancel := context.WithTimeout(ctx, g.receiptTimeout)
	defer cancel()
	receipt, err := chain.WaitMined(waitCtx, w.Provider(), txHash, g.receiptInterval)
	if err != nil {
		cerr := chain.Classify(err)
		// A transport failure while waiting is not a revert: the transaction
		// may still mine after we stop watching.
		status := StatusPending
		if cerr.Kind == chain.KindContractRevert {
			status = StatusReverted
		}
		g.record(ctx, from, op, txHash, status)
		return nil, cerr
	}

	g.record(ctx, from, op, txHash, StatusConfirmed)
	g.view.ClearForm(from, op)
	g.refresh(ctx)
	return &Result{Operation: op, TxHash: txHash, BlockNumber: receipt.BlockNumber}, nil
}

func (g *Gateway) record(ctx context.Context, address, op, txHash, status string) {
	entry := JournalEntry{
		ID:        uuid.New(),
		Address:   chain.NormalizeAddress(address),
		Operation: op,
		TxHash:    txHash,
		Status:    status,
		CreatedAt: g.now(),
	}
	if err := g.journal.Record(ctx, entry); err != nil {
		g.logger.Error("journal write failed", "operation", op, "tx", txHash, "error", err)
	}
}

// refresh reloads whatever the caller's role can see once the receipt is in.
func (g *Gateway) refresh(ctx context.Context) {
	if err := g.view.RefreshSelf(ctx); err != nil {
		g.logger.Warn("post-transaction refresh failed", "error", err)
	}
	if role, ok := g.session.Role(); ok && role == session.RoleAdmin {
		if err := g.view.RefreshAdmin(ctx); err != nil {
			g.logger.Warn("post-transaction admin refresh failed", "error", err)
		}
	}
}

// ---- user operations ----

func (g *Gateway) Register(ctx context.Context, name string) (*Result, error) {
	if err := g.begin(OpRegister); err != nil {
		return nil, err
	}
	defer g.end(OpRegister)

	from, w, err := g.precondition(false)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, chain.NewValidationError("name is required")
	}
	return g.submit(ctx, OpRegister, from, w, func(ctx context.Context) (string, error) {
		return w.RegisterUser(ctx, from, name)
	})
}

func (g *Gateway) Repay(ctx context.Context, loanID, amount string) (*Result, error) {
	if err := g.begin(OpRepay); err != nil {
		return nil, err
	}
	defer g.end(OpRepay)

	from, w, err := g.precondition(false)
	if err != nil {
		return nil, err
	}
	id, err := parseLoanID(loanID)
	if err != nil {
		return nil, err
	}
	value, err := currency.ToPositiveBaseUnits(amount)
	if err != nil {
		return nil, chain.NewValidationError("amount must be a positive number")
	}
	return g.submit(ctx, OpRepay, from, w, func(ctx context.Context) (string, error) {
		return w.RecordRepayment(ctx, from, id, value)
	})
}

func (g *Gateway) RequestLoan(ctx context.Context, amount, interestRate, durationDays, reason string) (*Result, error) {
	if err := g.begin(OpRequestLoan); err != nil {
		return nil, err
	}
	defer g.end(OpRequestLoan)

	from, w, err := g.precondition(false)
	if err != nil {
		return nil, err
	}
	value, err := currency.ToPositiveBaseUnits(amount)
	if err != nil {
		return nil, chain.NewValidationError("amount must be a positive number")
	}
	rate, err := strconv.ParseUint(strings.TrimSpace(interestRate), 10, 64)
	if err != nil || rate == 0 || rate > 100 {
		return nil, chain.NewValidationError("interest rate must be between 1 and 100")
	}
	days, err := strconv.ParseUint(strings.TrimSpace(durationDays), 10, 64)
	if err != nil || days == 0 {
		return nil, chain.NewValidationError("duration must be a positive number of days")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < 5 {
		return nil, chain.NewValidationError("reason must be at least 5 characters")
	}
	return g.submit(ctx, OpRequestLoan, from, w, func(ctx context.Context) (string, error) {
		return w.RequestLoan(ctx, from, value, rate, days, reason)
	})
}

func (g *Gateway) Stake(ctx context.Context, amount string) (*Result, error) {
	if err := g.begin(OpStake); err != nil {
		return nil, err
	}
	defer g.end(OpStake)

	from, w, err := g.precondition(false)
	if err != nil {
		return nil, err
	}
	value, err := currency.ToPositiveBaseUnits(amount)
	if err != nil {
		return nil, chain.NewValidationError("amount must be a positive number")
	}
	return g.submit(ctx, OpStake, from, w, func(ctx context.Context) (string, error) {
		return w.Stake(ctx, from, value)
	})
}

func (g *Gateway) Unstake(ctx context.Context, amount string) (*Result, error) {
	if err := g.begin(OpUnstake); err != nil {
		return nil, err
	}
	defer g.end(OpUnstake)

	from, w, err := g.precondition(false)
	if err != nil {
		return nil, err
	}
	value, err := currency.ToPositiveBaseUnits(amount)
	if err != nil {
		return nil, chain.NewValidationError("amount must be a positive number")
	}
	return g.submit(ctx, OpUnstake, from, w, func(ctx context.Context) (string, error) {
		return w.Unstake(ctx, from, value)
	})
}

// ---- admin operations ----

func (g *Gateway) RecordDefault(ctx context.Context, loanID string) (*Result, error) {
	if err := g.begin(OpRecordDefault); err != nil {
		return nil, err
	}
	defer g.end(OpRecordDefault)

	from, w, err := g.precondition(true)
	if err != nil {
		return nil, err
	}
	id, err := parseLoanID(loanID)
	if err != nil {
		return nil, err
	}
	return g.submit(ctx, OpRecordDefault, from, w, func(ctx context.Context) (string, error) {
		return w.RecordDefault(ctx, from, id)
	})
}

func (g *Gateway) RecordLatePayment(ctx context.Context, loanID string) (*Result, error) {
	if err := g.begin(OpRecordLatePayment); err != nil {
		return nil, err
	}
	defer g.end(OpRecordLatePayment)

	from, w, err := g.precondition(true)
	if err != nil {
		return nil, err
	}
	id, err := parseLoanID(loanID)
	if err != nil {
		return nil, err
	}
	return g.submit(ctx, OpRecordLatePayment, from, w, func(ctx context.Context) (string, error) {
		return w.RecordLatePayment(ctx, from, id)
	})
}

// ApproveRequest funds the request it approves, so the funding amount rides
// along as the transaction value.
func (g *Gateway) ApproveRequest(ctx context.Context, borrower, requestIndex, funding string) (*Result, error) {
	if err := g.begin(OpApproveRequest); err != nil {
		return nil, err
	}
	defer g.end(OpApproveRequest)

	from, w, err := g.precondition(true)
	if err != nil {
		return nil, err
	}
	if !chain.IsHexAddress(borrower) {
		return nil, chain.NewValidationError("invalid borrower address")
	}
	idx, err := parseRequestIndex(requestIndex)
	if err != nil {
		return nil, err
	}
	value, err := currency.ToPositiveBaseUnits(funding)
	if err != nil {
		return nil, chain.NewValidationError("funding amount must be a positive number")
	}
	return g.submit(ctx, OpApproveRequest, from, w, func(ctx context.Context) (string, error) {
		return w.ApproveLoan(ctx, from, borrower, idx, value)
	})
}

func (g *Gateway) RejectRequest(ctx context.Context, borrower, requestIndex, reason string) (*Result, error) {
	if err := g.begin(OpRejectRequest); err != nil {
		return nil, err
	}
	defer g.end(OpRejectRequest)

	from, w, err := g.precondition(true)
	if err != nil {
		return nil, err
	}
	if !chain.IsHexAddress(borrower) {
		return nil, chain.NewValidationError("invalid borrower address")
	}
	idx, err := parseRequestIndex(requestIndex)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, chain.NewValidationError("rejection reason is required")
	}
	return g.submit(ctx, OpRejectRequest, from, w, func(ctx context.Context) (string, error) {
		return w.RejectLoan(ctx, from, borrower, idx, reason)
	})
}

func (g *Gateway) UpdateOracleScore(ctx context.Context, user, score string) (*Result, error) {
	if err := g.begin(OpUpdateOracleScore); err != nil {
		return nil, err
	}
	defer g.end(OpUpdateOracleScore)

	from, w, err := g.precondition(true)
	if err != nil {
		return nil, err
	}
	if !chain.IsHexAddress(user) {
		return nil, chain.NewValidationError("invalid user address")
	}
	value, err := strconv.ParseUint(strings.TrimSpace(score), 10, 64)
	if err != nil || value > 50 {
		return nil, chain.NewValidationError("score must be an integer between 0 and 50")
	}
	return g.submit(ctx, OpUpdateOracleScore, from, w, func(ctx context.Context) (string, error) {
		return w.UpdateExternalScore(ctx, from, user, value)
	})
}

func parseLoanID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, chain.NewValidationError("loan id must be a positive integer")
	}
	return id, nil
}

func parseRequestIndex(s string) (uint64, error) {
	idx, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, chain.NewValidationError("request index must be a non-negative integer")
	}
	return idx, nil
}
