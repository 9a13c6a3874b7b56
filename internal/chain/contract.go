package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
)

// Typed records for every tuple the contract returns. Results are
// normalized into these immediately after each call; the positional ABI
// layout never leaks past this package.

type UserBasic struct {
	Name         string
	CreditScore  *big.Int
	IsActive     bool
	LastUpdated  int64
	StakedAmount *big.Int
}

type UserStats struct {
	TotalLoans       int64
	TotalRepayments  *big.Int
	Defaults         int64
	TotalRequests    int64
	RepaidLoansCount int64
}

type ScoreBreakdown struct {
	PaymentHistory       int64
	RepaymentConsistency int64
	LoanActivity         int64
	CollateralBonus      int64
	OracleBonus          int64
	Total                int64
}

type Loan struct {
	LoanID             uint64
	Borrower           string
	Principal          *big.Int
	InterestRate       int64
	IssueDate          int64
	DueDate            int64
	RepaidAmount       *big.Int
	TotalAmountToRepay *big.Int
	IsRepaid           bool
	IsDefaulted        bool
}

// Remaining is totalAmountToRepay - repaidAmount, clamped at zero so an
// over-repaid loan never renders a negative balance.
func (l Loan) Remaining() *big.Int {
	if l.TotalAmountToRepay == nil || l.RepaidAmount == nil {
		return new(big.Int)
	}
	remaining := new(big.Int).Sub(l.TotalAmountToRepay, l.RepaidAmount)
	if remaining.Sign() < 0 {
		return new(big.Int)
	}
	return remaining
}

type LoanRequest struct {
	RequestID    uint64
	Borrower     string
	Amount       *big.Int
	InterestRate int64
	DurationDays int64
	Reason       string
	IsApproved   bool
	IsActive     bool
}

// Pending reports whether the request is still awaiting an admin decision.
func (r LoanRequest) Pending() bool {
	return r.IsActive && !r.IsApproved
}

type HistoryEntry struct {
	ActivityType string
	Amount       *big.Int
	Description  string
	Timestamp    int64
}

// Contract is the typed binding for the credit-score contract at a fixed
// address, speaking through an RPC provider.
type Contract struct {
	rpc      RPC
	address  string
	gasLimit uint64
}

func NewContract(rpc RPC, address string, gasLimit uint64) (*Contract, error) {
	if !IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address: %q", address)
	}
	if gasLimit == 0 {
		gasLimit = 500000
	}
	return &Contract{rpc: rpc, address: NormalizeAddress(address), gasLimit: gasLimit}, nil
}

func (c *Contract) Address() string { return c.address }
func (c *Contract) Provider() RPC   { return c.rpc }

// ---- reads ----

func (c *Contract) call(ctx context.Context, data string) (*abiData, error) {
	out, err := c.rpc.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, err
	}
	return parseReturnData(out)
}

func (c *Contract) UserExists(ctx context.Context, user string) (bool, error) {
	d, err := c.call(ctx, encodeCall("userExists(address)", addressArg(user)))
	if err != nil {
		return false, err
	}
	return d.boolAt(0)
}

func (c *Contract) GetAdmin(ctx context.Context) (string, error) {
	d, err := c.call(ctx, encodeCall("getAdmin()"))
	if err != nil {
		return "", err
	}
	return d.addressAt(0)
}

func (c *Contract) GetCreditScore(ctx context.Context, user string) (*big.Int, error) {
	d, err := c.call(ctx, encodeCall("getCreditScore(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	return d.uint(0)
}

func (c *Contract) GetLoanCount(ctx context.Context) (uint64, error) {
	d, err := c.call(ctx, encodeCall("getLoanCount()"))
	if err != nil {
		return 0, err
	}
	return d.uint64At(0)
}

func (c *Contract) CalculateTotalDebt(ctx context.Context, user string) (*big.Int, error) {
	d, err := c.call(ctx, encodeCall("calculateTotalDebt(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	return d.uint(0)
}

func (c *Contract) StakeOf(ctx context.Context, user string) (*big.Int, error) {
	d, err := c.call(ctx, encodeCall("stakes(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	return d.uint(0)
}

func (c *Contract) ExternalScoreOf(ctx context.Context, user string) (*big.Int, error) {
	d, err := c.call(ctx, encodeCall("externalScores(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	return d.uint(0)
}

func (c *Contract) GetUserInfoBasic(ctx context.Context, user string) (*UserBasic, error) {
	d, err := c.call(ctx, encodeCall("getUserInfoBasic(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	nameIdx, err := d.offsetAt(0, 0)
	if err != nil {
		return nil, err
	}
	name, err := d.stringAt(nameIdx)
	if err != nil {
		return nil, err
	}
	score, err := d.uint(1)
	if err != nil {
		return nil, err
	}
	active, err := d.boolAt(2)
	if err != nil {
		return nil, err
	}
	updated, err := d.uint64At(3)
	if err != nil {
		return nil, err
	}
	staked, err := d.uint(4)
	if err != nil {
		return nil, err
	}
	return &UserBasic{
		Name:         name,
		CreditScore:  score,
		IsActive:     active,
		LastUpdated:  int64(updated),
		StakedAmount: staked,
	}, nil
}

func (c *Contract) GetUserInfoStats(ctx context.Context, user string) (*UserStats, error) {
	d, err := c.call(ctx, encodeCall("getUserInfoStats(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	totalLoans, err := d.uint64At(0)
	if err != nil {
		return nil, err
	}
	totalRepayments, err := d.uint(1)
	if err != nil {
		return nil, err
	}
	defaults, err := d.uint64At(2)
	if err != nil {
		return nil, err
	}
	totalRequests, err := d.uint64At(3)
	if err != nil {
		return nil, err
	}
	repaidCount, err := d.uint64At(4)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		TotalLoans:       int64(totalLoans),
		TotalRepayments:  totalRepayments,
		Defaults:         int64(defaults),
		TotalRequests:    int64(totalRequests),
		RepaidLoansCount: int64(repaidCount),
	}, nil
}

func (c *Contract) GetCreditScoreBreakdown(ctx context.Context, user string) (*ScoreBreakdown, error) {
	d, err := c.call(ctx, encodeCall("getCreditScoreBreakdown(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	vals := make([]int64, 6)
	for i := range vals {
		v, err := d.uint64At(i)
		if err != nil {
			return nil, err
		}
		vals[i] = int64(v)
	}
	return &ScoreBreakdown{
		PaymentHistory:       vals[0],
		RepaymentConsistency: vals[1],
		LoanActivity:         vals[2],
		CollateralBonus:      vals[3],
		OracleBonus:          vals[4],
		Total:                vals[5],
	}, nil
}

func (c *Contract) GetAllUsers(ctx context.Context) ([]string, error) {
	d, err := c.call(ctx, encodeCall("getAllUsers()"))
	if err != nil {
		return nil, err
	}
	arr, err := d.offsetAt(0, 0)
	if err != nil {
		return nil, err
	}
	length, err := d.uint64At(arr)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, length)
	for i := 0; i < int(length); i++ {
		addr, err := d.addressAt(arr + 1 + i)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// GetUserLoans decodes the loan array: ten static words per element.
func (c *Contract) GetUserLoans(ctx context.Context, user string) ([]Loan, error) {
	d, err := c.call(ctx, encodeCall("getUserLoans(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	arr, err := d.offsetAt(0, 0)
	if err != nil {
		return nil, err
	}
	length, err := d.uint64At(arr)
	if err != nil {
		return nil, err
	}
	out := make([]Loan, 0, length)
	for i := 0; i < int(length); i++ {
		base := arr + 1 + i*10
		loan, err := decodeLoan(d, base)
		if err != nil {
			return nil, fmt.Errorf("loan %d: %w", i, err)
		}
		out = append(out, loan)
	}
	return out, nil
}

func decodeLoan(d *abiData, base int) (Loan, error) {
	loanID, err := d.uint64At(base)
	if err != nil {
		return Loan{}, err
	}
	borrower, err := d.addressAt(base + 1)
	if err != nil {
		return Loan{}, err
	}
	principal, err := d.uint(base + 2)
	if err != nil {
		return Loan{}, err
	}
	rate, err := d.uint64At(base + 3)
	if err != nil {
		return Loan{}, err
	}
	issue, err := d.uint64At(base + 4)
	if err != nil {
		return Loan{}, err
	}
	due, err := d.uint64At(base + 5)
	if err != nil {
		return Loan{}, err
	}
	repaid, err := d.uint(base + 6)
	if err != nil {
		return Loan{}, err
	}
	total, err := d.uint(base + 7)
	if err != nil {
		return Loan{}, err
	}
	isRepaid, err := d.boolAt(base + 8)
	if err != nil {
		return Loan{}, err
	}
	isDefaulted, err := d.boolAt(base + 9)
	if err != nil {
		return Loan{}, err
	}
	return Loan{
		LoanID:             loanID,
		Borrower:           borrower,
		Principal:          principal,
		InterestRate:       int64(rate),
		IssueDate:          int64(issue),
		DueDate:            int64(due),
		RepaidAmount:       repaid,
		TotalAmountToRepay: total,
		IsRepaid:           isRepaid,
		IsDefaulted:        isDefaulted,
	}, nil
}

// GetLoanRequests decodes an array of dynamic tuples: the reason string
// makes each element offset-addressed.
func (c *Contract) GetLoanRequests(ctx context.Context, user string) ([]LoanRequest, error) {
	d, err := c.call(ctx, encodeCall("getLoanRequests(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	arr, err := d.offsetAt(0, 0)
	if err != nil {
		return nil, err
	}
	length, err := d.uint64At(arr)
	if err != nil {
		return nil, err
	}
	elemBase := arr + 1
	out := make([]LoanRequest, 0, length)
	for i := 0; i < int(length); i++ {
		tup, err := d.offsetAt(elemBase+i, elemBase)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		req, err := decodeLoanRequest(d, tup)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		out = append(out, req)
	}
	return out, nil
}

func decodeLoanRequest(d *abiData, base int) (LoanRequest, error) {
	requestID, err := d.uint64At(base)
	if err != nil {
		return LoanRequest{}, err
	}
	borrower, err := d.addressAt(base + 1)
	if err != nil {
		return LoanRequest{}, err
	}
	amount, err := d.uint(base + 2)
	if err != nil {
		return LoanRequest{}, err
	}
	rate, err := d.uint64At(base + 3)
	if err != nil {
		return LoanRequest{}, err
	}
	duration, err := d.uint64At(base + 4)
	if err != nil {
		return LoanRequest{}, err
	}
	reasonIdx, err := d.offsetAt(base+5, base)
	if err != nil {
		return LoanRequest{}, err
	}
	reason, err := d.stringAt(reasonIdx)
	if err != nil {
		return LoanRequest{}, err
	}
	approved, err := d.boolAt(base + 6)
	if err != nil {
		return LoanRequest{}, err
	}
	active, err := d.boolAt(base + 7)
	if err != nil {
		return LoanRequest{}, err
	}
	return LoanRequest{
		RequestID:    requestID,
		Borrower:     borrower,
		Amount:       amount,
		InterestRate: int64(rate),
		DurationDays: int64(duration),
		Reason:       reason,
		IsApproved:   approved,
		IsActive:     active,
	}, nil
}

func (c *Contract) GetFinancialHistory(ctx context.Context, user string) ([]HistoryEntry, error) {
	d, err := c.call(ctx, encodeCall("getFinancialHistory(address)", addressArg(user)))
	if err != nil {
		return nil, err
	}
	arr, err := d.offsetAt(0, 0)
	if err != nil {
		return nil, err
	}
	length, err := d.uint64At(arr)
	if err != nil {
		return nil, err
	}
	elemBase := arr + 1
	out := make([]HistoryEntry, 0, length)
	for i := 0; i < int(length); i++ {
		tup, err := d.offsetAt(elemBase+i, elemBase)
		if err != nil {
			return nil, fmt.Errorf("history %d: %w", i, err)
		}
		entry, err := decodeHistoryEntry(d, tup)
		if err != nil {
			return nil, fmt.Errorf("history %d: %w", i, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func decodeHistoryEntry(d *abiData, base int) (HistoryEntry, error) {
	typeIdx, err := d.offsetAt(base, base)
	if err != nil {
		return HistoryEntry{}, err
	}
	activityType, err := d.stringAt(typeIdx)
	if err != nil {
		return HistoryEntry{}, err
	}
	amount, err := d.uint(base + 1)
	if err != nil {
		return HistoryEntry{}, err
	}
	descIdx, err := d.offsetAt(base+2, base)
	if err != nil {
		return HistoryEntry{}, err
	}
	description, err := d.stringAt(descIdx)
	if err != nil {
		return HistoryEntry{}, err
	}
	ts, err := d.uint64At(base + 3)
	if err != nil {
		return HistoryEntry{}, err
	}
	return HistoryEntry{
		ActivityType: activityType,
		Amount:       amount,
		Description:  description,
		Timestamp:    int64(ts),
	}, nil
}

// ---- writes ----

func (c *Contract) send(ctx context.Context, from, data string, value *big.Int) (string, error) {
	if !IsHexAddress(from) {
		return "", fmt.Errorf("invalid from address: %q", from)
	}
	tx := TxArgs{
		From: NormalizeAddress(from),
		To:   c.address,
		Gas:  c.gasLimit,
		Data: data,
	}
	if value != nil && value.Sign() > 0 {
		tx.Value = "0x" + strings.TrimLeft(value.Text(16), "-")
	}
	return c.rpc.SendTransaction(ctx, tx)
}

func (c *Contract) RegisterUser(ctx context.Context, from, name string) (string, error) {
	return c.send(ctx, from, encodeCall("registerUser(string)", stringArg(name)), nil)
}

func (c *Contract) RecordRepayment(ctx context.Context, from string, loanID uint64, amount *big.Int) (string, error) {
	return c.send(ctx, from, encodeCall("recordRepayment(uint256)", uintArg(new(big.Int).SetUint64(loanID))), amount)
}

func (c *Contract) RecordDefault(ctx context.Context, from string, loanID uint64) (string, error) {
	return c.send(ctx, from, encodeCall("recordDefault(uint256)", uintArg(new(big.Int).SetUint64(loanID))), nil)
}

func (c *Contract) RecordLatePayment(ctx context.Context, from string, loanID uint64) (string, error) {
	return c.send(ctx, from, encodeCall("recordLatePayment(uint256)", uintArg(new(big.Int).SetUint64(loanID))), nil)
}

func (c *Contract) RequestLoan(ctx context.Context, from string, amount *big.Int, interestRate, durationDays uint64, reason string) (string, error) {
	data := encodeCall("requestLoan(uint256,uint256,uint256,string)",
		uintArg(amount),
		uintArg(new(big.Int).SetUint64(interestRate)),
		uintArg(new(big.Int).SetUint64(durationDays)),
		stringArg(reason),
	)
	return c.send(ctx, from, data, nil)
}

func (c *Contract) ApproveLoan(ctx context.Context, from, borrower string, requestIndex uint64, funding *big.Int) (string, error) {
	data := encodeCall("approveLoan(address,uint256)",
		addressArg(borrower),
		uintArg(new(big.Int).SetUint64(requestIndex)),
	)
	return c.send(ctx, from, data, funding)
}

func (c *Contract) RejectLoan(ctx context.Context, from, borrower string, requestIndex uint64, reason string) (string, error) {
	data := encodeCall("rejectLoan(address,uint256,string)",
		addressArg(borrower),
		uintArg(new(big.Int).SetUint64(requestIndex)),
		stringArg(reason),
	)
	return c.send(ctx, from, data, nil)
}

func (c *Contract) Stake(ctx context.Context, from string, amount *big.Int) (string, error) {
	return c.send(ctx, from, encodeCall("stake()"), amount)
}

func (c *Contract) Unstake(ctx context.Context, from string, amount *big.Int) (string, error) {
	return c.send(ctx, from, encodeCall("unstake(uint256)", uintArg(amount)), nil)
}

func (c *Contract) UpdateExternalScore(ctx context.Context, from, user string, score uint64) (string, error) {
	data := encodeCall("updateExternalScore(address,uint256)",
		addressArg(user),
		uintArg(new(big.Int).SetUint64(score)),
	)
	return c.send(ctx, from, data, nil)
}
