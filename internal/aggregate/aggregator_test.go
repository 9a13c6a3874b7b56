package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/currency"
)

const (
	borrowerOne = "0x1111111111111111111111111111111111111111"
	borrowerTwo = "0x2222222222222222222222222222222222222222"
)

type mockReader struct {
	mu    sync.Mutex
	calls map[string]int

	userExists   func(addr string) (bool, error)
	basic        func(addr string) (*chain.UserBasic, error)
	stats        func(addr string) (*chain.UserStats, error)
	score        func(addr string) (*big.Int, error)
	breakdown    func(addr string) (*chain.ScoreBreakdown, error)
	loans        func(addr string) ([]chain.Loan, error)
	requests     func(addr string) ([]chain.LoanRequest, error)
	history      func(addr string) ([]chain.HistoryEntry, error)
	allUsers     func() ([]string, error)
	loanCount    func() (uint64, error)
	admin        func() (string, error)
	stakeOf      func(addr string) (*big.Int, error)
	totalDebt    func(addr string) (*big.Int, error)
	oracleScore  func(addr string) (*big.Int, error)
}

func (m *mockReader) count(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

func (m *mockReader) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockReader) Address() string     { return "0x3333333333333333333333333333333333333333" }
func (m *mockReader) Provider() chain.RPC { return nil }

func (m *mockReader) UserExists(_ context.Context, addr string) (bool, error) {
	m.count("userExists")
	if m.userExists == nil {
		return true, nil
	}
	return m.userExists(addr)
}

func (m *mockReader) GetUserInfoBasic(_ context.Context, addr string) (*chain.UserBasic, error) {
	m.count("basic")
	if m.basic == nil {
		return &chain.UserBasic{Name: "user", CreditScore: big.NewInt(650), IsActive: true}, nil
	}
	return m.basic(addr)
}

func (m *mockReader) GetUserInfoStats(_ context.Context, addr string) (*chain.UserStats, error) {
	m.count("stats")
	if m.stats == nil {
		return &chain.UserStats{TotalRepayments: big.NewInt(0)}, nil
	}
	return m.stats(addr)
}

func (m *mockReader) GetCreditScore(_ context.Context, addr string) (*big.Int, error) {
	m.count("score")
	if m.score == nil {
		return big.NewInt(650), nil
	}
	return m.score(addr)
}

func (m *mockReader) GetCreditScoreBreakdown(_ context.Context, addr string) (*chain.ScoreBreakdown, error) {
	m.count("breakdown")
	if m.breakdown == nil {
		return &chain.ScoreBreakdown{Total: 650}, nil
	}
	return m.breakdown(addr)
}

func (m *mockReader) GetUserLoans(_ context.Context, addr string) ([]chain.Loan, error) {
	m.count("loans")
	if m.loans == nil {
		return nil, nil
	}
	return m.loans(addr)
}

func (m *mockReader) GetLoanRequests(_ context.Context, addr string) ([]chain.LoanRequest, error) {
	m.count("requests")
	if m.requests == nil {
		return nil, nil
	}
	return m.requests(addr)
}

func (m *mockReader) GetFinancialHistory(_ context.Context, addr string) ([]chain.HistoryEntry, error) {
	m.count("history")
	if m.history == nil {
		return nil, nil
	}
	return m.history(addr)
}

func (m *mockReader) GetAllUsers(_ context.Context) ([]string, error) {
	m.count("allUsers")
	if m.allUsers == nil {
		return nil, nil
	}
	return m.allUsers()
}

func (m *mockReader) GetLoanCount(_ context.Context) (uint64, error) {
	m.count("loanCount")
	if m.loanCount == nil {
		return 0, nil
	}
	return m.loanCount()
}

func (m *mockReader) GetAdmin(_ context.Context) (string, error) {
	m.count("admin")
	if m.admin == nil {
		return "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", nil
	}
	return m.admin()
}

func (m *mockReader) StakeOf(_ context.Context, addr string) (*big.Int, error) {
	m.count("stakeOf")
	if m.stakeOf == nil {
		return big.NewInt(0), nil
	}
	return m.stakeOf(addr)
}

// The contract debt call reverts by default so tests exercise the fallback
// that derives debt from the loan list.
func (m *mockReader) CalculateTotalDebt(_ context.Context, addr string) (*big.Int, error) {
	m.count("totalDebt")
	if m.totalDebt == nil {
		return nil, &chain.RPCError{Code: 3, Message: "execution reverted"}
	}
	return m.totalDebt(addr)
}

func (m *mockReader) ExternalScoreOf(_ context.Context, addr string) (*big.Int, error) {
	m.count("oracleScore")
	if m.oracleScore == nil {
		return big.NewInt(0), nil
	}
	return m.oracleScore(addr)
}

func newTestAggregator() *Aggregator {
	agg := NewAggregator(slog.New(slog.NewTextHandler(testWriter{}, nil)), 4, 3, 0)
	agg.retryDelay = 0
	return agg
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func mustWei(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := currency.ToBaseUnits(s)
	if err != nil {
		t.Fatalf("ToBaseUnits(%q): %v", s, err)
	}
	return v
}

func TestLoadSelfDisconnected(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{}

	snap := agg.LoadSelf(context.Background(), m, "", 1)
	if snap.Connected {
		t.Fatal("expected disconnected snapshot")
	}
	if m.callCount("userExists") != 0 {
		t.Fatal("no contract calls expected while disconnected")
	}
}

func TestLoadSelfNeedsRegistration(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		userExists: func(string) (bool, error) { return false, nil },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if !snap.NeedsRegistration {
		t.Fatal("expected needs-registration snapshot")
	}
	if m.callCount("score") != 0 || m.callCount("loans") != 0 {
		t.Fatal("slice fetches must not run for an unregistered address")
	}
}

func TestLoadSelfRegistrationCheckUnreachable(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		userExists: func(string) (bool, error) { return false, errors.New("connection refused") },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if snap.Fault == "" {
		t.Fatal("expected blocking fault when the registration check is unreachable")
	}
	if snap.Loans.Available || snap.Score.Available {
		t.Fatal("no section should be marked available after a blocking fault")
	}
}

func TestLoadSelfFullSnapshot(t *testing.T) {
	agg := newTestAggregator()
	loans := []chain.Loan{
		{
			LoanID:             7,
			Borrower:           borrowerOne,
			Principal:          mustWei(t, "2"),
			RepaidAmount:       mustWei(t, "0.5"),
			TotalAmountToRepay: mustWei(t, "2.2"),
		},
		{
			LoanID:             3,
			Borrower:           borrowerOne,
			Principal:          mustWei(t, "1"),
			RepaidAmount:       mustWei(t, "1.1"),
			TotalAmountToRepay: mustWei(t, "1.1"),
			IsRepaid:           true,
		},
	}
	m := &mockReader{
		score: func(string) (*big.Int, error) { return big.NewInt(720), nil },
		loans: func(string) ([]chain.Loan, error) { return loans, nil },
		history: func(string) ([]chain.HistoryEntry, error) {
			return []chain.HistoryEntry{
				{ActivityType: "repayment", Amount: mustWei(t, "0.5")},
				{ActivityType: "late_payment", Amount: big.NewInt(0)},
				{ActivityType: "LATE_PAYMENT", Amount: big.NewInt(0)},
			}, nil
		},
		stakeOf: func(string) (*big.Int, error) { return mustWei(t, "10"), nil },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 42)
	if snap.Generation != 42 {
		t.Fatalf("generation = %d, want 42", snap.Generation)
	}
	if !snap.Profile.Available || !snap.Score.Available || !snap.Loans.Available ||
		!snap.History.Available || !snap.Staking.Available {
		t.Fatalf("all sections should be available: %+v", snap)
	}
	if snap.Score.Score != 720 || snap.Score.Description != "Good Credit Score" {
		t.Fatalf("score section = %+v", snap.Score)
	}
	if len(snap.Loans.Loans) != 2 {
		t.Fatalf("loans = %d, want 2", len(snap.Loans.Loans))
	}
	if !snap.Profile.LatePaymentsKnown || snap.Profile.LatePayments != 2 {
		t.Fatalf("late payments = %d known=%v, want 2 known",
			snap.Profile.LatePayments, snap.Profile.LatePaymentsKnown)
	}

	// Outstanding debt is 2.2 - 0.5 = 1.7 from the single open loan, so
	// 10 staked leaves 8.3 free.
	if got, want := snap.Staking.OutstandingDebt, mustWei(t, "1.7"); got.Cmp(want) != 0 {
		t.Fatalf("outstanding debt = %s, want %s", got, want)
	}
	if got, want := snap.Staking.AvailableToUnstake, mustWei(t, "8.3"); got.Cmp(want) != 0 {
		t.Fatalf("available to unstake = %s, want %s", got, want)
	}
}

func TestLoadSelfHistoryFailureIsIsolated(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		history: func(string) ([]chain.HistoryEntry, error) {
			return nil, errors.New("connection reset")
		},
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if snap.History.Available {
		t.Fatal("history section should be unavailable")
	}
	if snap.History.Error == "" {
		t.Fatal("unavailable section should carry a user-facing message")
	}
	if !snap.Profile.Available || !snap.Score.Available || !snap.Loans.Available {
		t.Fatal("other sections must survive a history failure")
	}
	if snap.Profile.LatePaymentsKnown {
		t.Fatal("late payment count cannot be known without history")
	}
}

func TestLoadSelfDebtExceedsStake(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		loans: func(string) ([]chain.Loan, error) {
			return []chain.Loan{{
				LoanID:             1,
				Principal:          mustWei(t, "5"),
				RepaidAmount:       big.NewInt(0),
				TotalAmountToRepay: mustWei(t, "5.5"),
			}}, nil
		},
		stakeOf: func(string) (*big.Int, error) { return mustWei(t, "2"), nil },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if snap.Staking.AvailableToUnstake.Sign() != 0 {
		t.Fatalf("available to unstake = %s, want 0", snap.Staking.AvailableToUnstake)
	}
}

func TestStakingPrefersContractDebt(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		loans: func(string) ([]chain.Loan, error) {
			return []chain.Loan{{
				LoanID:             1,
				Principal:          mustWei(t, "2"),
				RepaidAmount:       mustWei(t, "0.5"),
				TotalAmountToRepay: mustWei(t, "2.2"),
			}}, nil
		},
		stakeOf:   func(string) (*big.Int, error) { return mustWei(t, "10"), nil },
		totalDebt: func(string) (*big.Int, error) { return mustWei(t, "4"), nil },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if got, want := snap.Staking.OutstandingDebt, mustWei(t, "4"); got.Cmp(want) != 0 {
		t.Fatalf("outstanding debt = %s, want contract figure %s", got, want)
	}
	if got, want := snap.Staking.AvailableToUnstake, mustWei(t, "6"); got.Cmp(want) != 0 {
		t.Fatalf("available to unstake = %s, want %s", got, want)
	}
}

func TestScoreSectionCarriesOracleScore(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		score:       func(string) (*big.Int, error) { return big.NewInt(680), nil },
		oracleScore: func(string) (*big.Int, error) { return big.NewInt(37), nil },
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if snap.Score.OracleScore != 37 {
		t.Fatalf("oracle score = %d, want 37", snap.Score.OracleScore)
	}
}

func TestRetryTransientTransportErrors(t *testing.T) {
	agg := newTestAggregator()
	attempts := 0
	m := &mockReader{
		score: func(string) (*big.Int, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return big.NewInt(700), nil
		},
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if !snap.Score.Available || snap.Score.Score != 700 {
		t.Fatalf("score section = %+v after retries", snap.Score)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestNoRetryOnRevert(t *testing.T) {
	agg := newTestAggregator()
	m := &mockReader{
		score: func(string) (*big.Int, error) {
			return nil, &chain.RPCError{Code: 3, Message: "execution reverted: User not registered"}
		},
	}

	snap := agg.LoadSelf(context.Background(), m, borrowerOne, 1)
	if snap.Score.Available {
		t.Fatal("score section should be unavailable")
	}
	if got := m.callCount("score"); got != 1 {
		t.Fatalf("revert was retried %d times, deterministic failures retry never", got)
	}
}
