package aggregate

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dileep812/credit-score/internal/chain"
)

// ContractReader is the read surface the aggregator needs from the bound
// contract handle. *chain.Contract satisfies it.
type ContractReader interface {
	Address() string
	Provider() chain.RPC
	UserExists(ctx context.Context, user string) (bool, error)
	GetUserInfoBasic(ctx context.Context, user string) (*chain.UserBasic, error)
	GetUserInfoStats(ctx context.Context, user string) (*chain.UserStats, error)
	GetCreditScore(ctx context.Context, user string) (*big.Int, error)
	GetCreditScoreBreakdown(ctx context.Context, user string) (*chain.ScoreBreakdown, error)
	GetUserLoans(ctx context.Context, user string) ([]chain.Loan, error)
	GetLoanRequests(ctx context.Context, user string) ([]chain.LoanRequest, error)
	GetFinancialHistory(ctx context.Context, user string) ([]chain.HistoryEntry, error)
	GetAllUsers(ctx context.Context) ([]string, error)
	GetLoanCount(ctx context.Context) (uint64, error)
	GetAdmin(ctx context.Context) (string, error)
	StakeOf(ctx context.Context, user string) (*big.Int, error)
	CalculateTotalDebt(ctx context.Context, user string) (*big.Int, error)
	ExternalScoreOf(ctx context.Context, user string) (*big.Int, error)
}

// Aggregator rebuilds dashboard state from per-call contract reads. It holds
// no identity of its own; callers pass the handle and address for the session
// they are refreshing so that results can be checked against the session
// generation before being applied.
type Aggregator struct {
	logger *slog.Logger

	workers    int
	retries    uint
	retryDelay time.Duration
	scanFrom   uint64

	// enumerate is the event-log fallback used when the contract's user
	// enumeration itself reverts or is absent.
	enumerate func(ctx context.Context, rpc chain.RPC, contractAddr string, fromBlock uint64) ([]string, error)

	now func() time.Time
}

func NewAggregator(logger *slog.Logger, workers int, retries uint, scanFrom uint64) *Aggregator {
	if workers <= 0 {
		workers = 1
	}
	if retries == 0 {
		retries = 1
	}
	return &Aggregator{
		logger:     logger,
		workers:    workers,
		retries:    retries,
		retryDelay: 200 * time.Millisecond,
		scanFrom:   scanFrom,
		enumerate:  chain.EnumerateParticipants,
		now:        time.Now,
	}
}

// withRetry retries transient transport failures only. Reverts and other
// deterministic outcomes are returned on the first attempt.
func (a *Aggregator) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(a.retries),
		retry.Delay(a.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return chain.Classify(err).Kind == chain.KindTransport
		}),
	)
}

// LoadSelf rebuilds the connected user's own dashboard. Slice fetches run
// concurrently and fail independently; only an unreachable registration check
// blocks the whole snapshot.
func (a *Aggregator) LoadSelf(ctx context.Context, r ContractReader, address string, generation uint64) *Snapshot {
	snap := &Snapshot{Generation: generation, TakenAt: a.now()}
	if address == "" {
		return snap
	}
	snap.Connected = true
	snap.Address = address

	var exists bool
	err := a.withRetry(ctx, func() error {
		var e error
		exists, e = r.UserExists(ctx, address)
		return e
	})
	if err != nil {
		a.logger.Error("registration check failed", "address", address, "error", err)
		snap.Fault = chain.Classify(err).Message()
		return snap
	}
	if !exists {
		snap.NeedsRegistration = true
		return snap
	}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		snap.Profile = a.loadProfile(ctx, r, address)
	}()
	go func() {
		defer wg.Done()
		snap.Score = a.loadScore(ctx, r, address)
	}()
	go func() {
		defer wg.Done()
		snap.Loans = a.loadLoans(ctx, r, address)
	}()
	go func() {
		defer wg.Done()
		snap.History = a.loadHistory(ctx, r, address)
	}()

	staked := make(chan stakeResult, 1)
	go func() {
		defer wg.Done()
		var res stakeResult
		res.err = a.withRetry(ctx, func() error {
			var e error
			res.amount, e = r.StakeOf(ctx, address)
			return e
		})
		if res.err == nil {
			// The contract's own debt figure wins when it answers; the local
			// sum over open loans covers older deployments without the call.
			if err := a.withRetry(ctx, func() error {
				var e error
				res.debt, e = r.CalculateTotalDebt(ctx, address)
				return e
			}); err != nil {
				a.logger.Debug("contract debt call failed, deriving from loans", "error", err)
			}
		}
		staked <- res
	}()

	wg.Wait()

	// The late-payment count and the stake's outstanding-debt component both
	// derive from sections fetched above, so they assemble last.
	if snap.History.Available {
		snap.Profile.LatePayments = countLatePayments(snap.History.Entries)
		snap.Profile.LatePaymentsKnown = true
	}
	snap.Staking = a.assembleStaking(<-staked, snap.Loans)
	return snap
}

type stakeResult struct {
	amount *big.Int
	debt   *big.Int
	err    error
}

func (a *Aggregator) loadProfile(ctx context.Context, r ContractReader, address string) ProfileSection {
	var basic *chain.UserBasic
	var stats *chain.UserStats
	err := a.withRetry(ctx, func() error {
		var e error
		basic, e = r.GetUserInfoBasic(ctx, address)
		return e
	})
	if err == nil {
		err = a.withRetry(ctx, func() error {
			var e error
			stats, e = r.GetUserInfoStats(ctx, address)
			return e
		})
	}
	if err != nil {
		a.logger.Warn("profile fetch failed", "address", address, "error", err)
		return ProfileSection{Section: unavailable(err)}
	}
	return ProfileSection{Section: available(), Basic: basic, Stats: stats}
}

func (a *Aggregator) loadScore(ctx context.Context, r ContractReader, address string) ScoreSection {
	var score *big.Int
	err := a.withRetry(ctx, func() error {
		var e error
		score, e = r.GetCreditScore(ctx, address)
		return e
	})
	if err != nil {
		a.logger.Warn("score fetch failed", "address", address, "error", err)
		return ScoreSection{Section: unavailable(err)}
	}
	sec := ScoreSection{Section: available(), Score: score.Int64()}
	sec.Description = ScoreDescription(sec.Score)

	// The breakdown and the oracle score are decorative next to the headline
	// number; losing either does not take the score section down.
	var breakdown *chain.ScoreBreakdown
	if err := a.withRetry(ctx, func() error {
		var e error
		breakdown, e = r.GetCreditScoreBreakdown(ctx, address)
		return e
	}); err != nil {
		a.logger.Warn("score breakdown fetch failed", "address", address, "error", err)
	} else {
		sec.Breakdown = breakdown
	}

	var oracle *big.Int
	if err := a.withRetry(ctx, func() error {
		var e error
		oracle, e = r.ExternalScoreOf(ctx, address)
		return e
	}); err != nil {
		a.logger.Debug("oracle score fetch failed", "address", address, "error", err)
	} else if oracle != nil {
		sec.OracleScore = oracle.Int64()
	}
	return sec
}

func (a *Aggregator) loadLoans(ctx context.Context, r ContractReader, address string) LoansSection {
	var loans []chain.Loan
	err := a.withRetry(ctx, func() error {
		var e error
		loans, e = r.GetUserLoans(ctx, address)
		return e
	})
	if err != nil {
		a.logger.Warn("loan fetch failed", "address", address, "error", err)
		return LoansSection{Section: unavailable(err)}
	}
	return LoansSection{Section: available(), Loans: loans}
}

func (a *Aggregator) loadHistory(ctx context.Context, r ContractReader, address string) HistorySection {
	var entries []chain.HistoryEntry
	err := a.withRetry(ctx, func() error {
		var e error
		entries, e = r.GetFinancialHistory(ctx, address)
		return e
	})
	if err != nil {
		a.logger.Warn("history fetch failed", "address", address, "error", err)
		return HistorySection{Section: unavailable(err)}
	}
	return HistorySection{Section: available(), Entries: entries}
}

// assembleStaking needs the staked amount and a debt figure, because the
// amount free to unstake is the staked balance minus outstanding debt,
// floored at zero.
func (a *Aggregator) assembleStaking(stake stakeResult, loans LoansSection) StakingSection {
	if stake.err != nil {
		a.logger.Warn("stake fetch failed", "error", stake.err)
		return StakingSection{Section: unavailable(stake.err)}
	}
	debt := stake.debt
	if debt == nil {
		if !loans.Available {
			return StakingSection{
				Section: Section{Available: false, Error: "loan data unavailable"},
				Staked:  stake.amount,
			}
		}
		debt = OutstandingDebt(loans.Loans)
	}
	free := new(big.Int).Sub(stake.amount, debt)
	if free.Sign() < 0 {
		free.SetInt64(0)
	}
	return StakingSection{
		Section:            available(),
		Staked:             stake.amount,
		OutstandingDebt:    debt,
		AvailableToUnstake: free,
	}
}

// OutstandingDebt sums the unpaid remainder of every loan that is neither
// repaid nor written off as defaulted.
func OutstandingDebt(loans []chain.Loan) *big.Int {
	total := new(big.Int)
	for i := range loans {
		if loans[i].IsRepaid || loans[i].IsDefaulted {
			continue
		}
		total.Add(total, loans[i].Remaining())
	}
	return total
}

func countLatePayments(entries []chain.HistoryEntry) int64 {
	var n int64
	for i := range entries {
		if strings.EqualFold(entries[i].ActivityType, "late_payment") {
			n++
		}
	}
	return n
}
