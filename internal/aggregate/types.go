package aggregate

import (
	"math/big"
	"time"

	"github.com/dileep812/credit-score/internal/chain"
)

// Section is the per-slice availability marker. A failed sub-fetch degrades
// its own section only; the rest of the snapshot still renders.
type Section struct {
	Available bool
	Error     string
}

func unavailable(err error) Section {
	return Section{Available: false, Error: chain.Classify(err).Message()}
}

func available() Section {
	return Section{Available: true}
}

type ProfileSection struct {
	Section
	Basic *chain.UserBasic
	Stats *chain.UserStats
	// LatePayments is derived from the financial history; when the history
	// fetch fails the count is unknown rather than zero.
	LatePayments      int64
	LatePaymentsKnown bool
}

type ScoreSection struct {
	Section
	Score       int64
	Description string
	OracleScore int64
	Breakdown   *chain.ScoreBreakdown
}

type LoansSection struct {
	Section
	Loans []chain.Loan
}

type HistorySection struct {
	Section
	Entries []chain.HistoryEntry
}

type StakingSection struct {
	Section
	Staked             *big.Int
	OutstandingDebt    *big.Int
	AvailableToUnstake *big.Int
}

// Snapshot is the aggregated, possibly-partial read result for one identity
// at one point in time. Amounts stay exact integers; formatting belongs to
// the presentation layer.
type Snapshot struct {
	Generation        uint64
	TakenAt           time.Time
	Connected         bool
	Address           string
	NeedsRegistration bool
	// Fault is set only when the registration check itself cannot be made,
	// meaning nothing below it renders.
	Fault string

	Profile ProfileSection
	Score   ScoreSection
	Loans   LoansSection
	History HistorySection
	Staking StakingSection
}

// ---- admin aggregate ----

type RegistryEntry struct {
	Address string
	Basic   *chain.UserBasic
	Stats   *chain.UserStats
}

type RegistrySection struct {
	Section
	// Source records whether addresses came from the contract enumeration
	// or were reconstructed from event logs.
	Source string
	Users  []RegistryEntry
}

// PendingRequest tags a surviving request with its owning borrower and its
// positional index inside that borrower's request array, because approval
// and rejection are addressed by (borrower, index) rather than request id.
type PendingRequest struct {
	Borrower string
	Index    int
	Request  chain.LoanRequest
}

type PendingSection struct {
	Section
	Requests []PendingRequest
}

type OwnedLoan struct {
	Borrower string
	Loan     chain.Loan
}

type AllLoansSection struct {
	Section
	Loans []OwnedLoan
}

type OverviewSection struct {
	Section
	LoanCount    uint64
	AdminAddress string
}

type AdminAggregate struct {
	Generation uint64
	TakenAt    time.Time
	Overview   OverviewSection
	Registry   RegistrySection
	Pending    PendingSection
	AllLoans   AllLoansSection
}

const (
	SourceContract = "contract"
	SourceLogs     = "logs"
)

// ScoreDescription mirrors the banding the dashboard shows next to a score.
func ScoreDescription(score int64) string {
	switch {
	case score >= 750:
		return "Excellent Credit Score"
	case score >= 700:
		return "Good Credit Score"
	case score >= 650:
		return "Fair Credit Score"
	case score >= 550:
		return "Poor Credit Score"
	default:
		return "Very Poor Credit Score"
	}
}
