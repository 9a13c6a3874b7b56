package handlers

import (
	"time"

	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/currency"
)

// Presentation DTOs. Exact base-unit integers become human-scaled decimal
// strings here and nowhere earlier.

type sectionDTO struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type profileDTO struct {
	sectionDTO
	Name              string `json:"name,omitempty"`
	IsActive          bool   `json:"isActive,omitempty"`
	LastUpdated       int64  `json:"lastUpdated,omitempty"`
	TotalLoans        int64  `json:"totalLoans,omitempty"`
	TotalRepayments   string `json:"totalRepayments,omitempty"`
	Defaults          int64  `json:"defaults,omitempty"`
	TotalRequests     int64  `json:"totalRequests,omitempty"`
	RepaidLoansCount  int64  `json:"repaidLoansCount,omitempty"`
	LatePayments      int64  `json:"latePayments"`
	LatePaymentsKnown bool   `json:"latePaymentsKnown"`
}

type breakdownDTO struct {
	PaymentHistory       int64 `json:"paymentHistory"`
	RepaymentConsistency int64 `json:"repaymentConsistency"`
	LoanActivity         int64 `json:"loanActivity"`
	CollateralBonus      int64 `json:"collateralBonus"`
	OracleBonus          int64 `json:"oracleBonus"`
	Total                int64 `json:"total"`
}

type scoreDTO struct {
	sectionDTO
	Score       int64         `json:"score"`
	Description string        `json:"description,omitempty"`
	OracleScore int64         `json:"oracleScore,omitempty"`
	Breakdown   *breakdownDTO `json:"breakdown,omitempty"`
}

type loanDTO struct {
	LoanID             uint64 `json:"loanId"`
	Borrower           string `json:"borrower"`
	Principal          string `json:"principal"`
	InterestRate       int64  `json:"interestRate"`
	IssueDate          int64  `json:"issueDate"`
	DueDate            int64  `json:"dueDate"`
	RepaidAmount       string `json:"repaidAmount"`
	TotalAmountToRepay string `json:"totalAmountToRepay"`
	Remaining          string `json:"remaining"`
	IsRepaid           bool   `json:"isRepaid"`
	IsDefaulted        bool   `json:"isDefaulted"`
}

type loansDTO struct {
	sectionDTO
	Loans []loanDTO `json:"loans"`
}

type historyEntryDTO struct {
	ActivityType string `json:"activityType"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	Timestamp    int64  `json:"timestamp"`
}

type historyDTO struct {
	sectionDTO
	Entries []historyEntryDTO `json:"entries"`
}

type stakingDTO struct {
	sectionDTO
	Staked             string `json:"staked,omitempty"`
	OutstandingDebt    string `json:"outstandingDebt,omitempty"`
	AvailableToUnstake string `json:"availableToUnstake,omitempty"`
}

type snapshotDTO struct {
	Generation        uint64     `json:"generation"`
	TakenAt           time.Time  `json:"takenAt"`
	Connected         bool       `json:"connected"`
	Address           string     `json:"address,omitempty"`
	NeedsRegistration bool       `json:"needsRegistration"`
	Fault             string     `json:"fault,omitempty"`
	Profile           profileDTO `json:"profile"`
	Score             scoreDTO   `json:"score"`
	Loans             loansDTO   `json:"loans"`
	History           historyDTO `json:"history"`
	Staking           stakingDTO `json:"staking"`
}

func section(s aggregate.Section) sectionDTO {
	return sectionDTO{Available: s.Available, Error: s.Error}
}

func presentSnapshot(snap *aggregate.Snapshot) snapshotDTO {
	out := snapshotDTO{
		Generation:        snap.Generation,
		TakenAt:           snap.TakenAt,
		Connected:         snap.Connected,
		Address:           snap.Address,
		NeedsRegistration: snap.NeedsRegistration,
		Fault:             snap.Fault,
		Profile:           profileDTO{sectionDTO: section(snap.Profile.Section)},
		Score:             scoreDTO{sectionDTO: section(snap.Score.Section)},
		Loans:             loansDTO{sectionDTO: section(snap.Loans.Section)},
		History:           historyDTO{sectionDTO: section(snap.History.Section)},
		Staking:           stakingDTO{sectionDTO: section(snap.Staking.Section)},
	}

	if snap.Profile.Available {
		out.Profile.LatePayments = snap.Profile.LatePayments
		out.Profile.LatePaymentsKnown = snap.Profile.LatePaymentsKnown
		if b := snap.Profile.Basic; b != nil {
			out.Profile.Name = b.Name
			out.Profile.IsActive = b.IsActive
			out.Profile.LastUpdated = b.LastUpdated
		}
		if s := snap.Profile.Stats; s != nil {
			out.Profile.TotalLoans = s.TotalLoans
			out.Profile.TotalRepayments = currency.FormatBaseUnits(s.TotalRepayments)
			out.Profile.Defaults = s.Defaults
			out.Profile.TotalRequests = s.TotalRequests
			out.Profile.RepaidLoansCount = s.RepaidLoansCount
		}
	}

	if snap.Score.Available {
		out.Score.Score = snap.Score.Score
		out.Score.Description = snap.Score.Description
		out.Score.OracleScore = snap.Score.OracleScore
		if b := snap.Score.Breakdown; b != nil {
			out.Score.Breakdown = &breakdownDTO{
				PaymentHistory:       b.PaymentHistory,
				RepaymentConsistency: b.RepaymentConsistency,
				LoanActivity:         b.LoanActivity,
				CollateralBonus:      b.CollateralBonus,
				OracleBonus:          b.OracleBonus,
				Total:                b.Total,
			}
		}
	}

	if snap.Loans.Available {
		out.Loans.Loans = make([]loanDTO, 0, len(snap.Loans.Loans))
		for i := range snap.Loans.Loans {
			out.Loans.Loans = append(out.Loans.Loans, presentLoan(snap.Loans.Loans[i]))
		}
	}

	if snap.History.Available {
		out.History.Entries = make([]historyEntryDTO, 0, len(snap.History.Entries))
		for _, e := range snap.History.Entries {
			out.History.Entries = append(out.History.Entries, historyEntryDTO{
				ActivityType: e.ActivityType,
				Amount:       currency.FormatBaseUnits(e.Amount),
				Description:  e.Description,
				Timestamp:    e.Timestamp,
			})
		}
	}

	if snap.Staking.Staked != nil {
		out.Staking.Staked = currency.FormatBaseUnits(snap.Staking.Staked)
	}
	if snap.Staking.Available {
		out.Staking.OutstandingDebt = currency.FormatBaseUnits(snap.Staking.OutstandingDebt)
		out.Staking.AvailableToUnstake = currency.FormatBaseUnits(snap.Staking.AvailableToUnstake)
	}

	return out
}

func presentLoan(l chain.Loan) loanDTO {
	return loanDTO{
		LoanID:             l.LoanID,
		Borrower:           l.Borrower,
		Principal:          currency.FormatBaseUnits(l.Principal),
		InterestRate:       l.InterestRate,
		IssueDate:          l.IssueDate,
		DueDate:            l.DueDate,
		RepaidAmount:       currency.FormatBaseUnits(l.RepaidAmount),
		TotalAmountToRepay: currency.FormatBaseUnits(l.TotalAmountToRepay),
		Remaining:          currency.FormatBaseUnits(l.Remaining()),
		IsRepaid:           l.IsRepaid,
		IsDefaulted:        l.IsDefaulted,
	}
}

// ---- admin DTOs ----

type registryEntryDTO struct {
	Address     string `json:"address"`
	Name        string `json:"name,omitempty"`
	CreditScore int64  `json:"creditScore"`
	IsActive    bool   `json:"isActive"`
	TotalLoans  int64  `json:"totalLoans"`
	Defaults    int64  `json:"defaults"`
}

type registryDTO struct {
	sectionDTO
	Source string             `json:"source,omitempty"`
	Users  []registryEntryDTO `json:"users"`
}

type pendingRequestDTO struct {
	Borrower     string `json:"borrower"`
	RequestIndex int    `json:"requestIndex"`
	RequestID    uint64 `json:"requestId"`
	Amount       string `json:"amount"`
	InterestRate int64  `json:"interestRate"`
	DurationDays int64  `json:"durationDays"`
	Reason       string `json:"reason"`
}

type pendingDTO struct {
	sectionDTO
	Requests []pendingRequestDTO `json:"requests"`
}

type ownedLoanDTO struct {
	Borrower string  `json:"borrower"`
	Loan     loanDTO `json:"loan"`
}

type allLoansDTO struct {
	sectionDTO
	Loans []ownedLoanDTO `json:"loans"`
}

type overviewDTO struct {
	sectionDTO
	LoanCount    uint64 `json:"loanCount"`
	AdminAddress string `json:"adminAddress,omitempty"`
}

type adminAggregateDTO struct {
	Generation uint64      `json:"generation"`
	TakenAt    time.Time   `json:"takenAt"`
	Overview   overviewDTO `json:"overview"`
	Registry   registryDTO `json:"registry"`
	Pending    pendingDTO  `json:"pending"`
	AllLoans   allLoansDTO `json:"allLoans"`
}

func presentOverview(s aggregate.OverviewSection) overviewDTO {
	return overviewDTO{sectionDTO: section(s.Section), LoanCount: s.LoanCount, AdminAddress: s.AdminAddress}
}

func presentRegistry(s aggregate.RegistrySection) registryDTO {
	out := registryDTO{sectionDTO: section(s.Section), Source: s.Source, Users: []registryEntryDTO{}}
	for _, u := range s.Users {
		dto := registryEntryDTO{Address: u.Address}
		if u.Basic != nil {
			dto.Name = u.Basic.Name
			dto.IsActive = u.Basic.IsActive
			if u.Basic.CreditScore != nil {
				dto.CreditScore = u.Basic.CreditScore.Int64()
			}
		}
		if u.Stats != nil {
			dto.TotalLoans = u.Stats.TotalLoans
			dto.Defaults = u.Stats.Defaults
		}
		out.Users = append(out.Users, dto)
	}
	return out
}

func presentPending(s aggregate.PendingSection) pendingDTO {
	out := pendingDTO{sectionDTO: section(s.Section), Requests: []pendingRequestDTO{}}
	for _, pr := range s.Requests {
		out.Requests = append(out.Requests, pendingRequestDTO{
			Borrower:     pr.Borrower,
			RequestIndex: pr.Index,
			RequestID:    pr.Request.RequestID,
			Amount:       currency.FormatBaseUnits(pr.Request.Amount),
			InterestRate: pr.Request.InterestRate,
			DurationDays: pr.Request.DurationDays,
			Reason:       pr.Request.Reason,
		})
	}
	return out
}

func presentAllLoans(s aggregate.AllLoansSection) allLoansDTO {
	out := allLoansDTO{sectionDTO: section(s.Section), Loans: []ownedLoanDTO{}}
	for _, ol := range s.Loans {
		out.Loans = append(out.Loans, ownedLoanDTO{Borrower: ol.Borrower, Loan: presentLoan(ol.Loan)})
	}
	return out
}

func presentAdminAggregate(agg *aggregate.AdminAggregate) adminAggregateDTO {
	return adminAggregateDTO{
		Generation: agg.Generation,
		TakenAt:    agg.TakenAt,
		Overview:   presentOverview(agg.Overview),
		Registry:   presentRegistry(agg.Registry),
		Pending:    presentPending(agg.Pending),
		AllLoans:   presentAllLoans(agg.AllLoans),
	}
}
