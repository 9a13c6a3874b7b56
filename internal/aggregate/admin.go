package aggregate

import (
	"context"
	"sort"
	"sync"

	"github.com/dileep812/credit-score/internal/chain"
)

// LoadAdminAggregate rebuilds the platform-wide view. The four panels load
// concurrently and degrade independently, the same way the self snapshot does.
func (a *Aggregator) LoadAdminAggregate(ctx context.Context, r ContractReader, generation uint64) *AdminAggregate {
	agg := &AdminAggregate{Generation: generation, TakenAt: a.now()}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		agg.Overview = a.LoadOverview(ctx, r)
	}()
	go func() {
		defer wg.Done()
		agg.Registry = a.LoadRegistry(ctx, r)
	}()
	go func() {
		defer wg.Done()
		agg.Pending = a.LoadPendingRequests(ctx, r)
	}()
	go func() {
		defer wg.Done()
		agg.AllLoans = a.LoadAllLoans(ctx, r)
	}()
	wg.Wait()
	return agg
}

func (a *Aggregator) LoadOverview(ctx context.Context, r ContractReader) OverviewSection {
	var count uint64
	err := a.withRetry(ctx, func() error {
		var e error
		count, e = r.GetLoanCount(ctx)
		return e
	})
	if err != nil {
		a.logger.Warn("loan count fetch failed", "error", err)
		return OverviewSection{Section: unavailable(err)}
	}
	sec := OverviewSection{Section: available(), LoanCount: count}

	var admin string
	if err := a.withRetry(ctx, func() error {
		var e error
		admin, e = r.GetAdmin(ctx)
		return e
	}); err != nil {
		a.logger.Debug("admin address fetch failed", "error", err)
	} else {
		sec.AdminAddress = admin
	}
	return sec
}

// resolveParticipants lists every registered address. When the contract's own
// enumeration fails, borrowers are reconstructed from loan event logs so the
// admin panels still have something to show.
func (a *Aggregator) resolveParticipants(ctx context.Context, r ContractReader) ([]string, string, error) {
	var users []string
	err := a.withRetry(ctx, func() error {
		var e error
		users, e = r.GetAllUsers(ctx)
		return e
	})
	if err == nil {
		return users, SourceContract, nil
	}
	a.logger.Warn("user enumeration failed, falling back to event logs", "error", err)

	var fromLogs []string
	fallbackErr := a.withRetry(ctx, func() error {
		var e error
		fromLogs, e = a.enumerate(ctx, r.Provider(), r.Address(), a.scanFrom)
		return e
	})
	if fallbackErr != nil {
		a.logger.Error("event log enumeration failed", "error", fallbackErr)
		return nil, "", err
	}
	return fromLogs, SourceLogs, nil
}

func (a *Aggregator) LoadRegistry(ctx context.Context, r ContractReader) RegistrySection {
	addrs, source, err := a.resolveParticipants(ctx, r)
	if err != nil {
		return RegistrySection{Section: unavailable(err)}
	}

	entries := make([]RegistryEntry, len(addrs))
	ok := make([]bool, len(addrs))
	a.forEach(ctx, addrs, func(i int, addr string) {
		var basic *chain.UserBasic
		var stats *chain.UserStats
		err := a.withRetry(ctx, func() error {
			var e error
			basic, e = r.GetUserInfoBasic(ctx, addr)
			return e
		})
		if err == nil {
			err = a.withRetry(ctx, func() error {
				var e error
				stats, e = r.GetUserInfoStats(ctx, addr)
				return e
			})
		}
		if err != nil {
			a.logger.Warn("registry entry fetch failed", "address", addr, "error", err)
			return
		}
		entries[i] = RegistryEntry{Address: addr, Basic: basic, Stats: stats}
		ok[i] = true
	})

	sec := RegistrySection{Section: available(), Source: source}
	for i := range entries {
		if ok[i] {
			sec.Users = append(sec.Users, entries[i])
		}
	}
	return sec
}

func (a *Aggregator) LoadPendingRequests(ctx context.Context, r ContractReader) PendingSection {
	addrs, _, err := a.resolveParticipants(ctx, r)
	if err != nil {
		return PendingSection{Section: unavailable(err)}
	}

	perAddr := make([][]PendingRequest, len(addrs))
	a.forEach(ctx, addrs, func(i int, addr string) {
		var requests []chain.LoanRequest
		err := a.withRetry(ctx, func() error {
			var e error
			requests, e = r.GetLoanRequests(ctx, addr)
			return e
		})
		if err != nil {
			a.logger.Warn("request fetch failed", "address", addr, "error", err)
			return
		}
		// The index is positional within the borrower's full request array,
		// not within the filtered pending subset.
		for idx, req := range requests {
			if req.Pending() {
				perAddr[i] = append(perAddr[i], PendingRequest{
					Borrower: addr,
					Index:    idx,
					Request:  req,
				})
			}
		}
	})

	sec := PendingSection{Section: available()}
	for i := range perAddr {
		sec.Requests = append(sec.Requests, perAddr[i]...)
	}
	return sec
}

func (a *Aggregator) LoadAllLoans(ctx context.Context, r ContractReader) AllLoansSection {
	addrs, _, err := a.resolveParticipants(ctx, r)
	if err != nil {
		return AllLoansSection{Section: unavailable(err)}
	}

	perAddr := make([][]OwnedLoan, len(addrs))
	a.forEach(ctx, addrs, func(i int, addr string) {
		var loans []chain.Loan
		err := a.withRetry(ctx, func() error {
			var e error
			loans, e = r.GetUserLoans(ctx, addr)
			return e
		})
		if err != nil {
			a.logger.Warn("loan fetch failed", "address", addr, "error", err)
			return
		}
		for _, loan := range loans {
			perAddr[i] = append(perAddr[i], OwnedLoan{Borrower: addr, Loan: loan})
		}
	})

	sec := AllLoansSection{Section: available()}
	for i := range perAddr {
		sec.Loans = append(sec.Loans, perAddr[i]...)
	}
	// Newest first.
	sort.SliceStable(sec.Loans, func(i, j int) bool {
		return sec.Loans[i].Loan.LoanID > sec.Loans[j].Loan.LoanID
	})
	return sec
}

// forEach runs fn for every address through a bounded worker pool. Each fn
// call owns its own slot in any shared result slice, so no locking is needed
// beyond the semaphore.
func (a *Aggregator) forEach(ctx context.Context, addrs []string, fn func(i int, addr string)) {
	sem := make(chan struct{}, a.workers)
	var wg sync.WaitGroup
	for i, addr := range addrs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, addr string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i, addr)
		}(i, addr)
	}
	wg.Wait()
}
