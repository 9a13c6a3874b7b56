// Package view derives the dashboard's presentation state from the session
// and the aggregated contract reads, and decides which panels a visitor can
// see. It never caches a role: admin status is recomputed from the address on
// every evaluation, so an account switch in the wallet downgrades (or
// upgrades) the view immediately.
package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/session"
)

type State string

const (
	StateDisconnected     State = "disconnected"
	StateUserUnregistered State = "user_unregistered"
	StateUserActive       State = "user_active"
	StateAdminActive      State = "admin_active"
)

const (
	TabDashboard   = "dashboard"
	TabRegister    = "register"
	TabHistory     = "history"
	TabLoans       = "loans"
	TabRequestLoan = "requestLoan"
	TabCollateral  = "collateral"
	TabAdmin       = "admin"
	TabRegistry    = "registry"
)

var ErrNotAdmin = errors.New("admin role required")

type EventType string

const (
	EventViewUpdated      EventType = "view_updated"
	EventAdminViewUpdated EventType = "admin_view_updated"
	EventFormCleared      EventType = "form_cleared"
)

// Event is pushed to connected dashboard clients. FormCleared names exactly
// one operation; clients must leave every other form's draft input alone.
type Event struct {
	Type      EventType `json:"type"`
	Address   string    `json:"address,omitempty"`
	Operation string    `json:"operation,omitempty"`
}

// Session is the slice of the connection manager the controller consumes.
type Session interface {
	Identity() (session.Identity, bool)
	Contract() (*chain.Contract, error)
	Generation() uint64
	IsCurrent(gen uint64) bool
	Role() (string, bool)
}

// Aggregator rebuilds read models; satisfied by *aggregate.Aggregator.
type Aggregator interface {
	LoadSelf(ctx context.Context, r aggregate.ContractReader, address string, generation uint64) *aggregate.Snapshot
	LoadAdminAggregate(ctx context.Context, r aggregate.ContractReader, generation uint64) *aggregate.AdminAggregate
}

type Controller struct {
	session Session
	agg     Aggregator
	logger  *slog.Logger
	publish func(Event)

	mu    sync.RWMutex
	self  *aggregate.Snapshot
	admin *aggregate.AdminAggregate
}

func NewController(s Session, agg Aggregator, logger *slog.Logger, publish func(Event)) *Controller {
	if publish == nil {
		publish = func(Event) {}
	}
	return &Controller{session: s, agg: agg, logger: logger, publish: publish}
}

// State recomputes the presentation state from scratch. The unregistered
// state is only trusted when the stored snapshot belongs to the current
// session generation; a stale snapshot from a previous account never leaks
// into the decision.
func (c *Controller) State() State {
	identity, ok := c.session.Identity()
	if !ok {
		return StateDisconnected
	}
	if role, _ := c.session.Role(); role == session.RoleAdmin {
		return StateAdminActive
	}
	c.mu.RLock()
	self := c.self
	c.mu.RUnlock()
	if self != nil && self.Address == identity.Address &&
		c.session.IsCurrent(self.Generation) && self.NeedsRegistration {
		return StateUserUnregistered
	}
	return StateUserActive
}

// Tabs lists the panels visible in a state, first entry focused.
func Tabs(s State) []string {
	switch s {
	case StateAdminActive:
		return []string{TabAdmin, TabRegistry}
	case StateUserUnregistered:
		return []string{TabRegister, TabDashboard}
	default:
		return []string{TabDashboard, TabLoans, TabRequestLoan, TabHistory, TabCollateral}
	}
}

// ViewState is the full renderable description handed to clients.
type ViewState struct {
	State State    `json:"state"`
	Tabs  []string `json:"tabs"`
	Focus string   `json:"focus"`
}

func (c *Controller) View() ViewState {
	s := c.State()
	tabs := Tabs(s)
	return ViewState{State: s, Tabs: tabs, Focus: tabs[0]}
}

// RefreshSelf re-aggregates the connected account's own dashboard. Results
// carrying a superseded generation are discarded, never stored.
func (c *Controller) RefreshSelf(ctx context.Context) error {
	identity, ok := c.session.Identity()
	if !ok {
		c.mu.Lock()
		c.self = &aggregate.Snapshot{Generation: c.session.Generation()}
		c.mu.Unlock()
		return nil
	}
	contract, err := c.session.Contract()
	if err != nil {
		return err
	}
	gen := c.session.Generation()

	snap := c.agg.LoadSelf(ctx, contract, identity.Address, gen)
	if !c.session.IsCurrent(snap.Generation) {
		c.logger.Debug("discarding stale snapshot",
			"generation", snap.Generation, "address", snap.Address)
		return nil
	}
	c.mu.Lock()
	c.self = snap
	c.mu.Unlock()
	c.publish(Event{Type: EventViewUpdated, Address: identity.Address})
	return nil
}

// RefreshAdmin re-aggregates the platform-wide view. Separate from
// RefreshSelf so an admin panel reload does not refetch the admin's personal
// slices and vice versa.
func (c *Controller) RefreshAdmin(ctx context.Context) error {
	role, ok := c.session.Role()
	if !ok || role != session.RoleAdmin {
		return ErrNotAdmin
	}
	contract, err := c.session.Contract()
	if err != nil {
		return err
	}
	gen := c.session.Generation()

	agg := c.agg.LoadAdminAggregate(ctx, contract, gen)
	if !c.session.IsCurrent(agg.Generation) {
		c.logger.Debug("discarding stale admin aggregate", "generation", agg.Generation)
		return nil
	}
	c.mu.Lock()
	c.admin = agg
	c.mu.Unlock()
	c.publish(Event{Type: EventAdminViewUpdated})
	return nil
}

// Refresh reloads everything the current role can see.
func (c *Controller) Refresh(ctx context.Context) error {
	if err := c.RefreshSelf(ctx); err != nil {
		return err
	}
	if role, ok := c.session.Role(); ok && role == session.RoleAdmin {
		return c.RefreshAdmin(ctx)
	}
	return nil
}

// ClearForm announces that exactly one operation's form should reset after a
// confirmed submission. No other form state is touched.
func (c *Controller) ClearForm(address, operation string) {
	c.publish(Event{Type: EventFormCleared, Address: address, Operation: operation})
}

func (c *Controller) Snapshot() *aggregate.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self
}

func (c *Controller) AdminView() *aggregate.AdminAggregate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admin
}
