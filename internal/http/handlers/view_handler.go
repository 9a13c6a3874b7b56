package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/session"
	"github.com/dileep812/credit-score/internal/view"
)

// ViewService is the controller surface; satisfied by *view.Controller.
type ViewService interface {
	View() view.ViewState
	RefreshSelf(ctx context.Context) error
	RefreshAdmin(ctx context.Context) error
	Snapshot() *aggregate.Snapshot
	AdminView() *aggregate.AdminAggregate
}

// AdminLoader exposes the independently retryable admin panels; satisfied by
// *aggregate.Aggregator.
type AdminLoader interface {
	LoadOverview(ctx context.Context, r aggregate.ContractReader) aggregate.OverviewSection
	LoadRegistry(ctx context.Context, r aggregate.ContractReader) aggregate.RegistrySection
	LoadPendingRequests(ctx context.Context, r aggregate.ContractReader) aggregate.PendingSection
	LoadAllLoans(ctx context.Context, r aggregate.ContractReader) aggregate.AllLoansSection
}

type ContractSource interface {
	Contract() (*chain.Contract, error)
}

type ViewHandler struct {
	views    ViewService
	loader   AdminLoader
	contract ContractSource
}

func NewViewHandler(views ViewService, loader AdminLoader, contract ContractSource) *ViewHandler {
	return &ViewHandler{views: views, loader: loader, contract: contract}
}

// GetView returns the renderable state: visible tabs, focused tab and the
// freshest self snapshot.
func (h *ViewHandler) GetView(c *gin.Context) {
	if err := h.views.RefreshSelf(c.Request.Context()); err != nil {
		h.viewError(c, err)
		return
	}
	state := h.views.View()
	resp := gin.H{
		"state": state.State,
		"tabs":  state.Tabs,
		"focus": state.Focus,
	}
	if snap := h.views.Snapshot(); snap != nil {
		resp["snapshot"] = presentSnapshot(snap)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ViewHandler) GetSnapshot(c *gin.Context) {
	if err := h.views.RefreshSelf(c.Request.Context()); err != nil {
		h.viewError(c, err)
		return
	}
	snap := h.views.Snapshot()
	if snap == nil {
		snap = &aggregate.Snapshot{}
	}
	c.JSON(http.StatusOK, presentSnapshot(snap))
}

// GetAdminView runs the full admin aggregation and returns the merged result.
func (h *ViewHandler) GetAdminView(c *gin.Context) {
	if err := h.views.RefreshAdmin(c.Request.Context()); err != nil {
		h.viewError(c, err)
		return
	}
	agg := h.views.AdminView()
	if agg == nil {
		agg = &aggregate.AdminAggregate{}
	}
	c.JSON(http.StatusOK, presentAdminAggregate(agg))
}

// The per-panel endpoints reload one admin view in isolation, so a client can
// retry a failed panel without re-running the whole fan-out.

func (h *ViewHandler) GetAdminOverview(c *gin.Context) {
	r, ok := h.boundContract(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, presentOverview(h.loader.LoadOverview(c.Request.Context(), r)))
}

func (h *ViewHandler) GetAdminRegistry(c *gin.Context) {
	r, ok := h.boundContract(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, presentRegistry(h.loader.LoadRegistry(c.Request.Context(), r)))
}

func (h *ViewHandler) GetAdminRequests(c *gin.Context) {
	r, ok := h.boundContract(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, presentPending(h.loader.LoadPendingRequests(c.Request.Context(), r)))
}

func (h *ViewHandler) GetAdminLoans(c *gin.Context) {
	r, ok := h.boundContract(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, presentAllLoans(h.loader.LoadAllLoans(c.Request.Context(), r)))
}

func (h *ViewHandler) boundContract(c *gin.Context) (*chain.Contract, bool) {
	contract, err := h.contract.Contract()
	if err != nil {
		h.viewError(c, err)
		return nil, false
	}
	return contract, true
}

func (h *ViewHandler) viewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoContract):
		c.JSON(http.StatusConflict, gin.H{"error": "no_contract", "message": "No contract address configured"})
	case errors.Is(err, view.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		writeError(c, err)
	}
}
