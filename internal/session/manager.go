package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dileep812/credit-score/internal/chain"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrWalletUnavailable = errors.New("wallet unavailable")
	ErrUserRejected      = errors.New("user rejected connection")
	ErrWrongNetwork      = errors.New("wrong network")
	ErrNotConnected      = errors.New("no wallet connected")
	ErrNoContract        = errors.New("no contract configured")
)

type Identity struct {
	Address string `json:"address"`
	ChainID uint64 `json:"chainId"`
}

type ChainParams struct {
	ID       uint64
	Name     string
	Currency string
	Explorer string
	RPCURL   string
}

type EventType string

const (
	EventConnected       EventType = "connected"
	EventDisconnected    EventType = "disconnected"
	EventAccountChanged  EventType = "account_changed"
	EventNetworkChanged  EventType = "network_changed"
	EventContractChanged EventType = "contract_changed"
)

type Event struct {
	Type       EventType
	Identity   *Identity
	Generation uint64
}

type SettingsStore interface {
	GetContractAddress(ctx context.Context) (string, bool, error)
	SetContractAddress(ctx context.Context, addr string) error
}

// Manager owns the wallet session: current identity, generation counter and
// the contract handle. All mutations go through here; consumers read through
// accessors and must not cache the handle across an identity change.
type Manager struct {
	rpc      chain.RPC
	params   ChainParams
	admin    string
	gasLimit uint64
	settings SettingsStore
	logger   *slog.Logger

	mu           sync.RWMutex
	identity     *Identity
	contractAddr string
	contract     *chain.Contract
	generation   uint64
	subscribers  []func(Event)
}

func NewManager(ctx context.Context, rpc chain.RPC, params ChainParams, adminAddr, defaultContract string, gasLimit uint64, settings SettingsStore, logger *slog.Logger) (*Manager, error) {
	if !chain.IsHexAddress(adminAddr) {
		return nil, fmt.Errorf("invalid ADMIN_ADDRESS: %q", adminAddr)
	}
	m := &Manager{
		rpc:      rpc,
		params:   params,
		admin:    chain.NormalizeAddress(adminAddr),
		gasLimit: gasLimit,
		settings: settings,
		logger:   logger,
	}

	contractAddr := strings.TrimSpace(defaultContract)
	if settings != nil {
		stored, ok, err := settings.GetContractAddress(ctx)
		if err != nil {
			logger.Warn("failed to load stored contract address", "err", err)
		} else if ok {
			contractAddr = stored
		}
	}
	if contractAddr != "" {
		if err := m.rebuildContract(contractAddr); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) Subscribe(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Connect performs the wallet handshake: switch to the configured network,
// falling back to adding it when the wallet does not know the chain, then
// request account authorization.
func (m *Manager) Connect(ctx context.Context) (Identity, error) {
	if err := m.rpc.SwitchChain(ctx, m.params.ID); err != nil {
		var rpcErr *chain.RPCError
		switch {
		case errors.As(err, &rpcErr) && rpcErr.Code == chain.CodeUnknownChain:
			if addErr := m.addChain(ctx); addErr != nil {
				return Identity{}, fmt.Errorf("%w: %v", ErrWrongNetwork, addErr)
			}
		case errors.As(err, &rpcErr) && rpcErr.Code == chain.CodeUserRejected:
			return Identity{}, ErrUserRejected
		case errors.As(err, &rpcErr):
			return Identity{}, fmt.Errorf("%w: %v", ErrWrongNetwork, err)
		default:
			return Identity{}, fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
		}
	}

	accounts, err := m.rpc.RequestAccounts(ctx)
	if err != nil {
		var rpcErr *chain.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == chain.CodeUserRejected {
			return Identity{}, ErrUserRejected
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
	}
	if len(accounts) == 0 || !chain.IsHexAddress(accounts[0]) {
		return Identity{}, ErrWalletUnavailable
	}

	identity := Identity{Address: chain.NormalizeAddress(accounts[0]), ChainID: m.params.ID}

	m.mu.Lock()
	m.identity = &identity
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.logger.Info("wallet connected", "address", identity.Address, "chain_id", identity.ChainID)
	m.notify(Event{Type: EventConnected, Identity: &identity, Generation: gen})
	return identity, nil
}

func (m *Manager) addChain(ctx context.Context) error {
	return m.rpc.AddChain(ctx, chain.AddChainParams{
		ChainID:           fmt.Sprintf("0x%x", m.params.ID),
		ChainName:         m.params.Name,
		RPCURLs:           []string{m.params.RPCURL},
		NativeCurrency:    chain.Currency{Name: m.params.Currency, Symbol: m.params.Currency, Decimals: 18},
		BlockExplorerURLs: []string{m.params.Explorer},
	})
}

// Disconnect clears the identity synchronously. No on-chain action.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.identity = nil
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.logger.Info("wallet disconnected")
	m.notify(Event{Type: EventDisconnected, Generation: gen})
}

// AccountChanged handles an external account switch reported by the wallet.
// An empty address means the wallet dropped the session.
func (m *Manager) AccountChanged(address string) {
	if strings.TrimSpace(address) == "" {
		m.Disconnect()
		return
	}
	if !chain.IsHexAddress(address) {
		m.logger.Warn("ignoring account change to malformed address", "address", address)
		return
	}
	identity := Identity{Address: chain.NormalizeAddress(address), ChainID: m.params.ID}

	m.mu.Lock()
	m.identity = &identity
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.notify(Event{Type: EventAccountChanged, Identity: &identity, Generation: gen})
}

// NetworkChanged forces a full invalidation, equivalent to disconnect.
func (m *Manager) NetworkChanged(chainID uint64) {
	m.mu.Lock()
	m.identity = nil
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.logger.Info("network changed, session invalidated", "chain_id", chainID)
	m.notify(Event{Type: EventNetworkChanged, Generation: gen})
}

// SetContractAddress validates and persists the configured contract address,
// then rebuilds the handle. Invalid input leaves stored state untouched.
func (m *Manager) SetContractAddress(ctx context.Context, addr string) error {
	if !chain.IsHexAddress(addr) {
		return chain.NewValidationError("invalid contract address")
	}
	normalized := chain.NormalizeAddress(addr)
	if m.settings != nil {
		if err := m.settings.SetContractAddress(ctx, normalized); err != nil {
			return fmt.Errorf("persist contract address: %w", err)
		}
	}
	if err := m.rebuildContract(normalized); err != nil {
		return err
	}

	m.mu.RLock()
	gen := m.generation
	identity := m.identity
	m.mu.RUnlock()
	m.notify(Event{Type: EventContractChanged, Identity: identity, Generation: gen})
	return nil
}

func (m *Manager) rebuildContract(addr string) error {
	contract, err := chain.NewContract(m.rpc, addr, m.gasLimit)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.contractAddr = contract.Address()
	m.contract = contract
	m.mu.Unlock()
	return nil
}

func (m *Manager) Identity() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return Identity{}, false
	}
	return *m.identity, true
}

func (m *Manager) Contract() (*chain.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.contract == nil {
		return nil, ErrNoContract
	}
	return m.contract, nil
}

func (m *Manager) ContractAddress() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contractAddr
}

func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation
}

// IsCurrent reports whether results started under gen may still be rendered.
func (m *Manager) IsCurrent(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation == gen
}

// IsAdmin is a pure function of address identity, case-insensitive.
func (m *Manager) IsAdmin(address string) bool {
	return chain.NormalizeAddress(address) == m.admin
}

// Role is recomputed from the current address on every call, never cached.
func (m *Manager) Role() (string, bool) {
	identity, ok := m.Identity()
	if !ok {
		return "", false
	}
	if m.IsAdmin(identity.Address) {
		return RoleAdmin, true
	}
	return RoleUser, true
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	subs := make([]func(Event), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
