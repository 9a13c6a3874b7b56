package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dileep812/credit-score/internal/chain"
)

type fakeRPC struct {
	chain.RPC
	switchErr    error
	addErr       error
	addCalled    bool
	switchCalls  int
	accounts     []string
	accountsErr  error
	afterAddOnly bool
}

func (f *fakeRPC) SwitchChain(_ context.Context, _ uint64) error {
	f.switchCalls++
	if f.afterAddOnly && f.addCalled {
		return nil
	}
	return f.switchErr
}

func (f *fakeRPC) AddChain(_ context.Context, _ chain.AddChainParams) error {
	f.addCalled = true
	return f.addErr
}

func (f *fakeRPC) RequestAccounts(_ context.Context) ([]string, error) {
	return f.accounts, f.accountsErr
}

type fakeSettings struct {
	addr    string
	stored  bool
	setErr  error
	getErr  error
	setArgs []string
}

func (f *fakeSettings) GetContractAddress(_ context.Context) (string, bool, error) {
	return f.addr, f.stored, f.getErr
}

func (f *fakeSettings) SetContractAddress(_ context.Context, addr string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setArgs = append(f.setArgs, addr)
	f.addr = addr
	f.stored = true
	return nil
}

const (
	adminAddr    = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	userAddr     = "0x1111111111111111111111111111111111111111"
	contractAddr = "0x3333333333333333333333333333333333333333"
)

func testParams() ChainParams {
	return ChainParams{ID: 11155111, Name: "Sepolia", Currency: "ETH", Explorer: "https://sepolia.etherscan.io/", RPCURL: "http://localhost:8545"}
}

func newTestManager(t *testing.T, rpc *fakeRPC, settings SettingsStore) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), rpc, testParams(), adminAddr, contractAddr, 300000, settings, slog.Default())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestConnectSuccess(t *testing.T) {
	rpc := &fakeRPC{accounts: []string{userAddr}}
	m := newTestManager(t, rpc, nil)

	identity, err := m.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if identity.Address != userAddr {
		t.Fatalf("unexpected address: %s", identity.Address)
	}
	if identity.ChainID != 11155111 {
		t.Fatalf("unexpected chain: %d", identity.ChainID)
	}
	if _, ok := m.Identity(); !ok {
		t.Fatal("identity not stored")
	}
}

func TestConnectAddsUnknownChain(t *testing.T) {
	rpc := &fakeRPC{
		switchErr:    &chain.RPCError{Code: chain.CodeUnknownChain, Message: "Unrecognized chain ID"},
		accounts:     []string{userAddr},
		afterAddOnly: true,
	}
	m := newTestManager(t, rpc, nil)

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !rpc.addCalled {
		t.Fatal("expected wallet_addEthereumChain fallback")
	}
}

func TestConnectAddChainFails(t *testing.T) {
	rpc := &fakeRPC{
		switchErr: &chain.RPCError{Code: chain.CodeUnknownChain, Message: "Unrecognized chain ID"},
		addErr:    &chain.RPCError{Code: chain.CodeUserRejected, Message: "User rejected"},
	}
	m := newTestManager(t, rpc, nil)

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrWrongNetwork) {
		t.Fatalf("expected ErrWrongNetwork, got %v", err)
	}
}

func TestConnectUserRejected(t *testing.T) {
	rpc := &fakeRPC{accountsErr: &chain.RPCError{Code: chain.CodeUserRejected, Message: "User rejected"}}
	m := newTestManager(t, rpc, nil)

	_, err := m.Connect(context.Background())
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
}

func TestDisconnectInvalidatesGeneration(t *testing.T) {
	rpc := &fakeRPC{accounts: []string{userAddr}}
	m := newTestManager(t, rpc, nil)

	if _, err := m.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	gen := m.Generation()
	if !m.IsCurrent(gen) {
		t.Fatal("fresh generation should be current")
	}

	m.Disconnect()
	if m.IsCurrent(gen) {
		t.Fatal("stale generation must not be current after disconnect")
	}
	if _, ok := m.Identity(); ok {
		t.Fatal("identity should be cleared")
	}
}

func TestAccountChangedEmptyDisconnects(t *testing.T) {
	rpc := &fakeRPC{accounts: []string{userAddr}}
	m := newTestManager(t, rpc, nil)
	_, _ = m.Connect(context.Background())

	var events []EventType
	m.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	m.AccountChanged("")
	if _, ok := m.Identity(); ok {
		t.Fatal("identity should be cleared")
	}
	if len(events) != 1 || events[0] != EventDisconnected {
		t.Fatalf("unexpected events: %v", events)
	}
}

func TestNetworkChangedClearsIdentity(t *testing.T) {
	rpc := &fakeRPC{accounts: []string{userAddr}}
	m := newTestManager(t, rpc, nil)
	_, _ = m.Connect(context.Background())
	gen := m.Generation()

	m.NetworkChanged(1)
	if m.IsCurrent(gen) {
		t.Fatal("generation must advance on network change")
	}
	if _, ok := m.Identity(); ok {
		t.Fatal("identity should be cleared on network change")
	}
}

func TestSetContractAddressRejectsInvalid(t *testing.T) {
	settings := &fakeSettings{}
	m := newTestManager(t, &fakeRPC{}, settings)

	err := m.SetContractAddress(context.Background(), "0x123")
	ce := chain.Classify(err)
	if ce.Kind != chain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(settings.setArgs) != 0 {
		t.Fatal("stored state must not change on invalid input")
	}
	if m.ContractAddress() != contractAddr {
		t.Fatalf("contract handle must not change, got %s", m.ContractAddress())
	}
}

func TestSetContractAddressPersistsAndRebuilds(t *testing.T) {
	settings := &fakeSettings{}
	m := newTestManager(t, &fakeRPC{}, settings)

	next := "0x4444444444444444444444444444444444444444"
	if err := m.SetContractAddress(context.Background(), next); err != nil {
		t.Fatalf("set contract address: %v", err)
	}
	if settings.addr != next {
		t.Fatalf("address not persisted: %s", settings.addr)
	}
	if m.ContractAddress() != next {
		t.Fatalf("handle not rebuilt: %s", m.ContractAddress())
	}
}

func TestManagerLoadsStoredContractAddress(t *testing.T) {
	stored := "0x5555555555555555555555555555555555555555"
	settings := &fakeSettings{addr: stored, stored: true}
	m := newTestManager(t, &fakeRPC{}, settings)

	if m.ContractAddress() != stored {
		t.Fatalf("expected stored address, got %s", m.ContractAddress())
	}
}

func TestIsAdminCaseInsensitive(t *testing.T) {
	m := newTestManager(t, &fakeRPC{}, nil)
	if !m.IsAdmin("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Fatal("lowercase admin address should match")
	}
	if !m.IsAdmin("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa") {
		t.Fatal("mixed-case admin address should match")
	}
	if m.IsAdmin(userAddr) {
		t.Fatal("non-admin address must not match")
	}
}

func TestRoleRecomputedFromAddress(t *testing.T) {
	rpc := &fakeRPC{accounts: []string{userAddr}}
	m := newTestManager(t, rpc, nil)

	if _, ok := m.Role(); ok {
		t.Fatal("role should be absent while disconnected")
	}
	_, _ = m.Connect(context.Background())
	if role, _ := m.Role(); role != RoleUser {
		t.Fatalf("unexpected role: %s", role)
	}
	m.AccountChanged(adminAddr)
	if role, _ := m.Role(); role != RoleAdmin {
		t.Fatalf("unexpected role after switch: %s", role)
	}
}
