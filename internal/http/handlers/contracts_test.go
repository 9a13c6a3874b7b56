package handlers

import (
	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/gateway"
	"github.com/dileep812/credit-score/internal/repository/postgres"
	"github.com/dileep812/credit-score/internal/session"
	"github.com/dileep812/credit-score/internal/view"
)

var (
	_ SessionService        = (*session.Manager)(nil)
	_ SettingsService       = (*session.Manager)(nil)
	_ ContractAddressSource = (*session.Manager)(nil)
	_ ContractSource        = (*session.Manager)(nil)
	_ ViewService           = (*view.Controller)(nil)
	_ AdminLoader           = (*aggregate.Aggregator)(nil)
	_ TxService             = (*gateway.Gateway)(nil)
	_ JournalReader         = (*postgres.TxJournalRepository)(nil)
)
