package postgres

import (
	"github.com/dileep812/credit-score/internal/gateway"
	"github.com/dileep812/credit-score/internal/session"
)

var (
	_ session.SettingsStore = (*SettingsRepository)(nil)
	_ gateway.Journal       = (*TxJournalRepository)(nil)
)
