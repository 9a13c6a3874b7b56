package gateway

import (
	"github.com/dileep812/credit-score/internal/chain"
	"github.com/dileep812/credit-score/internal/session"
	"github.com/dileep812/credit-score/internal/view"
)

var (
	_ ContractWriter = (*chain.Contract)(nil)
	_ Session        = (*session.Manager)(nil)
	_ Refresher      = (*view.Controller)(nil)
)
