package view

import (
	"github.com/dileep812/credit-score/internal/aggregate"
	"github.com/dileep812/credit-score/internal/session"
)

var (
	_ Session    = (*session.Manager)(nil)
	_ Aggregator = (*aggregate.Aggregator)(nil)
)
