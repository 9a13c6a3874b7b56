package aggregate

import "github.com/dileep812/credit-score/internal/chain"

var _ ContractReader = (*chain.Contract)(nil)
