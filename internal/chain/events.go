package chain

import (
	"context"
	"sort"
)

// Event topics for the contract's log surface. Borrower/user is the second
// indexed argument on the loan events, the first on the staking events.
var (
	TopicLoanRequested        = EventTopic("LoanRequested(uint256,address,uint256,uint256,uint256,string)")
	TopicLoanApproved         = EventTopic("LoanApproved(uint256,uint256,address)")
	TopicLoanRejected         = EventTopic("LoanRejected(uint256,address,string,uint256)")
	TopicLoanCreated          = EventTopic("LoanCreated(uint256,address,uint256,uint256,uint256)")
	TopicStaked               = EventTopic("Staked(address,uint256,uint256)")
	TopicUnstaked             = EventTopic("Unstaked(address,uint256,uint256)")
	TopicExternalScoreUpdated = EventTopic("ExternalScoreUpdated(address,uint256,uint256)")
)

// borrowerTopicIndex maps topic0 to the topics slot carrying the address.
var borrowerTopicIndex = map[string]int{
	TopicLoanRequested: 2,
	TopicLoanCreated:   2,
}

// EnumerateParticipants derives the set of historical borrower addresses
// from LoanRequested and LoanCreated logs. It is the fallback used when the
// contract's direct registry enumeration is unavailable.
func EnumerateParticipants(ctx context.Context, rpc RPC, contractAddr string, fromBlock uint64) ([]string, error) {
	latest, err := rpc.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, topic := range []string{TopicLoanRequested, TopicLoanCreated} {
		logs, err := rpc.GetLogs(ctx, LogFilter{
			FromBlock: fromBlock,
			ToBlock:   latest,
			Address:   contractAddr,
			Topics:    []string{topic},
		})
		if err != nil {
			return nil, err
		}
		slot := borrowerTopicIndex[topic]
		for _, lg := range logs {
			if lg.Removed || len(lg.Topics) <= slot {
				continue
			}
			if addr, ok := topicAddress(lg.Topics[slot]); ok {
				seen[addr] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out, nil
}
