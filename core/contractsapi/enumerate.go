package contractsapi

import (
	"context"
	"math/big"

	"github.com/streampay/sdk-go/core/types"
)

// Enumeration re-queries the ledger on every call and never caches across
// calls: contract state can change between any two invocations, and each
// returned Stream reads its own live state lazily.

// NumStreams returns how many streams the manager has ever created.
func (m *StreamManager) NumStreams(ctx context.Context) (int64, error) {
	results, err := m.call(ctx, "num_streams")
	if err != nil {
		return 0, err
	}
	result, err := firstResult(results, "num_streams")
	if err != nil {
		return 0, err
	}
	return decodeInt64(result)
}

// AllStreams enumerates every stream ever created by this manager,
// including ended ones; streams are historical records and are never
// deleted.
func (m *StreamManager) AllStreams(ctx context.Context) ([]*Stream, error) {
	count, err := m.NumStreams(ctx)
	if err != nil {
		return nil, err
	}

	streams := make([]*Stream, 0, count)
	for id := int64(0); id < count; id++ {
		streams = append(streams, NewStream(m, big.NewInt(id)))
	}
	return streams, nil
}

// AllStreamsFromLogs enumerates streams through the creation event log,
// starting at the given block. Streams built this way carry transaction
// provenance.
func (m *StreamManager) AllStreamsFromLogs(ctx context.Context, startBlock uint64) ([]*Stream, error) {
	logs, err := m.transport.FilterLogs(ctx, types.LogQuery{
		Address:    m.Address,
		Event:      types.EventStreamCreated,
		StartBlock: startBlock,
	})
	if err != nil {
		return nil, err
	}

	streams := make([]*Stream, 0, len(logs))
	for _, log := range logs {
		stream, err := StreamFromEvent(m, log)
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

// ActiveStreams returns the streams with life left.
func (m *StreamManager) ActiveStreams(ctx context.Context) ([]*Stream, error) {
	all, err := m.AllStreams(ctx)
	if err != nil {
		return nil, err
	}

	var active []*Stream
	for _, stream := range all {
		ok, err := stream.IsActive(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			active = append(active, stream)
		}
	}
	return active, nil
}

// UnclaimedStreams returns the streams with a positive claimable balance,
// regardless of whether they are still active: funds stay claimable after a
// stream ends.
func (m *StreamManager) UnclaimedStreams(ctx context.Context) ([]*Stream, error) {
	all, err := m.AllStreams(ctx)
	if err != nil {
		return nil, err
	}

	var unclaimed []*Stream
	for _, stream := range all {
		claimable, err := stream.AmountClaimable(ctx)
		if err != nil {
			return nil, err
		}
		if claimable.Sign() > 0 {
			unclaimed = append(unclaimed, stream)
		}
	}
	return unclaimed, nil
}
