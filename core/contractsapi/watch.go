package contractsapi

import (
	"context"

	"go.uber.org/zap"

	"github.com/streampay/sdk-go/core/types"
)

// Event-driven discovery. Each watcher is a long-lived subscription that
// ends when ctx is cancelled; the returned channel closes afterwards.
//
// Events for the same stream may race across distinct event types (a fund
// and a cancel can arrive in either order), so the emitted Stream's live
// accessors, not the event payload, are the source of truth for current
// state.

func (m *StreamManager) watch(ctx context.Context, event string, startBlock uint64) (<-chan *Stream, error) {
	logs, err := m.transport.SubscribeLogs(ctx, types.LogQuery{
		Address:    m.Address,
		Event:      event,
		StartBlock: startBlock,
	})
	if err != nil {
		return nil, err
	}

	streams := make(chan *Stream)
	go func() {
		defer close(streams)
		for log := range logs {
			stream, err := StreamFromEvent(m, log)
			if err != nil {
				m.logger.Warn("dropping undecodable stream event",
					zap.String("event", log.Event), zap.Error(err))
				continue
			}
			select {
			case streams <- stream:
			case <-ctx.Done():
				return
			}
		}
	}()

	return streams, nil
}

// WatchCreatedStreams emits newly created streams as their creation events
// arrive, starting at the given block cursor.
func (m *StreamManager) WatchCreatedStreams(ctx context.Context, startBlock uint64) (<-chan *Stream, error) {
	return m.watch(ctx, types.EventStreamCreated, startBlock)
}

// WatchFundedStreams emits streams as deposits land on them.
func (m *StreamManager) WatchFundedStreams(ctx context.Context, startBlock uint64) (<-chan *Stream, error) {
	return m.watch(ctx, types.EventStreamFunded, startBlock)
}

// WatchClaimedStreams emits streams as their owners withdraw.
func (m *StreamManager) WatchClaimedStreams(ctx context.Context, startBlock uint64) (<-chan *Stream, error) {
	return m.watch(ctx, types.EventStreamClaimed, startBlock)
}

// WatchCancelledStreams emits streams as they are cancelled.
func (m *StreamManager) WatchCancelledStreams(ctx context.Context, startBlock uint64) (<-chan *Stream, error) {
	return m.watch(ctx, types.EventStreamCancelled, startBlock)
}
