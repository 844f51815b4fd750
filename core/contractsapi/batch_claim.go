package contractsapi

import (
	"context"

	"github.com/streampay/sdk-go/core/types"
)

// ClaimResult is the per-stream outcome of a bulk claim. With a batching
// transport every entry shares one receipt; with the sequential fallback
// each entry succeeds or fails independently.
type ClaimResult struct {
	Stream  *Stream
	Receipt *types.Receipt
	Err     error
}

// ClaimMany withdraws the unlocked balance of many streams. When the
// transport supports batching, all claims go out as a single atomic
// submission so the whole write set lands at one state height; otherwise
// they are submitted sequentially and partial success is surfaced per item,
// never swallowed.
func (m *StreamManager) ClaimMany(ctx context.Context, streams []*Stream, opts types.TxOptions) ([]ClaimResult, error) {
	results := make([]ClaimResult, len(streams))
	for i, stream := range streams {
		results[i].Stream = stream
	}

	if batcher, ok := m.transport.(types.BatchTransport); ok {
		calls := make([]types.BatchCall, len(streams))
		for i, stream := range streams {
			calls[i] = types.BatchCall{
				To:     m.Address,
				Method: "claim_stream",
				Args:   []any{stream.ID},
			}
		}

		receipt, err := batcher.ExecuteBatch(ctx, calls, opts)
		if err != nil {
			return nil, err
		}
		for i := range results {
			results[i].Receipt = receipt
		}
		return results, nil
	}

	for i, stream := range streams {
		receipt, err := stream.Claim(ctx, opts)
		results[i].Receipt = receipt
		results[i].Err = err
	}
	return results, nil
}
