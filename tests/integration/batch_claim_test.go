package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/types"
)

func TestClaimMany(t *testing.T) {
	ctx := context.Background()

	t.Run("batching transport shares one receipt", func(t *testing.T) {
		f := newFixture(t)
		first := newStream(t, f, 7200, nil)
		second := newStream(t, f, 7200, nil)
		f.chain.advance(10 * time.Minute)

		results, err := f.manager.ClaimMany(ctx, []*api.Stream{first, second}, types.TxOptions{Sender: payee})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.NoError(t, results[0].Err)
		assert.NoError(t, results[1].Err)
		assert.Same(t, results[0].Receipt, results[1].Receipt,
			"batched claims land in one submission")
		assert.Equal(t, int64(1200), f.token.balanceOf(payee).Int64())
	})

	t.Run("sequential fallback surfaces per-item failures", func(t *testing.T) {
		f := newFixture(t)
		manager, err := api.LoadStreamManager(api.StreamManagerOptions{
			Transport: &sequentialChain{chain: f.chain},
			Address:   managerAddr,
			Logger:    zap.NewNop(),
		})
		require.NoError(t, err)

		var streams []*api.Stream
		for i := 0; i < 3; i++ {
			f.token.mint(funder, 7200)
			f.token.approve(funder, managerAddr, 7200)
			stream, err := manager.Create(ctx, types.CreateStreamInput{
				Token:     tokenAddr,
				Rate:      "1/second",
				TxOptions: types.TxOptions{Sender: funder},
			})
			require.NoError(t, err)
			streams = append(streams, stream)
		}

		// The middle stream is cancelled and settles to zero claimable, so
		// its claim fails while its neighbors succeed.
		_, err = streams[1].Cancel(ctx, nil, types.TxOptions{Sender: controller})
		require.NoError(t, err)
		f.chain.advance(10 * time.Minute)

		results, err := manager.ClaimMany(ctx, streams, types.TxOptions{Sender: payee})
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.NoError(t, results[0].Err)
		assert.NotNil(t, results[0].Receipt)

		var notClaimable *types.FundsNotClaimableError
		assert.ErrorAs(t, results[1].Err, &notClaimable)
		assert.Nil(t, results[1].Receipt)

		assert.NoError(t, results[2].Err)
		assert.NotNil(t, results[2].Receipt)
		assert.NotSame(t, results[0].Receipt, results[2].Receipt,
			"sequential claims are independent submissions")

		assert.Equal(t, int64(1200), f.token.balanceOf(payee).Int64())
	})
}
