package integration

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampay/sdk-go/core/types"
)

func TestCreateStreamPreflight(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unlisted token before submission", func(t *testing.T) {
		f := newFixture(t)
		other := common.HexToAddress("0x00000000000000000000000000000000000000FF")

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     other,
			Amount:    big.NewInt(1000),
			TxOptions: types.TxOptions{Sender: funder},
		})

		var notAccepted *types.TokenNotAcceptedError
		require.ErrorAs(t, err, &notAccepted)
		assert.Equal(t, other, notAccepted.Token)
		assert.Zero(t, f.chain.executeCount, "failed pre-flight must not submit")
	})

	t.Run("rejects insufficient allowance before submission", func(t *testing.T) {
		f := newFixture(t)
		f.chain.managers[managerAddr].validators = []common.Address{validatorLow}
		f.chain.validators[validatorLow] = flatRateValidator(1)
		f.token.mint(funder, 10_000)
		f.token.approve(funder, managerAddr, 500)

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Amount:    big.NewInt(1000),
			TxOptions: types.TxOptions{Sender: funder},
		})

		var allowance *types.NotEnoughAllowanceError
		require.ErrorAs(t, err, &allowance)
		assert.Equal(t, int64(500), allowance.Available.Int64())
		assert.Equal(t, int64(1000), allowance.Required.Int64())
		assert.Zero(t, f.chain.executeCount)
	})

	t.Run("rejects stream life below the contract floor", func(t *testing.T) {
		f := newFixture(t)
		f.chain.managers[managerAddr].validators = []common.Address{validatorLow}
		// 1000 units at 10/sec is 100s of life against a 3600s floor.
		f.chain.validators[validatorLow] = flatRateValidator(10)
		f.token.mint(funder, 10_000)
		f.token.approve(funder, managerAddr, 10_000)

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Amount:    big.NewInt(1000),
			TxOptions: types.TxOptions{Sender: funder},
		})

		var life *types.StreamLifeInsufficientError
		require.ErrorAs(t, err, &life)
		assert.Equal(t, 100*time.Second, life.StreamLife)
		assert.Equal(t, time.Hour, life.MinStreamLife)
		assert.Zero(t, f.chain.executeCount)
	})

	t.Run("rejects when every validator rejects", func(t *testing.T) {
		f := newFixture(t)
		f.chain.managers[managerAddr].validators = []common.Address{validatorLow}
		f.chain.validators[validatorLow] = rejectingValidator()
		f.token.mint(funder, 10_000)
		f.token.approve(funder, managerAddr, 10_000)

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Amount:    big.NewInt(10_000),
			TxOptions: types.TxOptions{Sender: funder},
		})

		var noProducts *types.NoValidProductsError
		require.ErrorAs(t, err, &noProducts)
		assert.Zero(t, f.chain.executeCount)
	})

	t.Run("rejects explicit minimum life below the floor", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:         tokenAddr,
			Amount:        big.NewInt(10_000),
			MinStreamLife: 30 * time.Minute,
			TxOptions:     types.TxOptions{Sender: funder},
		})

		var life *types.StreamLifeInsufficientError
		require.ErrorAs(t, err, &life)
		assert.Equal(t, 30*time.Minute, life.StreamLife)
		assert.Zero(t, f.chain.executeCount)
	})

	t.Run("skipped validators contribute zero, not failure", func(t *testing.T) {
		f := newFixture(t)
		f.chain.managers[managerAddr].validators = []common.Address{validatorLow, validatorMid}
		f.chain.validators[validatorLow] = rejectingValidator()
		f.chain.validators[validatorMid] = flatRateValidator(1)
		f.token.mint(funder, 10_000)
		f.token.approve(funder, managerAddr, 10_000)

		rate, err := f.manager.ComputeFundingRate(ctx, funder, tokenAddr, big.NewInt(10_000), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rate.Int64())
	})
}

func TestCreateStream(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit rate draws the approved balance", func(t *testing.T) {
		f := newFixture(t)
		f.token.mint(funder, 3600)
		f.token.approve(funder, managerAddr, 3600)

		stream, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Rate:      "1/second",
			TxOptions: types.TxOptions{Sender: funder},
		})
		require.NoError(t, err)

		timeLeft, err := stream.TimeLeft(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3600*time.Second, timeLeft)

		// Funding extends life proportionally.
		f.token.mint(funder, 3600)
		f.token.approve(funder, managerAddr, 3600)
		_, err = stream.AddFunds(ctx, big.NewInt(3600), types.TxOptions{Sender: funder})
		require.NoError(t, err)

		timeLeft, err = stream.TimeLeft(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7200*time.Second, timeLeft)
	})

	t.Run("validator-based creation carries provenance", func(t *testing.T) {
		f := newFixture(t)
		f.chain.managers[managerAddr].validators = []common.Address{validatorLow}
		f.chain.validators[validatorLow] = flatRateValidator(2)
		f.token.mint(funder, 7200)
		f.token.approve(funder, managerAddr, 7200)

		stream, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Amount:    big.NewInt(7200),
			Products:  [][]byte{[]byte("hosting")},
			TxOptions: types.TxOptions{Sender: funder},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), stream.ID.Int64())

		receipt, err := stream.TransactionCreated(ctx)
		require.NoError(t, err)
		assert.Len(t, receipt.FilterLogs(types.EventStreamCreated), 1)

		// 7200 units at 2/sec is exactly the one-hour floor.
		timeLeft, err := stream.TimeLeft(ctx)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, timeLeft)
	})

	t.Run("bare streams carry no provenance", func(t *testing.T) {
		f := newFixture(t)
		f.token.mint(funder, 3600)
		f.token.approve(funder, managerAddr, 3600)

		created, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Rate:      "1/second",
			TxOptions: types.TxOptions{Sender: funder},
		})
		require.NoError(t, err)

		all, err := f.manager.AllStreams(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, created.ID, all[0].ID)

		_, err = all[0].TransactionCreated(ctx)
		var missing *types.MissingCreationReceiptError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("log-sourced streams can fetch their receipt", func(t *testing.T) {
		f := newFixture(t)
		f.token.mint(funder, 3600)
		f.token.approve(funder, managerAddr, 3600)

		_, err := f.manager.Create(ctx, types.CreateStreamInput{
			Token:     tokenAddr,
			Rate:      "1/second",
			TxOptions: types.TxOptions{Sender: funder},
		})
		require.NoError(t, err)

		fromLogs, err := f.manager.AllStreamsFromLogs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, fromLogs, 1)

		receipt, err := fromLogs[0].TransactionCreated(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, receipt.Logs)
	})
}

func TestEnumeration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.token.mint(funder, 20_000)

	// Explicit-rate creation draws exactly the approved amount.
	f.token.approve(funder, managerAddr, 7200)
	first, err := f.manager.Create(ctx, types.CreateStreamInput{
		Token:     tokenAddr,
		Rate:      "2/second",
		TxOptions: types.TxOptions{Sender: funder},
	})
	require.NoError(t, err)

	f.token.approve(funder, managerAddr, 3600)
	second, err := f.manager.Create(ctx, types.CreateStreamInput{
		Token:     tokenAddr,
		Rate:      "1/second",
		TxOptions: types.TxOptions{Sender: funder},
	})
	require.NoError(t, err)

	all, err := f.manager.AllStreams(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Controller cancels the first stream immediately.
	_, err = first.Cancel(ctx, nil, types.TxOptions{Sender: controller})
	require.NoError(t, err)

	active, err := f.manager.ActiveStreams(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	// Let the second stream accrue; it becomes claimable without ending.
	f.chain.advance(10 * time.Minute)

	unclaimed, err := f.manager.UnclaimedStreams(ctx)
	require.NoError(t, err)
	require.Len(t, unclaimed, 1)
	assert.Equal(t, second.ID, unclaimed[0].ID)
}
