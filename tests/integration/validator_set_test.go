package integration

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/types"
)

func validatorAddresses(t *testing.T, f *fixture) []common.Address {
	t.Helper()
	validators, err := f.manager.Validators(context.Background())
	require.NoError(t, err)

	addrs := make([]common.Address, len(validators))
	for i, v := range validators {
		addrs[i] = v.Address
	}
	return addrs
}

func TestValidatorSet(t *testing.T) {
	ctx := context.Background()
	opts := types.TxOptions{Sender: controller}

	t.Run("set sorts and deduplicates", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.SetValidators(ctx, opts,
			validatorHigh, validatorLow, validatorHigh, validatorMid.Hex())
		require.NoError(t, err)

		assert.Equal(t,
			[]common.Address{validatorLow, validatorMid, validatorHigh},
			validatorAddresses(t, f))
	})

	t.Run("add then remove leaves the difference, sorted", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.AddValidators(ctx, opts, validatorMid, validatorLow)
		require.NoError(t, err)
		require.Len(t, validatorAddresses(t, f), 2)

		_, err = f.manager.RemoveValidators(ctx, opts, validatorMid)
		require.NoError(t, err)

		assert.Equal(t, []common.Address{validatorLow}, validatorAddresses(t, f))
	})

	t.Run("replace preserves cardinality", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.SetValidators(ctx, opts, validatorLow, validatorMid)
		require.NoError(t, err)

		_, err = f.manager.ReplaceValidator(ctx, opts, validatorMid, validatorHigh)
		require.NoError(t, err)

		assert.Equal(t,
			[]common.Address{validatorLow, validatorHigh},
			validatorAddresses(t, f))
	})

	t.Run("probing stops at the end of the list", func(t *testing.T) {
		f := newFixture(t)
		assert.Empty(t, validatorAddresses(t, f))
	})

	t.Run("rejects oversized sets before submission", func(t *testing.T) {
		f := newFixture(t)

		refs := make([]api.ValidatorRef, 21)
		for i := range refs {
			refs[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
		}

		_, err := f.manager.SetValidators(ctx, opts, refs...)

		var tooMany *types.TooManyValidatorsError
		require.ErrorAs(t, err, &tooMany)
		assert.Equal(t, 21, tooMany.Count)
		assert.Equal(t, 20, tooMany.Max)
		assert.Zero(t, f.chain.executeCount, "oversized set must not submit")
	})

	t.Run("rejects unresolvable references", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.manager.SetValidators(ctx, opts, 42)
		require.Error(t, err)
	})
}
