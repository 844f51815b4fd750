package contractsapi

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/streampay/sdk-go/core/logging"
	"github.com/streampay/sdk-go/core/types"
	"github.com/streampay/sdk-go/core/util"
)

// maxValidators is the hard cap the manager contract enforces on its
// validator list. The client never submits more.
const maxValidators = 20

// StreamManager is the client-side binding of one deployed stream manager
// contract. It owns zero or more Streams and up to maxValidators
// Validators. MIN_STREAM_LIFE is immutable in the contract and cached after
// the first read; everything else is re-read on access.
type StreamManager struct {
	Address common.Address

	transport types.ChainTransport
	logger    *zap.Logger

	minStreamLife *time.Duration
}

// StreamManagerOptions configures LoadStreamManager.
type StreamManagerOptions struct {
	Transport types.ChainTransport `validate:"required"`
	Address   common.Address       `validate:"required"`
	Logger    *zap.Logger
}

// LoadStreamManager binds to a deployed stream manager contract.
func LoadStreamManager(opts StreamManagerOptions) (*StreamManager, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, errors.WithStack(err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}

	return &StreamManager{
		Address:   opts.Address,
		transport: opts.Transport,
		logger:    logger,
	}, nil
}

func (m *StreamManager) call(ctx context.Context, method string, args ...any) ([]any, error) {
	results, err := m.transport.Call(ctx, types.CallMsg{
		To:     m.Address,
		Method: method,
		Args:   args,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return results, nil
}

func (m *StreamManager) execute(ctx context.Context, method string, args []any, opts types.TxOptions) (*types.Receipt, error) {
	return m.transport.Execute(ctx, m.Address, method, args, opts)
}

// Controller returns the contract's controller address. Live read: the
// controller may hand off at any time.
func (m *StreamManager) Controller(ctx context.Context) (common.Address, error) {
	results, err := m.call(ctx, "controller")
	if err != nil {
		return common.Address{}, err
	}
	result, err := firstResult(results, "controller")
	if err != nil {
		return common.Address{}, err
	}
	return decodeAddress(result)
}

// SetController proposes a new controller for the contract.
func (m *StreamManager) SetController(ctx context.Context, controller common.Address, opts types.TxOptions) (*types.Receipt, error) {
	return m.execute(ctx, "set_controller", []any{controller}, opts)
}

// MinStreamLife returns the contract's minimum commitment window. The value
// is immutable in the contract, so it is read once and cached.
func (m *StreamManager) MinStreamLife(ctx context.Context) (time.Duration, error) {
	if m.minStreamLife != nil {
		return *m.minStreamLife, nil
	}

	results, err := m.call(ctx, "MIN_STREAM_LIFE")
	if err != nil {
		return 0, err
	}
	result, err := firstResult(results, "MIN_STREAM_LIFE")
	if err != nil {
		return 0, err
	}
	life, err := decodeSeconds(result)
	if err != nil {
		return 0, err
	}

	m.minStreamLife = &life
	return life, nil
}

// IsAccepted reports whether the token is in the manager's accepted set.
func (m *StreamManager) IsAccepted(ctx context.Context, token common.Address) (bool, error) {
	results, err := m.call(ctx, "token_is_accepted", token)
	if err != nil {
		return false, err
	}
	result, err := firstResult(results, "token_is_accepted")
	if err != nil {
		return false, err
	}
	return decodeBool(result)
}

// AddToken adds a token to the accepted set.
func (m *StreamManager) AddToken(ctx context.Context, token common.Address, opts types.TxOptions) (*types.Receipt, error) {
	return m.execute(ctx, "set_token_accepted", []any{token, true}, opts)
}

// RemoveToken removes a token from the accepted set.
func (m *StreamManager) RemoveToken(ctx context.Context, token common.Address, opts types.TxOptions) (*types.Receipt, error) {
	return m.execute(ctx, "set_token_accepted", []any{token, false}, opts)
}

// spendable returns min(balance, allowance) of the sender for the manager.
func (m *StreamManager) spendable(ctx context.Context, token, sender common.Address) (*big.Int, error) {
	balanceResults, err := m.transport.Call(ctx, types.CallMsg{
		To:     token,
		Method: "balanceOf",
		Args:   []any{sender},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	balanceRaw, err := firstResult(balanceResults, "balanceOf")
	if err != nil {
		return nil, err
	}
	balance, err := decodeBigInt(balanceRaw)
	if err != nil {
		return nil, err
	}

	allowanceResults, err := m.transport.Call(ctx, types.CallMsg{
		To:     token,
		Method: "allowance",
		Args:   []any{sender, m.Address},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	allowanceRaw, err := firstResult(allowanceResults, "allowance")
	if err != nil {
		return nil, err
	}
	allowance, err := decodeBigInt(allowanceRaw)
	if err != nil {
		return nil, err
	}

	if balance.Cmp(allowance) < 0 {
		return balance, nil
	}
	return allowance, nil
}

// ComputeFundingRate sums each validator's evaluation of the proposed
// stream. A validator that reverts is treated as contributing zero, not as
// a fatal failure.
func (m *StreamManager) ComputeFundingRate(
	ctx context.Context,
	funder common.Address,
	token common.Address,
	amount *big.Int,
	products [][]byte,
) (*big.Int, error) {
	validators, err := m.Validators(ctx)
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, v := range validators {
		contribution, err := v.Validate(ctx, funder, token, amount, products)
		if err != nil {
			if types.IsRevert(err) {
				continue
			}
			return nil, err
		}
		total.Add(total, contribution)
	}

	return total, nil
}

// Create creates a new stream after client-side pre-flight validation.
//
// The check order is load-bearing: accepted-token check, rate parsing,
// allowance check, then stream-life check, all before any state-changing
// submission, so a creation doomed to revert never costs the caller fees.
func (m *StreamManager) Create(ctx context.Context, input types.CreateStreamInput) (*Stream, error) {
	accepted, err := m.IsAccepted(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	if !accepted {
		return nil, &types.TokenNotAcceptedError{Token: input.Token}
	}

	// An explicit rate expression fixes the per-second rate up front; the
	// contract then draws the whole approved balance as the deposit. An
	// absolute amount leaves the rate to the validator set.
	amount := input.Amount
	explicitRate := big.NewInt(0)
	if input.Rate != "" {
		rate, err := util.RatePerSecond(input.Rate)
		if err != nil {
			return nil, err
		}
		explicitRate = rate
	} else if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("create requires a positive amount or a rate expression")
	}

	minStreamLife, err := m.MinStreamLife(ctx)
	if err != nil {
		return nil, err
	}
	if input.MinStreamLife != 0 {
		if input.MinStreamLife < minStreamLife {
			return nil, &types.StreamLifeInsufficientError{
				StreamLife:    input.MinStreamLife,
				MinStreamLife: minStreamLife,
			}
		}
		minStreamLife = input.MinStreamLife
	}

	if sender := input.TxOptions.Sender; sender != (common.Address{}) {
		available, err := m.spendable(ctx, input.Token, sender)
		if err != nil {
			return nil, err
		}

		amountPerSecond := explicitRate
		if explicitRate.Sign() > 0 {
			amount = available
		} else {
			if available.Cmp(amount) < 0 {
				return nil, &types.NotEnoughAllowanceError{
					Manager:   m.Address,
					Required:  amount,
					Available: available,
				}
			}

			amountPerSecond, err = m.ComputeFundingRate(ctx, sender, input.Token, amount, input.Products)
			if err != nil {
				return nil, err
			}
			if amountPerSecond.Sign() <= 0 {
				return nil, &types.NoValidProductsError{}
			}
		}

		streamLife, err := lifeOf(amount, amountPerSecond)
		if err != nil {
			return nil, err
		}
		if streamLife < minStreamLife {
			return nil, &types.StreamLifeInsufficientError{
				StreamLife:    streamLife,
				MinStreamLife: minStreamLife,
			}
		}
	}

	reason, err := types.EncodePayload(input.Reason)
	if err != nil {
		return nil, err
	}

	if amount == nil {
		amount = big.NewInt(0)
	}
	args := []any{input.Token, amount, explicitRate, input.Products, reason, int64(minStreamLife / time.Second)}
	receipt, err := m.execute(ctx, "create_stream", args, input.TxOptions)
	if err != nil {
		return nil, err
	}

	// A transaction may emit more than one creation event; the stream this
	// call created is always the most recent one.
	created := receipt.FilterLogs(types.EventStreamCreated)
	if len(created) == 0 {
		return nil, errors.New("create_stream receipt carries no creation event")
	}
	log := created[len(created)-1]

	stream, err := StreamFromEvent(m, log)
	if err != nil {
		return nil, err
	}
	stream.creationReceipt = receipt

	m.logger.Info("created stream",
		zap.String("manager", m.Address.Hex()),
		zap.String("id", stream.ID.String()),
		zap.String("txHash", receipt.TxHash.Hex()),
	)
	return stream, nil
}

// lifeOf is the rate-based stream life: funded amount over per-second rate,
// floored, clamped at the maximum representable duration.
func lifeOf(amount, amountPerSecond *big.Int) (time.Duration, error) {
	if amountPerSecond.Sign() <= 0 {
		return 0, &types.NoValidProductsError{}
	}
	seconds := new(big.Int).Quo(amount, amountPerSecond)
	return decodeSeconds(seconds)
}
