package contractsapi

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/streampay/sdk-go/core/types"
)

// decimalCtx sizes decimal arithmetic for 256-bit token amounts.
var decimalCtx = apd.BaseContext.WithPrecision(78)

// Stream is the client-side projection of one funding stream. Accessors
// issue independent round-trips to the ledger; fields the contract can
// never change (token, rate, start time, products) are cached after the
// first successful read, everything else is re-read on every access.
type Stream struct {
	Manager *StreamManager
	ID      *big.Int

	// Creation provenance. Either may be absent for streams built from
	// bare identifiers.
	creationReceipt *types.Receipt
	txHash          *common.Hash

	// Immutable-once-set caches, filled together on the first snapshot.
	cached          bool
	token           *common.Address
	amountPerSecond *big.Int
	startTime       *time.Time
	products        [][]byte
	reason          []byte

	tokenDecimals *int64
}

// NewStream binds to an existing stream by identifier. The result carries
// no creation provenance; TransactionCreated fails on it unless a
// transaction hash is attached later.
func NewStream(manager *StreamManager, id *big.Int) *Stream {
	return &Stream{Manager: manager, ID: id}
}

// StreamFromEvent builds a stream from an emitted creation (or lifecycle)
// event. The log's transaction hash is kept as provenance.
func StreamFromEvent(manager *StreamManager, log types.Log) (*Stream, error) {
	raw, ok := log.Args["stream_id"]
	if !ok {
		raw, ok = log.Args["id"]
	}
	if !ok {
		return nil, errors.Errorf("%s event carries no stream id", log.Event)
	}

	id, err := decodeBigInt(raw)
	if err != nil {
		return nil, err
	}

	txHash := log.TxHash
	return &Stream{Manager: manager, ID: id, txHash: &txHash}, nil
}

// TransactionCreated returns the receipt of the transaction that created
// this stream. Streams built from bare identifiers have no provenance and
// fail with MissingCreationReceiptError.
func (s *Stream) TransactionCreated(ctx context.Context) (*types.Receipt, error) {
	if s.creationReceipt != nil {
		return s.creationReceipt, nil
	}

	if s.txHash != nil {
		receipt, err := s.Manager.transport.ReceiptByHash(ctx, *s.txHash)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return receipt, nil
	}

	return nil, &types.MissingCreationReceiptError{StreamID: s.ID}
}

// Info reads the stream's on-chain fields as one snapshot.
func (s *Stream) Info(ctx context.Context) (*types.StreamInfo, error) {
	results, err := s.Manager.call(ctx, "streams", s.ID)
	if err != nil {
		return nil, err
	}
	result, err := firstResult(results, "streams")
	if err != nil {
		return nil, err
	}
	return decodeStreamInfo(result)
}

// cacheImmutable fills the immutable-once-set caches from a snapshot.
func (s *Stream) cacheImmutable(info *types.StreamInfo) {
	if s.cached {
		return
	}
	token := info.Token
	s.token = &token
	s.amountPerSecond = info.AmountPerSecond
	start := info.StartTime
	s.startTime = &start
	s.products = info.Products
	s.reason = info.Reason
	s.cached = true
}

// Token returns the funding asset address. Immutable, cached.
func (s *Stream) Token(ctx context.Context) (common.Address, error) {
	if s.token != nil {
		return *s.token, nil
	}
	info, err := s.Info(ctx)
	if err != nil {
		return common.Address{}, err
	}
	s.cacheImmutable(info)
	return info.Token, nil
}

// AmountPerSecond returns the fixed unlock rate in the token's smallest
// unit. Immutable, cached.
func (s *Stream) AmountPerSecond(ctx context.Context) (*big.Int, error) {
	if s.amountPerSecond != nil {
		return s.amountPerSecond, nil
	}
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheImmutable(info)
	return info.AmountPerSecond, nil
}

// StartTime returns the creation timestamp. Immutable, cached.
func (s *Stream) StartTime(ctx context.Context) (time.Time, error) {
	if s.startTime != nil {
		return *s.startTime, nil
	}
	info, err := s.Info(ctx)
	if err != nil {
		return time.Time{}, err
	}
	s.cacheImmutable(info)
	return info.StartTime, nil
}

// Products returns the raw product payloads. Immutable, cached.
func (s *Stream) Products(ctx context.Context) ([][]byte, error) {
	if s.cached {
		return s.products, nil
	}
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheImmutable(info)
	return info.Products, nil
}

// Reason returns the funding memo decoded best-effort: raw bytes, then
// UTF-8 text, then JSON, falling back to the previous representation at
// each step. Never an error.
func (s *Stream) Reason(ctx context.Context) (types.Payload, error) {
	if !s.cached {
		info, err := s.Info(ctx)
		if err != nil {
			return types.Payload{}, err
		}
		s.cacheImmutable(info)
	}
	return types.DecodePayload(s.reason), nil
}

// Owner returns the address entitled to unlocked funds.
func (s *Stream) Owner(ctx context.Context) (common.Address, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return info.Owner, nil
}

// LastPull returns the timestamp of the last accounting checkpoint. Live:
// claims and cancels advance it.
func (s *Stream) LastPull(ctx context.Context) (time.Time, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return info.LastPull, nil
}

// FundedAmount returns the cumulative amount ever deposited. Live,
// monotonically non-decreasing.
func (s *Stream) FundedAmount(ctx context.Context) (*big.Int, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	return info.FundedAmount, nil
}

// TokenDecimals reads (and caches) the token's decimal scale.
func (s *Stream) TokenDecimals(ctx context.Context) (int64, error) {
	if s.tokenDecimals != nil {
		return *s.tokenDecimals, nil
	}

	token, err := s.Token(ctx)
	if err != nil {
		return 0, err
	}

	results, err := s.Manager.transport.Call(ctx, types.CallMsg{
		To:     token,
		Method: "decimals",
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	result, err := firstResult(results, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, err := decodeInt64(result)
	if err != nil {
		return 0, err
	}

	s.tokenDecimals = &decimals
	return decimals, nil
}

// TokenSymbol reads the token's ticker symbol.
func (s *Stream) TokenSymbol(ctx context.Context) (string, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return "", err
	}

	results, err := s.Manager.transport.Call(ctx, types.CallMsg{
		To:     token,
		Method: "symbol",
	})
	if err != nil {
		return "", errors.WithStack(err)
	}
	result, err := firstResult(results, "symbol")
	if err != nil {
		return "", err
	}
	symbol, ok := result.(string)
	if !ok {
		return "", errors.Errorf("invalid symbol type: %T", result)
	}
	return symbol, nil
}

// FundingRate returns the unlock rate in whole tokens per second, in
// human-readable decimal form.
func (s *Stream) FundingRate(ctx context.Context) (*apd.Decimal, error) {
	amountPerSecond, err := s.AmountPerSecond(ctx)
	if err != nil {
		return nil, err
	}
	decimals, err := s.TokenDecimals(ctx)
	if err != nil {
		return nil, err
	}

	var rate apd.Decimal
	rate.Coeff.SetMathBigInt(amountPerSecond)
	rate.Exponent = int32(-decimals)
	return &rate, nil
}

// EstimateFunding returns how many whole tokens sustain the stream for the
// given period: period seconds times the funding rate, exact to the token's
// fixed-point scale.
func (s *Stream) EstimateFunding(ctx context.Context, period time.Duration) (*apd.Decimal, error) {
	rate, err := s.FundingRate(ctx)
	if err != nil {
		return nil, err
	}

	seconds := apd.New(int64(period/time.Second), 0)
	estimate := new(apd.Decimal)
	if _, err := decimalCtx.Mul(estimate, seconds, rate); err != nil {
		return nil, errors.Wrap(err, "estimate funding")
	}
	return estimate, nil
}

// AmountClaimable returns the balance the owner can withdraw right now.
// Live, non-decreasing between claims, capped at the funded amount.
func (s *Stream) AmountClaimable(ctx context.Context) (*big.Int, error) {
	results, err := s.Manager.call(ctx, "amount_claimable", s.ID)
	if err != nil {
		return nil, err
	}
	result, err := firstResult(results, "amount_claimable")
	if err != nil {
		return nil, err
	}
	return decodeBigInt(result)
}

// AmountRefundable returns what would go back to the funder on an
// immediate cancel: funded amount minus the claimable share.
func (s *Stream) AmountRefundable(ctx context.Context) (*big.Int, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	claimable, err := s.AmountClaimable(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(info.FundedAmount, claimable), nil
}

// TimeLeft returns the remaining stream life. Zero once exhausted or
// cancelled, and clamped at the maximum representable duration for very
// small rates.
func (s *Stream) TimeLeft(ctx context.Context) (time.Duration, error) {
	results, err := s.Manager.call(ctx, "time_left", s.ID)
	if err != nil {
		return 0, err
	}
	result, err := firstResult(results, "time_left")
	if err != nil {
		return 0, err
	}
	return decodeSeconds(result)
}

// TotalTime returns the stream's full lifespan: elapsed accounted time plus
// the remaining life of the unclaimed balance.
func (s *Stream) TotalTime(ctx context.Context) (time.Duration, error) {
	info, err := s.Info(ctx)
	if err != nil {
		return 0, err
	}

	remaining, err := lifeOf(info.FundedAmount, info.AmountPerSecond)
	if err != nil {
		return 0, err
	}

	// last_pull == start_time if never pulled.
	elapsed := info.LastPull.Sub(info.StartTime)
	return elapsed + remaining, nil
}

// IsActive reports whether the stream still has life left.
func (s *Stream) IsActive(ctx context.Context) (bool, error) {
	timeLeft, err := s.TimeLeft(ctx)
	if err != nil {
		return false, err
	}
	return timeLeft > 0, nil
}

// AddFunds deposits more of the stream's token, extending its life. The
// contract rejects deposits to an ended stream; that revert surfaces
// unmodified.
func (s *Stream) AddFunds(ctx context.Context, amount *big.Int, opts types.TxOptions) (*types.Receipt, error) {
	return s.Manager.execute(ctx, "fund_stream", []any{s.ID, amount}, opts)
}

// IsCancelable reports whether the stream's funder may cancel it yet. The
// contract measures eligibility from the later of the start time and the
// last funding checkpoint, inclusive at exactly the minimum stream life.
func (s *Stream) IsCancelable(ctx context.Context) (bool, error) {
	results, err := s.Manager.call(ctx, "stream_is_cancelable", s.ID)
	if err != nil {
		return false, err
	}
	result, err := firstResult(results, "stream_is_cancelable")
	if err != nil {
		return false, err
	}
	return decodeBool(result)
}

// Cancel ends the stream: the claimable share settles to the owner and the
// remainder returns to the funder. Before the minimum commitment window
// only the contract controller may cancel; the guard is checked client-side
// so non-controllers fail before paying for a doomed transaction.
func (s *Stream) Cancel(ctx context.Context, reason any, opts types.TxOptions) (*types.Receipt, error) {
	cancelable, err := s.IsCancelable(ctx)
	if err != nil {
		return nil, err
	}

	if !cancelable {
		controller, err := s.Manager.Controller(ctx)
		if err != nil {
			return nil, err
		}
		if opts.Sender != controller {
			timeLeft, err := s.TimeLeft(ctx)
			if err != nil {
				return nil, err
			}
			return nil, &types.StreamNotCancellableError{TimeLeft: timeLeft}
		}
	}

	encoded, err := types.EncodePayload(reason)
	if err != nil {
		return nil, err
	}

	return s.Manager.execute(ctx, "cancel_stream", []any{s.ID, encoded}, opts)
}

// Claim withdraws the unlocked balance to the owner and advances the
// accounting checkpoint. Guarded client-side: claiming zero is a domain
// error, not a wasted transaction.
func (s *Stream) Claim(ctx context.Context, opts types.TxOptions) (*types.Receipt, error) {
	claimable, err := s.AmountClaimable(ctx)
	if err != nil {
		return nil, err
	}
	if claimable.Sign() <= 0 {
		return nil, &types.FundsNotClaimableError{}
	}

	return s.Manager.execute(ctx, "claim_stream", []any{s.ID}, opts)
}
