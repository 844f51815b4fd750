package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StreamInfo is the projection of one stream's on-chain fields, read as an
// immutable snapshot.
//
// Field categories (load-bearing for client-side caching):
//   - immutable once set: Token, AmountPerSecond, StartTime, Products, Reason, Owner
//   - live, mutated by funding/claim/cancel: FundedAmount, LastPull
type StreamInfo struct {
	Token           common.Address
	AmountPerSecond *big.Int
	StartTime       time.Time
	Products        [][]byte
	Reason          []byte
	Owner           common.Address
	FundedAmount    *big.Int
	LastPull        time.Time
}

// CreateStreamInput is the input for StreamManager.Create.
type CreateStreamInput struct {
	// Token is the funding asset. Must be in the manager's accepted set.
	Token common.Address `validate:"required"`
	// Amount is the total deposit, in the token's smallest unit. Exactly one
	// of Amount and Rate must be set.
	Amount *big.Int
	// Rate expresses the deposit as "<amount>/<unit>" (e.g. "100/day"),
	// converted to a per-second rate before submission.
	Rate string
	// Products is the opaque payload list evaluated by the validator set.
	Products [][]byte
	// Reason is an optional funding memo: nil, []byte, string, or any
	// JSON-marshalable value.
	Reason any
	// MinStreamLife optionally overrides the contract's floor. It may not be
	// below the floor.
	MinStreamLife time.Duration
	// TxOptions carries the sender context; allowance checks are skipped
	// when the sender is the zero address.
	TxOptions TxOptions
}

// Event names emitted by the manager contract.
const (
	EventStreamCreated   = "StreamCreated"
	EventStreamFunded    = "StreamFunded"
	EventStreamClaimed   = "Claimed"
	EventStreamCancelled = "StreamCancelled"
)

// MaxStreamDuration clamps time-left computations when the funding rate is
// small enough that the naive quotient would not fit a time.Duration.
const MaxStreamDuration = time.Duration(1<<63 - 1)
