package types

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxOptions carries the sender/fee context for a state-changing call.
// Sender is required for any call whose pre-flight checks depend on the
// caller's balance or allowance.
type TxOptions struct {
	Sender   common.Address
	GasLimit uint64
	Value    *big.Int
}

// Log is one event emitted by a contract during a transaction.
type Log struct {
	Event       string
	Args        map[string]any
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	Index       uint
}

// Receipt is the result of a submitted state-changing call.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	Sender      common.Address
	Logs        []Log
}

// FilterLogs returns the logs in the receipt matching the given event name,
// in emission order.
func (r *Receipt) FilterLogs(event string) []Log {
	var matched []Log
	for _, log := range r.Logs {
		if log.Event == event {
			matched = append(matched, log)
		}
	}
	return matched
}

// LogQuery selects historical or future logs of one event on one contract.
// StartBlock is a resumable cursor; zero means from genesis.
type LogQuery struct {
	Address    common.Address
	Event      string
	StartBlock uint64
}

// CallMsg describes a read-only invocation. From is the optional caller
// context the simulation should assume; a validator connected to more than
// one manager may give different answers per caller.
type CallMsg struct {
	From   common.Address
	To     common.Address
	Method string
	Args   []any
}

// ChainTransport abstracts the communication layer with the ledger.
// The SDK performs every remote interaction through this interface, so the
// same entity code runs against JSON-RPC nodes, gateway services, or
// in-memory simulations in tests.
//
// The transport owns serialization and signing; the SDK owns none of it.
type ChainTransport interface {
	// Call performs a read-only invocation ("simulation") of a contract
	// method and returns its decoded return values. Contract-level
	// rejections surface as *RevertError.
	Call(ctx context.Context, msg CallMsg) ([]any, error)

	// Execute submits a state-changing call and waits for its receipt.
	// Contract reverts surface as *RevertError; transport failures
	// propagate unmodified.
	Execute(ctx context.Context, to common.Address, method string, args []any, opts TxOptions) (*Receipt, error)

	// FilterLogs returns historical logs matching the query. Each call
	// re-queries the ledger; results are never cached by the transport.
	FilterLogs(ctx context.Context, query LogQuery) ([]Log, error)

	// SubscribeLogs delivers matching logs on the returned channel until
	// ctx is cancelled, at which point the channel is closed. Delivery
	// order across distinct event types is not guaranteed.
	SubscribeLogs(ctx context.Context, query LogQuery) (<-chan Log, error)

	// ReceiptByHash retrieves the receipt of a previously submitted
	// transaction.
	ReceiptByHash(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// BatchCall is one element of a batched submission.
type BatchCall struct {
	To     common.Address
	Method string
	Args   []any
}

// BatchTransport is implemented by transports that can submit many calls as
// a single atomic transaction. Callers should fall back to sequential
// Execute calls when the transport does not implement it.
type BatchTransport interface {
	ExecuteBatch(ctx context.Context, calls []BatchCall, opts TxOptions) (*Receipt, error)
}

// RevertError is a contract-level rejection of a call. It is a domain
// signal, not a transport failure: probing loops and validator evaluation
// treat it as "no data" / "rejected" rather than as fatal.
type RevertError struct {
	Method string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("contract reverted in %s", e.Method)
	}
	return fmt.Sprintf("contract reverted in %s: %s", e.Method, e.Reason)
}

// IsRevert reports whether err is (or wraps) a contract-level revert.
func IsRevert(err error) bool {
	var revert *RevertError
	return errors.As(err, &revert)
}
