package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Domain errors raised by pre-flight validation and guarded operations.
// All carry enough structured data to render an actionable message; remote
// failures (reverts, network errors) are never converted into these.

// TokenNotAcceptedError is returned when stream creation is attempted with
// a token outside the manager's accepted set.
type TokenNotAcceptedError struct {
	Token common.Address
}

func (e *TokenNotAcceptedError) Error() string {
	return fmt.Sprintf("token '%s' not accepted", e.Token.Hex())
}

// NotEnoughAllowanceError is returned when the sender's spendable amount
// (the lesser of balance and allowance) does not cover the deposit.
type NotEnoughAllowanceError struct {
	Manager   common.Address
	Required  *big.Int
	Available *big.Int
}

func (e *NotEnoughAllowanceError) Error() string {
	return fmt.Sprintf(
		"not enough allowance (have %s, need %s), please approve %s",
		e.Available, e.Required, e.Manager.Hex(),
	)
}

// StreamLifeInsufficientError is returned when the funded amount cannot
// sustain the stream for the contract's minimum commitment window.
type StreamLifeInsufficientError struct {
	StreamLife    time.Duration
	MinStreamLife time.Duration
}

func (e *StreamLifeInsufficientError) Error() string {
	return fmt.Sprintf(
		"stream life is %s, expected at least %s; increase the funding amount to proceed",
		e.StreamLife, e.MinStreamLife,
	)
}

// NoValidProductsError is returned when validator evaluation yields a
// non-positive funding rate.
type NoValidProductsError struct{}

func (e *NoValidProductsError) Error() string {
	return "no valid products in stream creation"
}

// ValidatorFailedError is returned when a specific validator rejects a
// proposed stream. It wraps the underlying revert, so IsRevert still
// classifies it as a contract-level rejection.
type ValidatorFailedError struct {
	Validator common.Address
	Cause     error
}

func (e *ValidatorFailedError) Error() string {
	return fmt.Sprintf("validator %s rejected the stream", e.Validator.Hex())
}

func (e *ValidatorFailedError) Unwrap() error {
	return e.Cause
}

// TooManyValidatorsError is returned when a validator set write would exceed
// the contract's hard cap, before any transaction is submitted.
type TooManyValidatorsError struct {
	Count int
	Max   int
}

func (e *TooManyValidatorsError) Error() string {
	return fmt.Sprintf("validator set has %d entries, the contract accepts at most %d", e.Count, e.Max)
}

// StreamNotCancellableError is returned when a non-controller attempts to
// cancel before the minimum commitment window has elapsed.
type StreamNotCancellableError struct {
	TimeLeft time.Duration
}

func (e *StreamNotCancellableError) Error() string {
	return fmt.Sprintf("stream is not yet cancellable (%s left)", e.TimeLeft)
}

// FundsNotClaimableError is returned when a claim is attempted with zero
// claimable balance.
type FundsNotClaimableError struct{}

func (e *FundsNotClaimableError) Error() string {
	return "stream has no funds left to claim"
}

// MissingCreationReceiptError is returned when a stream built from bare
// identifiers is asked for its creation transaction.
type MissingCreationReceiptError struct {
	StreamID *big.Int
}

func (e *MissingCreationReceiptError) Error() string {
	return fmt.Sprintf("stream %s carries no creation transaction provenance", e.StreamID)
}

// InvalidTimeUnitError is returned when a rate or duration string names an
// unrecognized time unit.
type InvalidTimeUnitError struct {
	Unit string
}

func (e *InvalidTimeUnitError) Error() string {
	return fmt.Sprintf("invalid time unit '%s'", e.Unit)
}

// InvalidRateError is returned when a rate expression resolves to zero
// tokens per second.
type InvalidRateError struct {
	Rate string
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("rate '%s' resolves to zero tokens per second", e.Rate)
}

// ManagerNotFoundError is returned by the factory when a deployer has no
// registered manager deployment.
type ManagerNotFoundError struct {
	Deployer common.Address
}

func (e *ManagerNotFoundError) Error() string {
	return fmt.Sprintf("no stream manager deployed by %s on this chain", e.Deployer.Hex())
}

// NoFactoryError is returned when no factory deployment is known for the
// connected chain and no explicit address was given.
type NoFactoryError struct{}

func (e *NoFactoryError) Error() string {
	return "no factory deployment on this chain, please use an explicit address"
}
