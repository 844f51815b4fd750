package contractsapi

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/streampay/sdk-go/core/types"
)

// Validator is the client-side binding of one validator contract connected
// to a specific StreamManager. Validators are stateless evaluators; their
// identity is their address.
type Validator struct {
	Address common.Address
	Manager *StreamManager
}

// ValidatorRef is any value resolvable to a validator: a *Validator, a
// common.Address, or a hex address string.
type ValidatorRef any

// parseValidator normalizes a heterogeneous validator reference to a
// Validator bound to this manager.
func (m *StreamManager) parseValidator(ref ValidatorRef) (*Validator, error) {
	switch value := ref.(type) {
	case *Validator:
		return &Validator{Address: value.Address, Manager: m}, nil
	case Validator:
		return &Validator{Address: value.Address, Manager: m}, nil
	case common.Address:
		return &Validator{Address: value, Manager: m}, nil
	case string:
		if !common.IsHexAddress(value) {
			return nil, errors.Errorf("'%s' is not a valid validator address", value)
		}
		return &Validator{Address: common.HexToAddress(value), Manager: m}, nil
	default:
		return nil, errors.Errorf("cannot resolve %T to a validator", ref)
	}
}

// Validate evaluates the proposed stream against this validator via a
// read-only simulation, with the connected manager as the caller context. A
// validator may serve more than one manager, so the caller matters.
//
// The returned amount is this validator's per-second rate contribution (the
// sum of its product costs). A contract-level revert means this validator
// rejects the stream; callers decide whether that is fatal.
func (v *Validator) Validate(
	ctx context.Context,
	creator common.Address,
	token common.Address,
	amount *big.Int,
	products [][]byte,
) (*big.Int, error) {
	results, err := v.Manager.transport.Call(ctx, types.CallMsg{
		From:   v.Manager.Address,
		To:     v.Address,
		Method: "validate",
		Args:   []any{creator, token, amount, products},
	})
	if err != nil {
		if types.IsRevert(err) {
			return nil, &types.ValidatorFailedError{Validator: v.Address, Cause: err}
		}
		return nil, errors.WithStack(err)
	}

	result, err := firstResult(results, "validate")
	if err != nil {
		return nil, err
	}
	return decodeBigInt(result)
}
