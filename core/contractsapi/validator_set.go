package contractsapi

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/streampay/sdk-go/core/types"
	"github.com/streampay/sdk-go/core/util"
)

// Validators reads the manager's current validator list. The contract
// stores validators in a fixed-size array probed by index; it answers with
// no data past the end of the list, so the first revert signals the end,
// not an error.
func (m *StreamManager) Validators(ctx context.Context) ([]*Validator, error) {
	var validators []*Validator

	for idx := 0; idx < maxValidators; idx++ {
		results, err := m.call(ctx, "validators", idx)
		if err != nil {
			if types.IsRevert(err) {
				break
			}
			return nil, err
		}

		result, err := firstResult(results, "validators")
		if err != nil {
			return nil, err
		}
		address, err := decodeAddress(result)
		if err != nil {
			return nil, err
		}

		validators = append(validators, &Validator{Address: address, Manager: m})
	}

	return validators, nil
}

// SetValidators replaces the validator set wholesale. The submitted list is
// always deduplicated and sorted by the numeric value of the address, and
// the change is logged as a line diff against the current set before the
// write goes out. A list exceeding the contract's cap is rejected before
// any transaction is submitted.
func (m *StreamManager) SetValidators(ctx context.Context, opts types.TxOptions, refs ...ValidatorRef) (*types.Receipt, error) {
	addresses := make([]common.Address, 0, len(refs))
	for _, ref := range refs {
		v, err := m.parseValidator(ref)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, v.Address)
	}

	addresses = util.DedupeAddresses(addresses)
	util.SortAddresses(addresses)

	if len(addresses) > maxValidators {
		return nil, &types.TooManyValidatorsError{Count: len(addresses), Max: maxValidators}
	}

	current, err := m.Validators(ctx)
	if err != nil {
		return nil, err
	}
	before := make([]common.Address, len(current))
	for i, v := range current {
		before[i] = v.Address
	}

	m.logger.Info("validators update",
		zap.Strings("diff", util.DiffAddresses(before, addresses)),
	)

	return m.execute(ctx, "set_validators", []any{addresses}, opts)
}

// AddValidators unions the given validators into the current set.
func (m *StreamManager) AddValidators(ctx context.Context, opts types.TxOptions, refs ...ValidatorRef) (*types.Receipt, error) {
	current, err := m.Validators(ctx)
	if err != nil {
		return nil, err
	}

	merged := make([]ValidatorRef, 0, len(current)+len(refs))
	for _, v := range current {
		merged = append(merged, v)
	}
	merged = append(merged, refs...)

	return m.SetValidators(ctx, opts, merged...)
}

// RemoveValidators removes the given validators from the current set.
func (m *StreamManager) RemoveValidators(ctx context.Context, opts types.TxOptions, refs ...ValidatorRef) (*types.Receipt, error) {
	removed := make(map[common.Address]struct{}, len(refs))
	for _, ref := range refs {
		v, err := m.parseValidator(ref)
		if err != nil {
			return nil, err
		}
		removed[v.Address] = struct{}{}
	}

	current, err := m.Validators(ctx)
	if err != nil {
		return nil, err
	}

	var kept []ValidatorRef
	for _, v := range current {
		if _, gone := removed[v.Address]; !gone {
			kept = append(kept, v)
		}
	}

	return m.SetValidators(ctx, opts, kept...)
}

// ReplaceValidator swaps one validator for another in a single write,
// preserving set cardinality.
func (m *StreamManager) ReplaceValidator(ctx context.Context, opts types.TxOptions, oldRef, newRef ValidatorRef) (*types.Receipt, error) {
	oldValidator, err := m.parseValidator(oldRef)
	if err != nil {
		return nil, err
	}
	newValidator, err := m.parseValidator(newRef)
	if err != nil {
		return nil, err
	}

	current, err := m.Validators(ctx)
	if err != nil {
		return nil, err
	}

	replaced := make([]ValidatorRef, 0, len(current)+1)
	for _, v := range current {
		if v.Address != oldValidator.Address {
			replaced = append(replaced, v)
		}
	}
	replaced = append(replaced, newValidator)

	return m.SetValidators(ctx, opts, replaced...)
}
