package contractsapi

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/streampay/sdk-go/core/types"
)

// Helpers to coerce transport return values into domain types. Transports
// differ in how they surface numbers (big.Int from ABI decoding, float64 or
// string from JSON gateways), so each helper accepts the variations seen in
// practice.

func decodeAddress(v any) (common.Address, error) {
	switch value := v.(type) {
	case common.Address:
		return value, nil
	case string:
		if !common.IsHexAddress(value) {
			return common.Address{}, errors.Errorf("'%s' is not a valid address", value)
		}
		return common.HexToAddress(value), nil
	case []byte:
		if len(value) != common.AddressLength {
			return common.Address{}, errors.Errorf("address has %d bytes, want %d", len(value), common.AddressLength)
		}
		return common.BytesToAddress(value), nil
	default:
		return common.Address{}, errors.Errorf("invalid address type: %T", v)
	}
}

func decodeBigInt(v any) (*big.Int, error) {
	switch value := v.(type) {
	case *big.Int:
		return value, nil
	case int64:
		return big.NewInt(value), nil
	case int:
		return big.NewInt(int64(value)), nil
	case uint64:
		return new(big.Int).SetUint64(value), nil
	case float64:
		return big.NewInt(int64(value)), nil
	case string:
		parsed, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, errors.Errorf("'%s' is not a valid integer", value)
		}
		return parsed, nil
	default:
		return nil, errors.Errorf("invalid integer type: %T", v)
	}
}

func decodeInt64(v any) (int64, error) {
	n, err := decodeBigInt(v)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, errors.Errorf("integer %s overflows int64", n)
	}
	return n.Int64(), nil
}

func decodeBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("invalid bool type: %T", v)
	}
	return b, nil
}

// decodeSeconds converts a second count into a duration, clamping instead
// of overflowing when the count exceeds what time.Duration can represent.
func decodeSeconds(v any) (time.Duration, error) {
	n, err := decodeBigInt(v)
	if err != nil {
		return 0, err
	}

	maxSeconds := big.NewInt(int64(types.MaxStreamDuration / time.Second))
	if n.Cmp(maxSeconds) >= 0 {
		return types.MaxStreamDuration, nil
	}

	return time.Duration(n.Int64()) * time.Second, nil
}

func decodeStreamInfo(v any) (*types.StreamInfo, error) {
	switch value := v.(type) {
	case *types.StreamInfo:
		return value, nil
	case types.StreamInfo:
		return &value, nil
	default:
		return nil, errors.Errorf("invalid stream info type: %T", v)
	}
}

// firstResult unwraps the single return value of a call, erroring on empty
// result sets so callers never index blindly.
func firstResult(results []any, method string) (any, error) {
	if len(results) == 0 {
		return nil, errors.Errorf("%s returned no values", method)
	}
	return results[0], nil
}
