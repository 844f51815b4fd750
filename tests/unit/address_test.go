package unit

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampay/sdk-go/core/util"
)

func TestParseAddress(t *testing.T) {
	addr, err := util.ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xAA"), addr)

	_, err = util.ParseAddress("0x1234")
	assert.Error(t, err, "Short hex is not an address")

	_, err = util.ParseAddress("not an address")
	assert.Error(t, err)
}

func TestSortAddresses(t *testing.T) {
	addrs := []common.Address{
		common.HexToAddress("0xC0"),
		common.HexToAddress("0x01"),
		common.HexToAddress("0x5B"),
	}

	util.SortAddresses(addrs)

	assert.Equal(t, []common.Address{
		common.HexToAddress("0x01"),
		common.HexToAddress("0x5B"),
		common.HexToAddress("0xC0"),
	}, addrs, "Addresses should sort by numeric byte value")
}

func TestDedupeAddresses(t *testing.T) {
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	out := util.DedupeAddresses([]common.Address{a, b, a, a, b})
	assert.Equal(t, []common.Address{a, b}, out, "First occurrence order is preserved")

	assert.Empty(t, util.DedupeAddresses(nil))
}

func TestDiffAddresses(t *testing.T) {
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	c := common.HexToAddress("0x03")

	lines := util.DiffAddresses(
		[]common.Address{a, b},
		[]common.Address{b, c},
	)

	assert.Equal(t, []string{
		"- " + a.Hex(),
		"  " + b.Hex(),
		"+ " + c.Hex(),
	}, lines)
}
