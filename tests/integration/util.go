package integration

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	api "github.com/streampay/sdk-go/core/contractsapi"
)

// Well-known fixture addresses.
var (
	tokenAddr     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	managerAddr   = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	controller    = common.HexToAddress("0x00000000000000000000000000000000000000C0")
	payee         = common.HexToAddress("0x00000000000000000000000000000000000000D0")
	funder        = common.HexToAddress("0x00000000000000000000000000000000000000E0")
	validatorLow  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	validatorMid  = common.HexToAddress("0x0000000000000000000000000000000000000022")
	validatorHigh = common.HexToAddress("0x0000000000000000000000000000000000000033")
)

// fixture is one simulated deployment: a token, a manager with an hour of
// minimum stream life, and a funded, approved funder account.
type fixture struct {
	chain   *simChain
	manager *api.StreamManager
	token   *simToken
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chain := newSimChain()
	token := chain.addToken(tokenAddr, "USDC", 6)
	sim := chain.addManager(managerAddr, controller, payee, time.Hour)
	sim.accepted[tokenAddr] = true

	manager, err := api.LoadStreamManager(api.StreamManagerOptions{
		Transport: chain,
		Address:   managerAddr,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	return &fixture{chain: chain, manager: manager, token: token}
}

// flatRateValidator accepts every stream at a fixed per-second rate.
func flatRateValidator(rate int64) validateFunc {
	return func(common.Address, common.Address, *big.Int, [][]byte) (*big.Int, error) {
		return big.NewInt(rate), nil
	}
}

// rejectingValidator rejects every stream.
func rejectingValidator() validateFunc {
	return func(common.Address, common.Address, *big.Int, [][]byte) (*big.Int, error) {
		return nil, revert("validate", "product not recognized")
	}
}
