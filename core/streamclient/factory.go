package streamclient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/types"
)

// knownFactories are the published factory deployments, in release order.
// Applications targeting a chain without a published deployment pass an
// explicit address to LoadFactory instead.
var knownFactories []common.Address

// RegisterFactoryDeployment appends a published factory deployment. The
// most recently registered address is the latest release.
func RegisterFactoryDeployment(address common.Address) {
	knownFactories = append(knownFactories, address)
}

// StreamFactory binds to the factory contract that registers manager
// deployments per deployer.
type StreamFactory struct {
	Address common.Address
	client  *Client
}

// LoadFactory binds to a factory. With a nil address the latest registered
// deployment is used; if none is known the lookup is a defined failure.
func (c *Client) LoadFactory(address *common.Address) (*StreamFactory, error) {
	if address == nil {
		if len(knownFactories) == 0 {
			return nil, &types.NoFactoryError{}
		}
		latest := knownFactories[len(knownFactories)-1]
		address = &latest
	}

	return &StreamFactory{Address: *address, client: c}, nil
}

// GetDeployment resolves the manager deployed by the given deployer. The
// factory answers the zero address for deployers without a deployment.
func (f *StreamFactory) GetDeployment(ctx context.Context, deployer common.Address) (*api.StreamManager, error) {
	results, err := f.client.Transport.Call(ctx, types.CallMsg{
		To:     f.Address,
		Method: "deployments",
		Args:   []any{deployer},
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &types.ManagerNotFoundError{Deployer: deployer}
	}

	address, ok := results[0].(common.Address)
	if !ok || address == (common.Address{}) {
		return nil, &types.ManagerNotFoundError{Deployer: deployer}
	}

	return f.client.LoadManager(address)
}
