package streamclient

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/logging"
	"github.com/streampay/sdk-go/core/types"
	"github.com/streampay/sdk-go/core/util"
)

// Client is the entry point of the SDK: it binds a chain transport to the
// entity constructors. One client serves any number of managers, factories
// and streams on the same chain.
type Client struct {
	Transport types.ChainTransport `validate:"required"`

	logger   *zap.Logger
	settings *Settings
}

type Option func(*Client)

// NewClient builds a client over the given transport.
func NewClient(transport types.ChainTransport, options ...Option) (*Client, error) {
	c := &Client{
		Transport: transport,
		logger:    logging.Logger,
	}
	for _, option := range options {
		option(c)
	}

	if err := validator.New().Struct(c); err != nil {
		return nil, errors.WithStack(err)
	}

	if c.settings == nil {
		settings := DefaultSettings()
		c.settings = &settings
	}

	return c, nil
}

// WithLogger injects a logger used by the client and every entity it loads.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSettings overrides the default monitoring thresholds.
func WithSettings(settings Settings) Option {
	return func(c *Client) {
		c.settings = &settings
	}
}

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger {
	return c.logger
}

// Settings returns the client's effective settings.
func (c *Client) Settings() Settings {
	return *c.settings
}

// LoadManager binds to a deployed stream manager contract.
func (c *Client) LoadManager(address common.Address) (*api.StreamManager, error) {
	return api.LoadStreamManager(api.StreamManagerOptions{
		Transport: c.Transport,
		Address:   address,
		Logger:    c.logger,
	})
}

// LoadManagerFromString binds to a manager given its hex address.
func (c *Client) LoadManagerFromString(address string) (*api.StreamManager, error) {
	parsed, err := util.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	return c.LoadManager(parsed)
}
