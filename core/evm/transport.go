package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/streampay/sdk-go/core/logging"
	"github.com/streampay/sdk-go/core/types"
)

// defaultPollInterval paces the log-subscription poller. HTTP endpoints do
// not support push subscriptions, so SubscribeLogs polls FilterLogs with a
// resumable block cursor instead.
const defaultPollInterval = 5 * time.Second

// Transport speaks JSON-RPC to an EVM node and implements
// types.ChainTransport on top of it. Every contract touched through one
// Transport must share the supplied ABI; managers, streams and tokens in
// this system do.
type Transport struct {
	client       *ethclient.Client
	abi          abi.ABI
	chainID      *big.Int
	key          *ecdsa.PrivateKey
	from         common.Address
	pollInterval time.Duration
	logger       *zap.Logger
}

// TransportOptions configures NewTransport. PrivateKey is optional: without
// it the transport is read-only and Execute fails.
type TransportOptions struct {
	RPCURL       string `validate:"required"`
	ABI          string `validate:"required"`
	PrivateKey   *ecdsa.PrivateKey
	PollInterval time.Duration
	Logger       *zap.Logger
}

func NewTransport(ctx context.Context, opts TransportOptions) (*Transport, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, errors.Wrap(err, "invalid transport options")
	}

	parsedABI, err := abi.JSON(strings.NewReader(opts.ABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse contract ABI")
	}

	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", opts.RPCURL)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch chain id")
	}

	t := &Transport{
		client:       client,
		abi:          parsedABI,
		chainID:      chainID,
		key:          opts.PrivateKey,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	if t.key != nil {
		t.from = crypto.PubkeyToAddress(t.key.PublicKey)
	}
	if t.pollInterval <= 0 {
		t.pollInterval = defaultPollInterval
	}
	if t.logger == nil {
		t.logger = logging.Logger
	}
	return t, nil
}

// Sender returns the address transactions are signed with, zero for a
// read-only transport.
func (t *Transport) Sender() common.Address {
	return t.from
}

func (t *Transport) Call(ctx context.Context, msg types.CallMsg) ([]any, error) {
	data, err := t.pack(msg.Method, msg.Args)
	if err != nil {
		return nil, err
	}

	out, err := t.client.CallContract(ctx, ethereum.CallMsg{
		From: msg.From,
		To:   &msg.To,
		Data: data,
	}, nil)
	if err != nil {
		return nil, asDomainError(msg.Method, err)
	}

	results, err := t.abi.Unpack(msg.Method, out)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s result", msg.Method)
	}
	return results, nil
}

func (t *Transport) Execute(ctx context.Context, to common.Address, method string, args []any, opts types.TxOptions) (*types.Receipt, error) {
	if t.key == nil {
		return nil, errors.New("transport has no signing key")
	}
	if (opts.Sender != common.Address{}) && opts.Sender != t.from {
		return nil, errors.Errorf("cannot sign for %s with key of %s", opts.Sender.Hex(), t.from.Hex())
	}

	auth, err := bind.NewKeyedTransactorWithChainID(t.key, t.chainID)
	if err != nil {
		return nil, errors.Wrap(err, "build transactor")
	}
	auth.Context = ctx
	auth.GasLimit = opts.GasLimit
	auth.Value = opts.Value

	packed, err := t.coerceArgs(method, args)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(to, t.abi, t.client, t.client, t.client)
	tx, err := contract.Transact(auth, method, packed...)
	if err != nil {
		return nil, asDomainError(method, err)
	}

	receipt, err := bind.WaitMined(ctx, t.client, tx)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for %s", tx.Hash().Hex())
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, &types.RevertError{Method: method}
	}

	return t.convertReceipt(receipt, t.from), nil
}

func (t *Transport) FilterLogs(ctx context.Context, query types.LogQuery) ([]types.Log, error) {
	event, ok := t.abi.Events[query.Event]
	if !ok {
		return nil, errors.Errorf("event '%s' is not in the contract ABI", query.Event)
	}

	raw, err := t.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(query.StartBlock),
		Addresses: []common.Address{query.Address},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "filter %s logs", query.Event)
	}

	logs := make([]types.Log, 0, len(raw))
	for _, l := range raw {
		converted, err := t.convertLog(l)
		if err != nil {
			t.logger.Warn("skipping undecodable log",
				zap.String("tx", l.TxHash.Hex()), zap.Error(err))
			continue
		}
		logs = append(logs, converted)
	}
	return logs, nil
}

func (t *Transport) SubscribeLogs(ctx context.Context, query types.LogQuery) (<-chan types.Log, error) {
	// Validate the event name up front rather than on the first tick.
	if _, ok := t.abi.Events[query.Event]; !ok {
		return nil, errors.Errorf("event '%s' is not in the contract ABI", query.Event)
	}

	out := make(chan types.Log)
	go func() {
		defer close(out)

		cursor := query.StartBlock
		ticker := time.NewTicker(t.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			logs, err := t.FilterLogs(ctx, types.LogQuery{
				Address:    query.Address,
				Event:      query.Event,
				StartBlock: cursor,
			})
			if err != nil {
				t.logger.Warn("log poll failed",
					zap.String("event", query.Event), zap.Error(err))
				continue
			}

			for _, log := range logs {
				select {
				case out <- log:
				case <-ctx.Done():
					return
				}
				if log.BlockNumber >= cursor {
					cursor = log.BlockNumber + 1
				}
			}
		}
	}()
	return out, nil
}

func (t *Transport) ReceiptByHash(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := t.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch receipt %s", txHash.Hex())
	}

	tx, _, err := t.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch transaction %s", txHash.Hex())
	}
	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(t.chainID), tx)
	if err != nil {
		return nil, errors.Wrap(err, "recover transaction sender")
	}

	return t.convertReceipt(receipt, sender), nil
}

func (t *Transport) pack(method string, args []any) ([]byte, error) {
	coerced, err := t.coerceArgs(method, args)
	if err != nil {
		return nil, err
	}
	data, err := t.abi.Pack(method, coerced...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	return data, nil
}

// coerceArgs widens native integer arguments to *big.Int where the ABI
// expects an integer wider than 64 bits. The entity layer hands over int64
// for durations and counters; the ABI almost always declares uint256.
func (t *Transport) coerceArgs(method string, args []any) ([]any, error) {
	m, ok := t.abi.Methods[method]
	if !ok {
		return nil, errors.Errorf("method '%s' is not in the contract ABI", method)
	}
	if len(m.Inputs) != len(args) {
		return nil, errors.Errorf("%s takes %d arguments, got %d", method, len(m.Inputs), len(args))
	}

	coerced := make([]any, len(args))
	for i, arg := range args {
		input := m.Inputs[i].Type
		wide := (input.T == abi.IntTy || input.T == abi.UintTy) && input.Size > 64
		if !wide {
			coerced[i] = arg
			continue
		}
		switch v := arg.(type) {
		case int:
			coerced[i] = big.NewInt(int64(v))
		case int64:
			coerced[i] = big.NewInt(v)
		case uint64:
			coerced[i] = new(big.Int).SetUint64(v)
		default:
			coerced[i] = arg
		}
	}
	return coerced, nil
}

func (t *Transport) convertReceipt(receipt *ethtypes.Receipt, sender common.Address) *types.Receipt {
	converted := &types.Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Sender:      sender,
	}
	for _, l := range receipt.Logs {
		log, err := t.convertLog(*l)
		if err != nil {
			// Foreign contracts may log events outside our ABI.
			continue
		}
		converted.Logs = append(converted.Logs, log)
	}
	return converted
}

func (t *Transport) convertLog(l ethtypes.Log) (types.Log, error) {
	if len(l.Topics) == 0 {
		return types.Log{}, errors.New("anonymous log")
	}
	event, err := t.abi.EventByID(l.Topics[0])
	if err != nil {
		return types.Log{}, err
	}

	args := map[string]any{}
	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, l.Topics[1:]); err != nil {
		return types.Log{}, errors.Wrapf(err, "decode %s topics", event.Name)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(args, l.Data); err != nil {
		return types.Log{}, errors.Wrapf(err, "decode %s data", event.Name)
	}

	return types.Log{
		Event:       event.Name,
		Args:        args,
		Address:     l.Address,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		Index:       l.Index,
	}, nil
}

// asDomainError maps node-reported reverts onto the domain revert type so
// probing loops and validator evaluation can classify them, and leaves
// transport failures untouched.
func asDomainError(method string, err error) error {
	type dataError interface {
		ErrorData() any
	}
	var withData dataError
	if errors.As(err, &withData) || strings.Contains(err.Error(), "execution reverted") {
		reason := strings.TrimPrefix(err.Error(), "execution reverted: ")
		return &types.RevertError{Method: method, Reason: reason}
	}
	return errors.WithStack(err)
}
