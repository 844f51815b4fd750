package integration

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/streampay/sdk-go/core/types"
)

// simChain is an in-memory ledger implementing types.ChainTransport and
// types.BatchTransport with the stream manager contract's semantics. It
// gives the entity tests full control over the clock, balances and
// validator behavior without a node.
type simChain struct {
	mu sync.Mutex

	now         time.Time
	blockNumber uint64

	tokens     map[common.Address]*simToken
	managers   map[common.Address]*simManager
	validators map[common.Address]validateFunc

	logs     []types.Log
	receipts map[common.Hash]*types.Receipt
	subs     []*simSub

	// executeCount counts state-changing submissions, so tests can assert
	// that failed pre-flight validation never reached the ledger.
	executeCount int
}

// validateFunc is a simulated validator: it returns the per-second rate
// contribution, or a revert to reject the stream.
type validateFunc func(creator, token common.Address, amount *big.Int, products [][]byte) (*big.Int, error)

type simToken struct {
	symbol     string
	decimals   int64
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

type simManager struct {
	controller    common.Address
	owner         common.Address
	minStreamLife time.Duration
	accepted      map[common.Address]bool
	validators    []common.Address
	streams       []*simStream
}

type simStream struct {
	token           common.Address
	funder          common.Address
	owner           common.Address
	amountPerSecond *big.Int
	startTime       time.Time
	lastPull        time.Time
	lastFunded      time.Time
	fundedAmount    *big.Int
	claimedAmount   *big.Int
	products        [][]byte
	reason          []byte
	cancelled       bool
}

type simSub struct {
	query types.LogQuery
	ch    chan types.Log
	done  <-chan struct{}
}

func newSimChain() *simChain {
	return &simChain{
		now:        time.Unix(1_700_000_000, 0).UTC(),
		tokens:     map[common.Address]*simToken{},
		managers:   map[common.Address]*simManager{},
		validators: map[common.Address]validateFunc{},
		receipts:   map[common.Hash]*types.Receipt{},
	}
}

func (c *simChain) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *simChain) addToken(addr common.Address, symbol string, decimals int64) *simToken {
	t := &simToken{
		symbol:     symbol,
		decimals:   decimals,
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
	c.tokens[addr] = t
	return t
}

func (t *simToken) mint(owner common.Address, amount int64) {
	t.balances[owner] = big.NewInt(amount)
}

func (t *simToken) approve(owner, spender common.Address, amount int64) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*big.Int{}
	}
	t.allowances[owner][spender] = big.NewInt(amount)
}

func (t *simToken) balanceOf(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *simToken) allowance(owner, spender common.Address) *big.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (t *simToken) transferFrom(from, to, spender common.Address, amount *big.Int) error {
	balance := t.balanceOf(from)
	allowed := t.allowance(from, spender)
	if balance.Cmp(amount) < 0 || allowed.Cmp(amount) < 0 {
		return &types.RevertError{Method: "transferFrom", Reason: "insufficient funds"}
	}
	t.balances[from] = balance.Sub(balance, amount)
	t.allowances[from][spender] = allowed.Sub(allowed, amount)
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
	return nil
}

func (c *simChain) addManager(addr, controller, owner common.Address, minLife time.Duration) *simManager {
	m := &simManager{
		controller:    controller,
		owner:         owner,
		minStreamLife: minLife,
		accepted:      map[common.Address]bool{},
	}
	c.managers[addr] = m
	return m
}

// Accrual arithmetic, all evaluated at the simulated clock.

func (s *simStream) remaining() *big.Int {
	return new(big.Int).Sub(s.fundedAmount, s.claimedAmount)
}

// claimable is min(remaining, rate * elapsed-since-last-pull); zero after
// cancellation settles everything.
func (s *simStream) claimable(now time.Time) *big.Int {
	if s.cancelled {
		return new(big.Int)
	}
	elapsed := int64(now.Sub(s.lastPull) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	accrued := new(big.Int).Mul(s.amountPerSecond, big.NewInt(elapsed))
	if remaining := s.remaining(); accrued.Cmp(remaining) > 0 {
		return remaining
	}
	return accrued
}

// timeLeft is ceil(locked / rate); permanently zero once cancelled.
func (s *simStream) timeLeft(now time.Time) *big.Int {
	if s.cancelled {
		return new(big.Int)
	}
	locked := new(big.Int).Sub(s.remaining(), s.claimable(now))
	if locked.Sign() <= 0 {
		return new(big.Int)
	}
	numerator := new(big.Int).Add(locked, new(big.Int).Sub(s.amountPerSecond, big.NewInt(1)))
	return numerator.Div(numerator, s.amountPerSecond)
}

// isCancelable measures from the later of start and last funding, inclusive
// at exactly the minimum stream life.
func (s *simStream) isCancelable(now time.Time, minLife time.Duration) bool {
	checkpoint := s.startTime
	if s.lastFunded.After(checkpoint) {
		checkpoint = s.lastFunded
	}
	return !now.Before(checkpoint.Add(minLife))
}

func (s *simStream) info() *types.StreamInfo {
	return &types.StreamInfo{
		Token:           s.token,
		AmountPerSecond: new(big.Int).Set(s.amountPerSecond),
		StartTime:       s.startTime,
		Products:        s.products,
		Reason:          s.reason,
		Owner:           s.owner,
		FundedAmount:    new(big.Int).Set(s.fundedAmount),
		LastPull:        s.lastPull,
	}
}

func revert(method, reason string) error {
	return &types.RevertError{Method: method, Reason: reason}
}

// Call dispatches read-only methods per target address.
func (c *simChain) Call(_ context.Context, msg types.CallMsg) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tokens[msg.To]; ok {
		switch msg.Method {
		case "balanceOf":
			return []any{t.balanceOf(msg.Args[0].(common.Address))}, nil
		case "allowance":
			return []any{t.allowance(msg.Args[0].(common.Address), msg.Args[1].(common.Address))}, nil
		case "decimals":
			return []any{t.decimals}, nil
		case "symbol":
			return []any{t.symbol}, nil
		}
		return nil, revert(msg.Method, "unknown token method")
	}

	if validate, ok := c.validators[msg.To]; ok && msg.Method == "validate" {
		rate, err := validate(
			msg.Args[0].(common.Address),
			msg.Args[1].(common.Address),
			msg.Args[2].(*big.Int),
			msg.Args[3].([][]byte),
		)
		if err != nil {
			return nil, err
		}
		return []any{rate}, nil
	}

	m, ok := c.managers[msg.To]
	if !ok {
		return nil, revert(msg.Method, "unknown contract")
	}

	switch msg.Method {
	case "controller":
		return []any{m.controller}, nil
	case "MIN_STREAM_LIFE":
		return []any{int64(m.minStreamLife / time.Second)}, nil
	case "token_is_accepted":
		return []any{m.accepted[msg.Args[0].(common.Address)]}, nil
	case "num_streams":
		return []any{int64(len(m.streams))}, nil
	case "validators":
		idx := msg.Args[0].(int)
		if idx >= len(m.validators) {
			return nil, revert("validators", "")
		}
		return []any{m.validators[idx]}, nil
	}

	stream, err := m.streamByID(msg.Method, msg.Args)
	if err != nil {
		return nil, err
	}
	switch msg.Method {
	case "streams":
		return []any{stream.info()}, nil
	case "amount_claimable":
		return []any{stream.claimable(c.now)}, nil
	case "time_left":
		return []any{stream.timeLeft(c.now)}, nil
	case "stream_is_cancelable":
		return []any{stream.isCancelable(c.now, m.minStreamLife)}, nil
	}

	return nil, revert(msg.Method, "unknown manager method")
}

func (m *simManager) streamByID(method string, args []any) (*simStream, error) {
	if len(args) == 0 {
		return nil, revert(method, "missing stream id")
	}
	id, ok := args[0].(*big.Int)
	if !ok || !id.IsInt64() || id.Int64() < 0 || id.Int64() >= int64(len(m.streams)) {
		return nil, revert(method, "unknown stream")
	}
	return m.streams[id.Int64()], nil
}

// Execute applies one state-changing call and returns its receipt.
func (c *simChain) Execute(_ context.Context, to common.Address, method string, args []any, opts types.TxOptions) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executeLocked(to, method, args, opts)
}

// ExecuteBatch applies many calls as one atomic submission: the receipt
// carries every emitted log, and the first revert aborts the whole batch.
func (c *simChain) ExecuteBatch(_ context.Context, calls []types.BatchCall, opts types.TxOptions) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt := c.newReceipt(opts)
	for _, call := range calls {
		logs, err := c.applyLocked(call.To, call.Method, call.Args, opts, receipt)
		if err != nil {
			return nil, err
		}
		receipt.Logs = append(receipt.Logs, logs...)
	}
	c.recordLocked(receipt)
	return receipt, nil
}

func (c *simChain) executeLocked(to common.Address, method string, args []any, opts types.TxOptions) (*types.Receipt, error) {
	receipt := c.newReceipt(opts)
	logs, err := c.applyLocked(to, method, args, opts, receipt)
	if err != nil {
		return nil, err
	}
	receipt.Logs = logs
	c.recordLocked(receipt)
	return receipt, nil
}

func (c *simChain) newReceipt(opts types.TxOptions) *types.Receipt {
	c.blockNumber++
	c.executeCount++
	var txHash common.Hash
	txHash[0] = byte(c.executeCount)
	txHash[1] = byte(c.executeCount >> 8)
	return &types.Receipt{
		TxHash:      txHash,
		BlockNumber: c.blockNumber,
		Sender:      opts.Sender,
	}
}

func (c *simChain) recordLocked(receipt *types.Receipt) {
	c.receipts[receipt.TxHash] = receipt
	c.logs = append(c.logs, receipt.Logs...)
	for _, log := range receipt.Logs {
		for _, sub := range c.subs {
			if sub.query.Address == log.Address && sub.query.Event == log.Event {
				select {
				case sub.ch <- log:
				case <-sub.done:
				}
			}
		}
	}
}

func (c *simChain) applyLocked(to common.Address, method string, args []any, opts types.TxOptions, receipt *types.Receipt) ([]types.Log, error) {
	m, ok := c.managers[to]
	if !ok {
		return nil, revert(method, "unknown contract")
	}

	emit := func(event string, eventArgs map[string]any) types.Log {
		return types.Log{
			Event:       event,
			Args:        eventArgs,
			Address:     to,
			TxHash:      receipt.TxHash,
			BlockNumber: receipt.BlockNumber,
		}
	}

	switch method {
	case "set_token_accepted":
		m.accepted[args[0].(common.Address)] = args[1].(bool)
		return nil, nil

	case "set_controller":
		m.controller = args[0].(common.Address)
		return nil, nil

	case "set_validators":
		addrs := args[0].([]common.Address)
		if len(addrs) > 20 {
			return nil, revert(method, "too many validators")
		}
		m.validators = append([]common.Address(nil), addrs...)
		return nil, nil

	case "create_stream":
		return c.createStreamLocked(to, m, args, opts, emit)

	case "fund_stream":
		stream, err := m.streamByID(method, args)
		if err != nil {
			return nil, err
		}
		if stream.timeLeft(c.now).Sign() == 0 {
			return nil, revert(method, "stream has ended")
		}
		amount := args[1].(*big.Int)
		if err := c.tokens[stream.token].transferFrom(opts.Sender, to, to, amount); err != nil {
			return nil, err
		}
		stream.fundedAmount.Add(stream.fundedAmount, amount)
		stream.lastFunded = c.now
		id := streamID(args[0].(*big.Int))
		return []types.Log{emit(types.EventStreamFunded, map[string]any{"id": id, "amount": amount})}, nil

	case "claim_stream":
		stream, err := m.streamByID(method, args)
		if err != nil {
			return nil, err
		}
		claimable := stream.claimable(c.now)
		if claimable.Sign() <= 0 {
			return nil, revert(method, "nothing to claim")
		}
		c.payOutLocked(to, stream.token, stream.owner, claimable)
		stream.claimedAmount.Add(stream.claimedAmount, claimable)
		stream.lastPull = c.now
		id := streamID(args[0].(*big.Int))
		return []types.Log{emit(types.EventStreamClaimed, map[string]any{"id": id, "amount": claimable})}, nil

	case "cancel_stream":
		stream, err := m.streamByID(method, args)
		if err != nil {
			return nil, err
		}
		if opts.Sender != m.controller && !stream.isCancelable(c.now, m.minStreamLife) {
			return nil, revert(method, "stream not cancelable")
		}
		if stream.cancelled {
			return nil, revert(method, "already cancelled")
		}
		claimable := stream.claimable(c.now)
		refund := new(big.Int).Sub(stream.remaining(), claimable)
		c.payOutLocked(to, stream.token, stream.owner, claimable)
		c.payOutLocked(to, stream.token, stream.funder, refund)
		stream.claimedAmount = new(big.Int).Set(stream.fundedAmount)
		stream.lastPull = c.now
		stream.cancelled = true
		id := streamID(args[0].(*big.Int))
		return []types.Log{emit(types.EventStreamCancelled, map[string]any{"id": id, "refund": refund})}, nil
	}

	return nil, revert(method, "unknown manager method")
}

func (c *simChain) createStreamLocked(
	to common.Address,
	m *simManager,
	args []any,
	opts types.TxOptions,
	emit func(string, map[string]any) types.Log,
) ([]types.Log, error) {
	token := args[0].(common.Address)
	amount := args[1].(*big.Int)
	explicitRate := args[2].(*big.Int)
	products := args[3].([][]byte)
	reason, _ := args[4].([]byte)

	if !m.accepted[token] {
		return nil, revert("create_stream", "token not accepted")
	}

	t := c.tokens[token]
	amountPerSecond := explicitRate
	if explicitRate.Sign() > 0 {
		// Explicit-rate creation draws the whole approved balance.
		balance := t.balanceOf(opts.Sender)
		if allowed := t.allowance(opts.Sender, to); allowed.Cmp(balance) < 0 {
			balance = allowed
		}
		amount = balance
	} else {
		amountPerSecond = new(big.Int)
		for _, v := range m.validators {
			rate, err := c.validators[v](opts.Sender, token, amount, products)
			if err != nil {
				continue
			}
			amountPerSecond.Add(amountPerSecond, rate)
		}
		if amountPerSecond.Sign() <= 0 {
			return nil, revert("create_stream", "no valid products")
		}
	}

	if err := t.transferFrom(opts.Sender, to, to, amount); err != nil {
		return nil, err
	}

	stream := &simStream{
		token:           token,
		funder:          opts.Sender,
		owner:           m.owner,
		amountPerSecond: amountPerSecond,
		startTime:       c.now,
		lastPull:        c.now,
		lastFunded:      c.now,
		fundedAmount:    new(big.Int).Set(amount),
		claimedAmount:   new(big.Int),
		products:        products,
		reason:          reason,
	}
	m.streams = append(m.streams, stream)

	id := big.NewInt(int64(len(m.streams) - 1))
	return []types.Log{emit(types.EventStreamCreated, map[string]any{
		"id":      id,
		"creator": opts.Sender,
		"token":   token,
	})}, nil
}

// payOutLocked moves tokens out of the manager's custody.
func (c *simChain) payOutLocked(manager, token, to common.Address, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	t := c.tokens[token]
	t.balances[to] = new(big.Int).Add(t.balanceOf(to), amount)
}

func streamID(id *big.Int) *big.Int {
	return new(big.Int).Set(id)
}

func (c *simChain) FilterLogs(_ context.Context, query types.LogQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []types.Log
	for _, log := range c.logs {
		if log.Address == query.Address && log.Event == query.Event && log.BlockNumber >= query.StartBlock {
			matched = append(matched, log)
		}
	}
	return matched, nil
}

func (c *simChain) SubscribeLogs(ctx context.Context, query types.LogQuery) (<-chan types.Log, error) {
	c.mu.Lock()
	sub := &simSub{query: query, ch: make(chan types.Log, 64), done: ctx.Done()}
	c.subs = append(c.subs, sub)
	c.mu.Unlock()

	out := make(chan types.Log)
	go func() {
		defer close(out)
		for {
			select {
			case log := <-sub.ch:
				select {
				case out <- log:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// sequentialChain narrows a simChain to types.ChainTransport only, hiding
// ExecuteBatch so tests can exercise code paths for transports without
// batch submission support.
type sequentialChain struct {
	chain *simChain
}

func (c *sequentialChain) Call(ctx context.Context, msg types.CallMsg) ([]any, error) {
	return c.chain.Call(ctx, msg)
}

func (c *sequentialChain) Execute(ctx context.Context, to common.Address, method string, args []any, opts types.TxOptions) (*types.Receipt, error) {
	return c.chain.Execute(ctx, to, method, args, opts)
}

func (c *sequentialChain) FilterLogs(ctx context.Context, query types.LogQuery) ([]types.Log, error) {
	return c.chain.FilterLogs(ctx, query)
}

func (c *sequentialChain) SubscribeLogs(ctx context.Context, query types.LogQuery) (<-chan types.Log, error) {
	return c.chain.SubscribeLogs(ctx, query)
}

func (c *sequentialChain) ReceiptByHash(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.chain.ReceiptByHash(ctx, txHash)
}

func (c *simChain) ReceiptByHash(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, revert("receipt", "unknown transaction")
	}
	return receipt, nil
}
