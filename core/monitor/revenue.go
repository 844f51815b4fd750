package monitor

import (
	"context"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/golang-sql/civil"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/logging"
	"github.com/streampay/sdk-go/core/streamclient"
	"github.com/streampay/sdk-go/core/types"
)

// defaultBatchSize bounds how many claims go into one batched submission.
const defaultBatchSize = 100

// decimalCtx sizes decimal arithmetic for 256-bit token amounts.
var decimalCtx = apd.BaseContext.WithPrecision(78)

// RevenueReport aggregates claimed revenue per token symbol per civil day,
// in whole tokens.
type RevenueReport struct {
	Collected map[string]map[civil.Date]*apd.Decimal
}

func newRevenueReport() *RevenueReport {
	return &RevenueReport{Collected: map[string]map[civil.Date]*apd.Decimal{}}
}

func (r *RevenueReport) add(symbol string, day civil.Date, amount *apd.Decimal) error {
	days, ok := r.Collected[symbol]
	if !ok {
		days = map[civil.Date]*apd.Decimal{}
		r.Collected[symbol] = days
	}

	total, ok := days[day]
	if !ok {
		total = new(apd.Decimal)
		days[day] = total
	}

	_, err := decimalCtx.Add(total, total, amount)
	return errors.Wrap(err, "accumulate revenue")
}

// RevenueCollector claims matured streams on behalf of the manager's owner
// and keeps book of what came in.
type RevenueCollector struct {
	manager   *api.StreamManager
	settings  streamclient.Settings
	logger    *zap.Logger
	batchSize int
}

// RevenueCollectorOptions configures NewRevenueCollector.
type RevenueCollectorOptions struct {
	Manager  *api.StreamManager
	Settings streamclient.Settings
	Logger   *zap.Logger
	// BatchSize caps claims per batched submission; zero means the default.
	BatchSize int
}

func NewRevenueCollector(opts RevenueCollectorOptions) (*RevenueCollector, error) {
	if opts.Manager == nil {
		return nil, errors.New("revenue collector requires a stream manager")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &RevenueCollector{
		manager:   opts.Manager,
		settings:  opts.Settings,
		logger:    logger,
		batchSize: batchSize,
	}, nil
}

// CollectOnce scans the unclaimed streams and claims every one that has
// ended, plus the active ones whose claimable balance clears the per-token
// minimum. Claims are batched up to the batch size; per-item failures from
// the sequential fallback are logged and reported, never swallowed.
func (c *RevenueCollector) CollectOnce(ctx context.Context, opts types.TxOptions) (*RevenueReport, error) {
	unclaimed, err := c.manager.UnclaimedStreams(ctx)
	if err != nil {
		return nil, err
	}

	report := newRevenueReport()
	today := civil.DateOf(time.Now().UTC())

	var due []*api.Stream
	for _, stream := range unclaimed {
		claimable, err := stream.AmountClaimable(ctx)
		if err != nil {
			return nil, err
		}

		active, err := stream.IsActive(ctx)
		if err != nil {
			return nil, err
		}

		symbol, err := stream.TokenSymbol(ctx)
		if err != nil {
			return nil, err
		}

		// Ended streams are always claimed; active ones only once they
		// clear the configured minimum for their token.
		if active {
			minClaim, configured := c.settings.MinClaim[symbol]
			if !configured || claimable.Cmp(minClaim) <= 0 {
				continue
			}
		}

		decimals, err := stream.TokenDecimals(ctx)
		if err != nil {
			return nil, err
		}

		var amount apd.Decimal
		amount.Coeff.SetMathBigInt(claimable)
		amount.Exponent = int32(-decimals)
		if err := report.add(symbol, today, &amount); err != nil {
			return nil, err
		}

		due = append(due, stream)
	}

	for start := 0; start < len(due); start += c.batchSize {
		end := start + c.batchSize
		if end > len(due) {
			end = len(due)
		}

		results, err := c.manager.ClaimMany(ctx, due[start:end], opts)
		if err != nil {
			return report, err
		}
		for _, result := range results {
			if result.Err != nil {
				c.logger.Warn("claim failed",
					zap.String("id", result.Stream.ID.String()),
					zap.Error(result.Err))
			}
		}
	}

	c.logger.Info("revenue collection pass complete",
		zap.Int("unclaimed", len(unclaimed)),
		zap.Int("claimed", len(due)))
	return report, nil
}
