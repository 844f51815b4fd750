package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	api "github.com/streampay/sdk-go/core/contractsapi"
	"github.com/streampay/sdk-go/core/logging"
	"github.com/streampay/sdk-go/core/streamclient"
	"github.com/streampay/sdk-go/core/types"
)

// Notification reports one observed stream together with its current
// funding health. TimeLeft is the live value read at classification time,
// not whatever the triggering event claimed: events for the same stream can
// race across types, so the ledger is always re-read.
type Notification struct {
	Stream   *api.Stream
	Status   types.Status
	TimeLeft time.Duration
}

// Monitor watches one manager's streams and classifies their funding
// health against the configured thresholds.
type Monitor struct {
	manager  *api.StreamManager
	settings streamclient.Settings
	logger   *zap.Logger
}

// MonitorOptions configures NewMonitor.
type MonitorOptions struct {
	Manager  *api.StreamManager
	Settings streamclient.Settings
	Logger   *zap.Logger
}

func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Manager == nil {
		return nil, errors.New("monitor requires a stream manager")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}

	return &Monitor{
		manager:  opts.Manager,
		settings: opts.Settings,
		logger:   logger,
	}, nil
}

// Classify reads the stream's live remaining life and maps it to a status.
func (m *Monitor) Classify(ctx context.Context, stream *api.Stream) (Notification, error) {
	timeLeft, err := stream.TimeLeft(ctx)
	if err != nil {
		return Notification{}, err
	}

	return Notification{
		Stream:   stream,
		Status:   types.StatusFromTimeLeft(timeLeft, m.settings.WarningLevel, m.settings.CriticalLevel),
		TimeLeft: timeLeft,
	}, nil
}

// Run starts watching. It first classifies every stream that is still
// active or still holds claimable funds, then keeps emitting a notification
// for each lifecycle event until ctx is cancelled, at which point the
// channel closes. The caller owns the cancellation boundary; nothing here
// blocks without it.
func (m *Monitor) Run(ctx context.Context, startBlock uint64) (<-chan Notification, error) {
	created, err := m.manager.WatchCreatedStreams(ctx, startBlock)
	if err != nil {
		return nil, err
	}
	funded, err := m.manager.WatchFundedStreams(ctx, startBlock)
	if err != nil {
		return nil, err
	}
	claimed, err := m.manager.WatchClaimedStreams(ctx, startBlock)
	if err != nil {
		return nil, err
	}
	cancelled, err := m.manager.WatchCancelledStreams(ctx, startBlock)
	if err != nil {
		return nil, err
	}

	notifications := make(chan Notification)

	emit := func(stream *api.Stream) {
		notification, err := m.Classify(ctx, stream)
		if err != nil {
			m.logger.Warn("failed to classify stream",
				zap.String("id", stream.ID.String()), zap.Error(err))
			return
		}
		select {
		case notifications <- notification:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(notifications)

		streams, err := m.manager.AllStreams(ctx)
		if err != nil {
			m.logger.Warn("initial stream scan failed", zap.Error(err))
		}
		for _, stream := range streams {
			active, err := stream.IsActive(ctx)
			if err != nil {
				m.logger.Warn("failed to read stream state",
					zap.String("id", stream.ID.String()), zap.Error(err))
				continue
			}
			if !active {
				claimable, err := stream.AmountClaimable(ctx)
				if err != nil || claimable.Sign() <= 0 {
					continue
				}
			}
			emit(stream)
		}

		var wg sync.WaitGroup
		for _, events := range []<-chan *api.Stream{created, funded, claimed, cancelled} {
			wg.Add(1)
			go func(events <-chan *api.Stream) {
				defer wg.Done()
				for stream := range events {
					emit(stream)
				}
			}(events)
		}
		wg.Wait()
	}()

	return notifications, nil
}
