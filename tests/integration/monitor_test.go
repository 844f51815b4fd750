package integration

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streampay/sdk-go/core/monitor"
	"github.com/streampay/sdk-go/core/streamclient"
	"github.com/streampay/sdk-go/core/types"
)

func newTestMonitor(t *testing.T, f *fixture) *monitor.Monitor {
	t.Helper()
	m, err := monitor.NewMonitor(monitor.MonitorOptions{
		Manager:  f.manager,
		Settings: streamclient.DefaultSettings(),
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return m
}

func TestMonitorClassification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := newTestMonitor(t, f)

	// Three days of life at 1 unit/sec.
	stream := newStream(t, f, 3*24*3600, nil)

	notification, err := m.Classify(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNormal, notification.Status)

	// Inside the 48h warning window.
	f.chain.advance(2 * 24 * time.Hour)
	notification, err = m.Classify(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, types.StatusWarning, notification.Status)

	// Inside the 12h critical window.
	f.chain.advance(16 * time.Hour)
	notification, err = m.Classify(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCritical, notification.Status)

	f.chain.advance(12 * time.Hour)
	notification, err = m.Classify(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInactive, notification.Status)
	assert.Equal(t, time.Duration(0), notification.TimeLeft)
}

func TestMonitorRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t)
	m := newTestMonitor(t, f)

	notifications, err := m.Run(ctx, 0)
	require.NoError(t, err)

	stream := newStream(t, f, 7200, nil)

	select {
	case notification := <-notifications:
		assert.Equal(t, stream.ID, notification.Stream.ID)
		// Two hours of life is already inside the critical window.
		assert.Equal(t, types.StatusCritical, notification.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no notification for created stream")
	}

	cancel()
	for range notifications {
		// drain until the subscription closes
	}
}

func TestRevenueCollector(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	settings := streamclient.DefaultSettings()
	settings.MinClaim["USDC"] = big.NewInt(5000)

	collector, err := monitor.NewRevenueCollector(monitor.RevenueCollectorOptions{
		Manager:  f.manager,
		Settings: settings,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	// One stream that will end, one that stays active below the claim
	// threshold.
	ended := newStream(t, f, 7200, nil)
	activeStream := newStream(t, f, 14400, nil)

	f.chain.advance(2 * time.Hour)

	report, err := collector.CollectOnce(ctx, types.TxOptions{Sender: payee})
	require.NoError(t, err)

	// The ended stream is always claimed; the active one accrued 7200
	// claimable, above the 5000 minimum, so it is claimed too.
	claimable, err := ended.AmountClaimable(ctx)
	require.NoError(t, err)
	assert.Zero(t, claimable.Sign())

	claimable, err = activeStream.AmountClaimable(ctx)
	require.NoError(t, err)
	assert.Zero(t, claimable.Sign())

	today := civil.DateOf(time.Now().UTC())
	require.Contains(t, report.Collected, "USDC")
	require.Contains(t, report.Collected["USDC"], today)
	// 7200 + 7200 smallest units at 6 decimals.
	assert.Equal(t, "0.014400", report.Collected["USDC"][today].Text('f'))
}

func TestRevenueCollectorLeavesSmallClaims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	settings := streamclient.DefaultSettings()
	settings.MinClaim["USDC"] = big.NewInt(5000)

	collector, err := monitor.NewRevenueCollector(monitor.RevenueCollectorOptions{
		Manager:  f.manager,
		Settings: settings,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)

	stream := newStream(t, f, 14400, nil)
	f.chain.advance(30 * time.Minute)

	_, err = collector.CollectOnce(ctx, types.TxOptions{Sender: payee})
	require.NoError(t, err)

	// 1800 accrued is below the minimum; the stream keeps its balance.
	claimable, err := stream.AmountClaimable(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), claimable.Int64())
}
