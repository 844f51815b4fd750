package unit

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streampay/sdk-go/core/types"
	"github.com/streampay/sdk-go/core/util"
)

func TestCoerceTimeUnit(t *testing.T) {
	t.Run("Singular forms pluralize", func(t *testing.T) {
		assert.Equal(t, "hours", util.CoerceTimeUnit("hour"))
		assert.Equal(t, "weeks", util.CoerceTimeUnit("week"))
	})

	t.Run("Abbreviations expand", func(t *testing.T) {
		assert.Equal(t, "seconds", util.CoerceTimeUnit("sec"))
		assert.Equal(t, "minutes", util.CoerceTimeUnit("min"))
		assert.Equal(t, "hours", util.CoerceTimeUnit("HR"))
		assert.Equal(t, "days", util.CoerceTimeUnit(" d "))
	})

	t.Run("Unknown units pass through", func(t *testing.T) {
		assert.Equal(t, "fortnights", util.CoerceTimeUnit("fortnights"))
	})
}

func TestTotalSeconds(t *testing.T) {
	seconds, err := util.TotalSeconds("hour")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), seconds)

	seconds, err = util.TotalSeconds("weeks")
	require.NoError(t, err)
	assert.Equal(t, int64(604800), seconds)

	_, err = util.TotalSeconds("fortnights")
	var unitErr *types.InvalidTimeUnitError
	require.ErrorAs(t, err, &unitErr)
	assert.Equal(t, "fortnights", unitErr.Unit)
}

func TestParseRate(t *testing.T) {
	t.Run("Well formed", func(t *testing.T) {
		amount, unit, err := util.ParseRate("3600/hour")
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(3600), amount)
		assert.Equal(t, "hour", unit)
	})

	t.Run("Whitespace tolerated", func(t *testing.T) {
		amount, unit, err := util.ParseRate(" 100 / day ")
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(100), amount)
		assert.Equal(t, "day", unit)
	})

	t.Run("Missing separator", func(t *testing.T) {
		_, _, err := util.ParseRate("3600")
		assert.Error(t, err)
	})

	t.Run("Non-numeric amount", func(t *testing.T) {
		_, _, err := util.ParseRate("lots/hour")
		assert.Error(t, err)
	})
}

func TestRatePerSecond(t *testing.T) {
	t.Run("Truncating division", func(t *testing.T) {
		perSecond, err := util.RatePerSecond("7201/hour")
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(2), perSecond)
	})

	t.Run("Sub-unit rates rejected", func(t *testing.T) {
		_, err := util.RatePerSecond("100/hour")
		var rateErr *types.InvalidRateError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, "100/hour", rateErr.Rate)
	})

	t.Run("Unknown unit surfaces", func(t *testing.T) {
		_, err := util.RatePerSecond("100/fortnight")
		var unitErr *types.InvalidTimeUnitError
		assert.ErrorAs(t, err, &unitErr)
	})
}

func TestParseDuration(t *testing.T) {
	t.Run("Bare integer seconds", func(t *testing.T) {
		d, err := util.ParseDuration("86400")
		require.NoError(t, err)
		assert.Equal(t, 24*time.Hour, d)
	})

	t.Run("Clock notation", func(t *testing.T) {
		d, err := util.ParseDuration("36:30:15")
		require.NoError(t, err)
		assert.Equal(t, 36*time.Hour+30*time.Minute+15*time.Second, d)
	})

	t.Run("Count and unit", func(t *testing.T) {
		d, err := util.ParseDuration("2 days")
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour, d)
	})

	t.Run("Garbage rejected", func(t *testing.T) {
		_, err := util.ParseDuration("soon")
		assert.Error(t, err)

		_, err = util.ParseDuration("1:2")
		assert.Error(t, err)
	})
}
