package util

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/streampay/sdk-go/core/types"
)

// unitDurations maps canonical time-unit names to the span of one unit.
var unitDurations = map[string]time.Duration{
	"seconds": time.Second,
	"minutes": time.Minute,
	"hours":   time.Hour,
	"days":    24 * time.Hour,
	"weeks":   7 * 24 * time.Hour,
}

// unitShorthand maps accepted abbreviations to canonical unit names.
var unitShorthand = map[string]string{
	"wk":   "weeks",
	"d":    "days",
	"h":    "hours",
	"hr":   "hours",
	"m":    "minutes",
	"min":  "minutes",
	"mins": "minutes",
	"s":    "seconds",
	"sec":  "seconds",
	"secs": "seconds",
}

// CoerceTimeUnit normalizes a human time-unit word (case-insensitive,
// optionally pluralized or abbreviated) to its canonical plural form.
// Unknown units pass through unchanged; duration construction fails on them
// downstream.
func CoerceTimeUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))

	switch unit {
	case "week", "day", "hour", "minute", "second":
		return unit + "s"
	}

	if canonical, ok := unitShorthand[unit]; ok {
		return canonical
	}

	return unit
}

// TimeUnitDuration constructs a one-unit duration for the given time-unit
// word. Unrecognized units are a defined failure, not a silent default.
func TimeUnitDuration(unit string) (time.Duration, error) {
	d, ok := unitDurations[CoerceTimeUnit(unit)]
	if !ok {
		return 0, &types.InvalidTimeUnitError{Unit: unit}
	}
	return d, nil
}

// TotalSeconds returns the second count of one unit of the given time-unit
// word, used as the divisor when converting "amount per unit time" into
// "amount per second".
func TotalSeconds(unit string) (int64, error) {
	d, err := TimeUnitDuration(unit)
	if err != nil {
		return 0, err
	}
	return int64(d / time.Second), nil
}

// ParseRate splits a rate expression "<amount>/<unit>" into its numeric
// amount and time-unit word. The unit is not validated here; see
// TimeUnitDuration.
func ParseRate(expr string) (*big.Int, string, error) {
	value, unit, found := strings.Cut(expr, "/")
	if !found {
		return nil, "", errors.Errorf("rate '%s' is not of the form '<amount>/<unit>'", expr)
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, "", errors.Errorf("rate '%s' has a non-numeric amount", expr)
	}

	return amount, strings.TrimSpace(unit), nil
}

// RatePerSecond converts a rate expression into an absolute per-second
// amount using truncating division. Fractional rates below one token-unit
// per second floor to zero and are rejected as invalid.
func RatePerSecond(expr string) (*big.Int, error) {
	amount, unit, err := ParseRate(expr)
	if err != nil {
		return nil, err
	}

	seconds, err := TotalSeconds(unit)
	if err != nil {
		return nil, err
	}

	perSecond := new(big.Int).Quo(amount, big.NewInt(seconds))
	if perSecond.Sign() <= 0 {
		return nil, &types.InvalidRateError{Rate: expr}
	}

	return perSecond, nil
}

// ParseDuration accepts the three duration spellings used in settings:
// bare integer seconds, "HH:MM:SS", or "<n> <unit>".
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	if parts := strings.Split(value, ":"); len(parts) == 3 {
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		s, errS := strconv.Atoi(parts[2])
		if errH != nil || errM != nil || errS != nil {
			return 0, errors.Errorf("cannot convert '%s' to a duration", value)
		}
		return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
	}

	multiplier, unit, found := strings.Cut(value, " ")
	if !found {
		return 0, errors.Errorf("cannot convert '%s' to a duration", value)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(multiplier), 10, 64)
	if err != nil {
		return 0, errors.Errorf("cannot convert '%s' to a duration", value)
	}

	d, err := TimeUnitDuration(unit)
	if err != nil {
		return 0, err
	}

	return time.Duration(n) * d, nil
}
