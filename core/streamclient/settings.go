package streamclient

import (
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/streampay/sdk-go/core/util"
)

// envPrefix namespaces every settings variable.
const envPrefix = "STREAMPAY_"

// Settings are the monitoring thresholds and claim policies shared by the
// client and the monitor daemon.
//
// WarningLevel and CriticalLevel classify a stream's remaining life;
// WarningLevel must exceed CriticalLevel, which must be positive.
type Settings struct {
	WarningLevel  time.Duration
	CriticalLevel time.Duration

	// MinClaim is the minimum claimable balance, per token symbol, below
	// which the revenue collector leaves an active stream alone. A symbol
	// without an entry defaults to "only claim when expired".
	MinClaim map[string]*big.Int
}

// DefaultSettings mirrors the contract-agnostic defaults: warn with two
// days of life left, escalate at twelve hours.
func DefaultSettings() Settings {
	return Settings{
		WarningLevel:  48 * time.Hour,
		CriticalLevel: 12 * time.Hour,
		MinClaim:      map[string]*big.Int{},
	}
}

// Validate rejects threshold configurations the status engine is not
// defended against.
func (s Settings) Validate() error {
	if s.CriticalLevel <= 0 {
		return errors.New("critical level must be positive")
	}
	if s.WarningLevel <= s.CriticalLevel {
		return errors.Errorf(
			"warning level (%s) must exceed critical level (%s)",
			s.WarningLevel, s.CriticalLevel,
		)
	}
	return nil
}

// LoadSettings reads settings from the environment, optionally loading
// dotenv files first. Threshold variables accept integer seconds,
// "HH:MM:SS", or "<n> <unit>":
//
//	STREAMPAY_WARNING_LEVEL="2 days"
//	STREAMPAY_CRITICAL_LEVEL="12:00:00"
//	STREAMPAY_MIN_CLAIM_USDC="100000000"
func LoadSettings(envFiles ...string) (*Settings, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, errors.Wrap(err, "load settings env")
		}
	}

	settings := DefaultSettings()

	if raw := os.Getenv(envPrefix + "WARNING_LEVEL"); raw != "" {
		level, err := util.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		settings.WarningLevel = level
	}

	if raw := os.Getenv(envPrefix + "CRITICAL_LEVEL"); raw != "" {
		level, err := util.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		settings.CriticalLevel = level
	}

	for _, entry := range os.Environ() {
		key, value, _ := strings.Cut(entry, "=")
		symbol, ok := strings.CutPrefix(key, envPrefix+"MIN_CLAIM_")
		if !ok || symbol == "" {
			continue
		}

		minClaim, parsed := new(big.Int).SetString(value, 10)
		if !parsed {
			return nil, errors.Errorf("%s: '%s' is not a valid integer", key, value)
		}
		settings.MinClaim[symbol] = minClaim
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}
