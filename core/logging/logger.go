package logging

import (
	"go.uber.org/zap"
)

// Logger is the package-level logger used by SDK internals that have no
// per-client logger injected. Defaults to the zap production config.
var Logger *zap.Logger

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Logger = logger
}

// SetLogger replaces the package-level logger. Intended for applications that
// want SDK internals to log through their own configured instance.
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	Logger = logger
}
