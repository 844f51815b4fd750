package types

import "time"

// Status is the funding-health classification of a stream, derived purely
// from its remaining life.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusCritical
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// StatusFromTimeLeft maps remaining stream life to a Status against two
// thresholds. Callers must configure warning > critical > 0; the mapping is
// not defended against misordered thresholds.
func StatusFromTimeLeft(timeLeft, warning, critical time.Duration) Status {
	switch {
	case timeLeft > warning:
		return StatusNormal
	case timeLeft > critical:
		return StatusWarning
	case timeLeft > 0:
		return StatusCritical
	default:
		return StatusInactive
	}
}
