package emergency

import (
	"errors"
	"strings"
)

// SOSStatus is a state of the SOS countdown.
type SOSStatus string

const (
	SOSIdle        SOSStatus = "idle"
	SOSCounting    SOSStatus = "counting"
	SOSDispatching SOSStatus = "dispatching"
	SOSCancelled   SOSStatus = "cancelled"
)

var ErrInvalidSOSStatus = errors.New("invalid sos status")

// ParseSOSStatus normalizes (lowercases+trims) and validates a status string.
func ParseSOSStatus(in string) (SOSStatus, error) {
	s := SOSStatus(strings.ToLower(strings.TrimSpace(in)))
	if s.Valid() {
		return s, nil
	}
	return "", ErrInvalidSOSStatus
}

// Valid reports whether s is one of the status constants.
func (s SOSStatus) Valid() bool {
	switch s {
	case SOSIdle, SOSCounting, SOSDispatching, SOSCancelled:
		return true
	default:
		return false
	}
}

func (s SOSStatus) String() string {
	return string(s)
}

// CanTransitionTo encodes Idle -> Counting -> Dispatching -> Idle and Counting -> Cancelled -> Idle.
// Counting -> Counting is a tick.
func (s SOSStatus) CanTransitionTo(next SOSStatus) bool {
	switch s {
	case SOSIdle:
		return next == SOSCounting
	case SOSCounting:
		return next == SOSCounting || next == SOSDispatching || next == SOSCancelled
	case SOSDispatching, SOSCancelled:
		return next == SOSIdle
	default:
		return false
	}
}

// Active reports whether a countdown or dispatch is underway.
func (s SOSStatus) Active() bool {
	return s == SOSCounting || s == SOSDispatching
}
