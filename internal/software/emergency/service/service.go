package service

import (
	"errors"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

var (
	ErrCallInProgress = errors.New("a call was just placed")
	ErrSOSActive      = errors.New("sos countdown already active")
	ErrNoCountdown    = errors.New("no sos countdown to cancel")
	ErrClosed         = errors.New("emergency service is closed")
)

// Deps are the collaborators shared by the dialer and the SOS countdown.
// Positioner and Publisher may be nil.
type Deps struct {
	Logger     *logger.Logger
	Positioner ports.Positioner
	Options    ports.PositionOptions
	Notifier   ports.Notifier
	Navigator  ports.Navigator
	Publisher  ports.Publisher
	SessionID  string
}
