package emergency

import (
	"errors"
	"strings"
	"time"
)

// SOSServiceLabel names the call placed when the SOS countdown expires.
const SOSServiceLabel = "911 Emergency"

var ErrInvalidNumber = errors.New("phone number must contain only digits, '+', '*' or '#'")

// Intent is a telephony intent: the page navigates to Href to start the call.
type Intent struct {
	Service  string    `json:"service"`
	Number   string    `json:"number"`
	Href     string    `json:"href"`
	PlacedAt time.Time `json:"placed_at"`
}

// NewIntent builds a tel: intent for number.
func NewIntent(service, number string, at time.Time) (Intent, error) {
	number = strings.TrimSpace(number)
	if !validNumber(number) {
		return Intent{}, ErrInvalidNumber
	}
	return Intent{
		Service:  strings.TrimSpace(service),
		Number:   number,
		Href:     TelURI(number),
		PlacedAt: at.UTC(),
	}, nil
}

// TelURI returns the tel: target for a number.
func TelURI(number string) string {
	return "tel:" + number
}

func validNumber(n string) bool {
	if n == "" {
		return false
	}
	for _, r := range n {
		switch {
		case r >= '0' && r <= '9':
		case r == '+' || r == '*' || r == '#':
		default:
			return false
		}
	}
	return true
}
