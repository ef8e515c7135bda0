package notify

import (
	"fmt"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
)

// Variant selects toast styling.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a transient user-facing notification.
type Toast struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Variant     Variant   `json:"variant"`
	At          time.Time `json:"at"`
}

func newToast(title, desc string, v Variant) Toast {
	return Toast{Title: title, Description: desc, Variant: v, At: time.Now().UTC()}
}

func LocationCaptured() Toast {
	return newToast("Location captured", "Your location has been added to the report.", VariantDefault)
}

func LocationError(message string) Toast {
	return newToast("Location Error", message, VariantDestructive)
}

func ImagesAdded(n int) Toast {
	return newToast("Images uploaded", fmt.Sprintf("%d image(s) added to your report.", n), VariantDefault)
}

func ReportSubmitted() Toast {
	return newToast("Report Submitted Successfully!", "Emergency services have been notified. Help is on the way.", VariantDefault)
}

func SOSActivated(number string, seconds int) Toast {
	return newToast("Emergency SOS Activated",
		fmt.Sprintf("Calling %s in %d seconds. Location will be shared automatically.", number, seconds),
		VariantDestructive)
}

func SOSCancelled() Toast {
	return newToast("SOS Cancelled", "Emergency call has been cancelled.", VariantDefault)
}

// CallingWithLocation is shown once the best-effort location read for a call succeeds.
func CallingWithLocation(service string, c geo.Coordinates) Toast {
	return newToast("Calling "+service, "Location shared: "+c.Format(4), VariantDefault)
}
