package contracts

import "time"

// ReportSubmittedMessage is published when a page submits a report.
// Routing key: "report.submitted.{severity}" on ExchangeIncidentTopic ("unspecified" when no severity was chosen).
type ReportSubmittedMessage struct {
	ReportID         string        `json:"report_id"`
	ReportNumber     string        `json:"report_number"`
	ReporterType     string        `json:"reporter_type,omitempty"`
	ContactNumber    string        `json:"contact_number,omitempty"` // omitted for anonymous reports
	IsAnonymous      bool          `json:"is_anonymous"`
	AccidentType     string        `json:"accident_type,omitempty"`
	NumberOfVehicles string        `json:"number_of_vehicles,omitempty"`
	Severity         string        `json:"severity,omitempty"`
	Injuries         string        `json:"injuries,omitempty"`
	Description      string        `json:"description,omitempty"`
	Patient          *PatientBrief `json:"patient,omitempty"`
	Location         *GeoPoint     `json:"location,omitempty"`
	Images           []ImageBrief  `json:"images,omitempty"`
	SubmittedAt      time.Time     `json:"submitted_at"`
	Envelope
}

// EmergencyCallMessage is published when a direct call is placed.
// Routing key: "emergency.call.{service}".
type EmergencyCallMessage struct {
	Service  string    `json:"service"`
	Number   string    `json:"number"`
	Href     string    `json:"href"`
	PlacedAt time.Time `json:"placed_at"`
	Envelope
}

// SOSStatusMessage is published on every SOS transition.
// Routing key: "emergency.sos.{status}".
type SOSStatusMessage struct {
	Status    string    `json:"status"` // counting|dispatching|cancelled|idle
	Remaining int       `json:"remaining"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
