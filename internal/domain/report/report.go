package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/google/uuid"
)

// Image is an attached photo. Only metadata is kept.
type Image struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Report is the immutable snapshot handed to sinks on submission.
type Report struct {
	ID               string           `json:"id"`
	Number           string           `json:"number"`
	ReporterType     ReporterType     `json:"reporter_type,omitempty"`
	ContactNumber    string           `json:"contact_number,omitempty"`
	IsAnonymous      bool             `json:"is_anonymous"`
	AccidentType     AccidentType     `json:"accident_type,omitempty"`
	NumberOfVehicles VehicleCount     `json:"number_of_vehicles,omitempty"`
	Severity         Severity         `json:"severity,omitempty"`
	Injuries         InjuryStatus     `json:"injuries,omitempty"`
	Description      string           `json:"description,omitempty"`
	Patient          *Patient         `json:"patient,omitempty"`
	Location         *geo.Coordinates `json:"location,omitempty"`
	Images           []Image          `json:"images,omitempty"`
	SubmittedAt      time.Time        `json:"submitted_at"`
}

// NewReport snapshots a draft.
// The patient sub-record is carried only when it was solicited, and the contact number only when not anonymous.
func NewReport(d Draft, images []Image, loc *geo.Coordinates, now time.Time) Report {
	now = now.UTC()
	r := Report{
		ID:               uuid.NewString(),
		Number:           generateReportNumber(now),
		ReporterType:     d.ReporterType,
		IsAnonymous:      d.IsAnonymous,
		AccidentType:     d.AccidentType,
		NumberOfVehicles: d.NumberOfVehicles,
		Severity:         d.Severity,
		Injuries:         d.Injuries,
		Description:      strings.TrimSpace(d.Description),
		SubmittedAt:      now,
	}

	if !d.IsAnonymous {
		r.ContactNumber = d.ContactNumber
	}
	if PatientSectionVisible(d.Severity) && !d.Patient.IsEmpty() {
		p := d.Patient
		r.Patient = &p
	}
	if loc != nil {
		c := *loc
		r.Location = &c
	}
	if len(images) > 0 {
		r.Images = append([]Image(nil), images...)
	}

	return r
}

// Summary is a one-line human description, e.g. "Vehicle Collision (critical): two cars at the junction".
func (r Report) Summary() string {
	kind := r.AccidentType.Label()
	if kind == "" {
		kind = "Accident"
	}
	if r.Severity != "" {
		kind += " (" + r.Severity.String() + ")"
	}
	if r.Description == "" {
		return kind
	}
	return kind + ": " + r.Description
}

// generateReportNumber returns an ID like: RPT_YYYYMMDD_HHMMSS_XXX
// where XXX is the millisecond fragment.
func generateReportNumber(now time.Time) string {
	return fmt.Sprintf("RPT_%04d%02d%02d_%02d%02d%02d_%03d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1e6,
	)
}
