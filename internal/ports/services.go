package ports

import (
	"context"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
)

// ----- DTOs for Location Acquisition -----

// LocationState is what the page shows about the captured position.
type LocationState struct {
	Location  *geo.Coordinates `json:"location,omitempty"`
	Error     string           `json:"error,omitempty"`
	Loading   bool             `json:"loading"`
	Supported bool             `json:"supported"`
}

// LocationTracker owns the page-level position.
type LocationTracker interface {
	Acquire(ctx context.Context) LocationState
	Snapshot() LocationState
	Current() *geo.Coordinates
	Close()
}

// ----- DTOs for Report Submission -----

// FormState is the rendered state of the report form.
type FormState struct {
	Draft         report.Draft    `json:"draft"`
	Images        []report.Image  `json:"images"`
	Submitting    bool            `json:"submitting"`
	VisibleFields report.FieldSet `json:"visible_fields"`
}

// SubmitReceipt is returned once a report has been submitted.
type SubmitReceipt struct {
	ReportID     string    `json:"report_id"`
	ReportNumber string    `json:"report_number"`
	SubmittedAt  time.Time `json:"submitted_at"`
	Message      string    `json:"message"`
}

// ReportForm holds the draft and runs the submission.
type ReportForm interface {
	Set(ctx context.Context, field report.Field, value string) (FormState, error)
	AttachImages(ctx context.Context, images ...report.Image) FormState
	Submit(ctx context.Context) (SubmitReceipt, error)
	Snapshot() FormState
	Close()
}

// ----- DTOs for Emergency Call / SOS -----

// SOSState is the rendered state of the SOS countdown.
type SOSState struct {
	Status    emergency.SOSStatus `json:"status"`
	Remaining int                 `json:"remaining"`
}

// CallState tells the page whether the call buttons are disabled.
type CallState struct {
	Busy bool `json:"busy"`
}

// Dialer places calls. Call honours the busy window; Dispatch is for the SOS expiry
// and always goes through.
type Dialer interface {
	Call(ctx context.Context, service, number string) (emergency.Intent, error)
	Dispatch(ctx context.Context, service, number string) (emergency.Intent, error)
	Busy() bool
	Close()
}

// SOSCountdown runs the countdown-before-call interaction.
type SOSCountdown interface {
	Start(ctx context.Context) (SOSState, error)
	Cancel(ctx context.Context) (SOSState, error)
	Snapshot() SOSState
	Close()
}
