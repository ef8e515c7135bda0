package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

var (
	ErrSubmitting = errors.New("report is already being submitted")
	ErrClosed     = errors.New("report form is closed")
)

// DefaultSubmitDelay is the simulated round trip of a submission.
const DefaultSubmitDelay = 2 * time.Second

// Form holds the draft of one page and runs its submission.
type Form struct {
	logger   *logger.Logger
	notifier ports.Notifier
	location func() *geo.Coordinates
	sinks    []ports.ReportSink
	delay    time.Duration
	now      func() time.Time
	onChange func(ports.FormState)

	lifetime context.Context
	cancel   context.CancelFunc

	mu         sync.Mutex
	draft      report.Draft
	images     []report.Image
	submitting bool
	closed     bool

	wg sync.WaitGroup
}

// NewForm creates an empty form scoped to lifetime.
// location reads the page position at submit time; onChange may be nil.
func NewForm(
	lifetime context.Context,
	logger *logger.Logger,
	notifier ports.Notifier,
	location func() *geo.Coordinates,
	delay time.Duration,
	onChange func(ports.FormState),
	sinks ...ports.ReportSink,
) *Form {
	if delay < 0 {
		delay = DefaultSubmitDelay
	}
	if location == nil {
		location = func() *geo.Coordinates { return nil }
	}
	ctx, cancel := context.WithCancel(lifetime)
	return &Form{
		logger:   logger,
		notifier: notifier,
		location: location,
		sinks:    sinks,
		delay:    delay,
		now:      time.Now,
		onChange: onChange,
		lifetime: ctx,
		cancel:   cancel,
	}
}

// Set replaces one field of the draft. Last write wins.
func (f *Form) Set(ctx context.Context, field report.Field, value string) (ports.FormState, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ports.FormState{}, ErrClosed
	}
	next, err := f.draft.With(field, value)
	if err != nil {
		st := f.snapshotLocked()
		f.mu.Unlock()
		return st, err
	}
	f.draft = next
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.logger.Debug(ctx, "report_field_set", "Report field updated", map[string]any{"field": string(field)})
	f.changed(st)
	return st, nil
}

// AttachImages appends to the image list. Nothing happens for zero images.
func (f *Form) AttachImages(ctx context.Context, images ...report.Image) ports.FormState {
	f.mu.Lock()
	if f.closed || len(images) == 0 {
		st := f.snapshotLocked()
		f.mu.Unlock()
		return st
	}
	f.images = append(f.images, images...)
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.logger.Info(ctx, "report_images_attached", "Images attached to report", map[string]any{
		"added": len(images),
		"total": len(st.Images),
	})
	f.notifier.Notify(ctx, notify.ImagesAdded(len(images)))
	f.changed(st)
	return st
}

// Snapshot returns the rendered form state.
func (f *Form) Snapshot() ports.FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Close aborts a pending submission.
func (f *Form) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
	// reports already submitted still reach their sinks
	f.wg.Wait()
}

func (f *Form) snapshotLocked() ports.FormState {
	images := make([]report.Image, len(f.images))
	copy(images, f.images)
	return ports.FormState{
		Draft:         f.draft,
		Images:        images,
		Submitting:    f.submitting,
		VisibleFields: report.VisibleFields(f.draft),
	}
}

func (f *Form) changed(st ports.FormState) {
	if f.onChange != nil {
		f.onChange(st)
	}
}
