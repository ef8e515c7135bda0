package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

// DefaultBusyWindow is how long call buttons stay disabled after a call.
const DefaultBusyWindow = 3 * time.Second

// Dialer places direct calls by pointing the page at a tel: intent.
type Dialer struct {
	deps       Deps
	busyWindow time.Duration
	now        func() time.Time
	onChange   func(ports.CallState)

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	lastCall time.Time
	calls    uint64
	idle     *time.Timer
	closed   bool
}

// NewDialer creates a dialer scoped to lifetime. A negative busyWindow selects the default.
// onChange sees busy when a call is placed and idle when its window ends; it may be nil.
func NewDialer(lifetime context.Context, deps Deps, busyWindow time.Duration, onChange func(ports.CallState)) *Dialer {
	if busyWindow < 0 {
		busyWindow = DefaultBusyWindow
	}
	ctx, cancel := context.WithCancel(lifetime)
	return &Dialer{
		deps:       deps,
		busyWindow: busyWindow,
		now:        time.Now,
		onChange:   onChange,
		lifetime:   ctx,
		cancel:     cancel,
	}
}

// Call navigates the page to tel:<number>. It is refused while an earlier call's busy
// window is open. The location read runs beside the call and never delays or blocks it.
func (d *Dialer) Call(ctx context.Context, service, number string) (emergency.Intent, error) {
	return d.place(ctx, service, number, true)
}

// Dispatch places the call even inside the busy window. It is how an expired SOS
// countdown reaches the page after the user already dialled.
func (d *Dialer) Dispatch(ctx context.Context, service, number string) (emergency.Intent, error) {
	return d.place(ctx, service, number, false)
}

func (d *Dialer) place(ctx context.Context, service, number string, honourWindow bool) (emergency.Intent, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return emergency.Intent{}, ErrClosed
	}
	now := d.now()
	if honourWindow && d.busyLocked(now) {
		d.mu.Unlock()
		return emergency.Intent{}, ErrCallInProgress
	}
	intent, err := emergency.NewIntent(service, number, now)
	if err != nil {
		d.mu.Unlock()
		return emergency.Intent{}, err
	}
	d.lastCall = now
	d.calls++
	windowed := d.busyWindow > 0
	if windowed {
		// restart the window; a stale timer sees a newer call count and stays quiet
		if d.idle != nil {
			d.idle.Stop()
		}
		call := d.calls
		d.idle = time.AfterFunc(d.busyWindow, func() { d.windowEnded(call) })
	}
	locate := d.deps.Positioner != nil && d.deps.Positioner.Supported()
	if locate {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if windowed {
		d.changed(ports.CallState{Busy: true})
	}

	if locate {
		go d.shareLocation(context.WithoutCancel(ctx), intent.Service)
	} else {
		d.deps.Logger.Info(ctx, "call_location_unavailable",
			fmt.Sprintf("Emergency call to %s - Location unavailable", intent.Service), nil)
	}

	if err := d.deps.Navigator.Navigate(ctx, intent); err != nil {
		// the HTTP response still carries the href
		d.deps.Logger.Error(ctx, "call_navigate_failed", "Failed to push call intent to page", err, map[string]any{
			"service": intent.Service,
		})
	}

	if err := d.publishCall(ctx, contracts.EmergencyCallMessage{
		Service:  intent.Service,
		Number:   intent.Number,
		Href:     intent.Href,
		PlacedAt: intent.PlacedAt,
		Envelope: contracts.Envelope{
			CorrelationID: generateCorrelationID(),
			Producer:      contracts.ProducerReportService,
			SessionID:     d.deps.SessionID,
			SentAt:        time.Now().UTC(),
		},
	}); err != nil {
		d.deps.Logger.Error(ctx, "call_publish_failed", "Failed to publish emergency call event", err, map[string]any{
			"service": intent.Service,
		})
	}

	d.deps.Logger.Info(ctx, "emergency_call_placed", fmt.Sprintf("Calling %s", intent.Service), map[string]any{
		"service": intent.Service,
		"href":    intent.Href,
	})
	return intent, nil
}

// Busy reports whether call buttons are disabled.
func (d *Dialer) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busyLocked(d.now())
}

// Close stops any background location read and the busy timer.
func (d *Dialer) Close() {
	d.mu.Lock()
	d.closed = true
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

// windowEnded re-enables the call buttons once the window of call number call is over.
func (d *Dialer) windowEnded(call uint64) {
	d.mu.Lock()
	if d.closed || call != d.calls {
		d.mu.Unlock()
		return
	}
	d.idle = nil
	d.mu.Unlock()

	d.deps.Logger.Debug(d.lifetime, "call_window_ended", "Call buttons enabled again", nil)
	d.changed(ports.CallState{Busy: false})
}

func (d *Dialer) changed(st ports.CallState) {
	if d.onChange != nil {
		d.onChange(st)
	}
}

func (d *Dialer) busyLocked(now time.Time) bool {
	return !d.lastCall.IsZero() && now.Sub(d.lastCall) < d.busyWindow
}

// shareLocation reads the position once and reports it for the call.
func (d *Dialer) shareLocation(logCtx context.Context, service string) {
	defer d.wg.Done()

	c, err := d.deps.Positioner.CurrentPosition(d.lifetime, d.deps.Options)
	if d.lifetime.Err() != nil {
		return
	}
	if err != nil {
		d.deps.Logger.Info(logCtx, "call_location_unavailable",
			fmt.Sprintf("Emergency call to %s - Location unavailable", service),
			map[string]any{"reason": err.Error()})
		return
	}

	d.deps.Logger.Info(logCtx, "call_location_shared",
		fmt.Sprintf("Emergency call to %s - Location: %s", service, c.String()),
		map[string]any{"latitude": c.Latitude, "longitude": c.Longitude})
	d.deps.Notifier.Notify(logCtx, notify.CallingWithLocation(service, c))
}
