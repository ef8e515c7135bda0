package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/geolocate"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/websocket"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
	emergencysvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/emergency/service"
	locationsvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/location/service"
	reportsvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/report/service"
)

// MaxToasts bounds the per-page toast queue. The oldest toast is dropped first.
const MaxToasts = 20

var (
	ErrNoBridge         = errors.New("page does not use the browser geolocation bridge")
	ErrUnknownFrameType = errors.New("unknown frame type")
)

// Settings tune the components of every page.
type Settings struct {
	Position    ports.PositionOptions
	SubmitDelay time.Duration
	BusyWindow  time.Duration
	SOS         emergencysvc.SOSConfig
}

// Deps are shared by all pages.
// A nil Positioner selects the per-page browser bridge; a nil Publisher disables the event feed.
type Deps struct {
	Logger     *logger.Logger
	Positioner ports.Positioner
	Publisher  ports.Publisher
	Sinks      []ports.ReportSink
	Settings   Settings
}

// State is the full page snapshot.
type State struct {
	SessionID string              `json:"session_id"`
	Location  ports.LocationState `json:"location"`
	Form      ports.FormState     `json:"form"`
	SOS       ports.SOSState      `json:"sos"`
	CallBusy  bool                `json:"call_busy"`
	Toasts    []notify.Toast      `json:"toasts"`
}

// Session is the context object of one page load. It owns the toast queue, the page position,
// the report form and the emergency flows; Close tears all of them down.
type Session struct {
	ID    string
	Owner string // browser ID from the session cookie

	logger   *logger.Logger
	channel  ports.PageChannel
	lifetime context.Context
	cancel   context.CancelFunc
	bridge   *geolocate.BrowserPositioner

	Tracker *locationsvc.Tracker
	Form    *reportsvc.Form
	Dialer  *emergencysvc.Dialer
	SOS     *emergencysvc.SOS

	closeOnce sync.Once
	wg        sync.WaitGroup

	mu       sync.Mutex
	toasts   []notify.Toast
	lastSeen time.Time
	mounted  bool
	closed   bool
}

// New wires a page session. ctx bounds its lifetime.
func New(ctx context.Context, id string, channel ports.PageChannel, deps Deps) *Session {
	lifetime, cancel := context.WithCancel(deps.Logger.WithSessionID(context.WithoutCancel(ctx), id))
	s := &Session{
		ID:       id,
		logger:   deps.Logger,
		channel:  channel,
		lifetime: lifetime,
		cancel:   cancel,
		lastSeen: time.Now(),
	}
	positioner := deps.Positioner
	if positioner == nil {
		s.bridge = geolocate.NewBrowserPositioner(channel)
		positioner = s.bridge
	}

	sinks := append([]ports.ReportSink(nil), deps.Sinks...)
	if deps.Publisher != nil {
		sinks = append(sinks, reportsvc.NewFeedSink(deps.Logger, deps.Publisher, id))
	}

	s.Tracker = locationsvc.NewTracker(lifetime, deps.Logger, positioner, s, deps.Settings.Position,
		func(st ports.LocationState) { s.push(contracts.FrameLocation, st) })

	s.Form = reportsvc.NewForm(lifetime, deps.Logger, s, s.Tracker.Current, deps.Settings.SubmitDelay,
		func(st ports.FormState) { s.push(contracts.FrameForm, st) }, sinks...)

	emDeps := emergencysvc.Deps{
		Logger:     deps.Logger,
		Positioner: positioner,
		Options:    deps.Settings.Position,
		Notifier:   s,
		Navigator:  websocket.NewNavigator(channel),
		Publisher:  deps.Publisher,
		SessionID:  id,
	}
	s.Dialer = emergencysvc.NewDialer(lifetime, emDeps, deps.Settings.BusyWindow,
		func(st ports.CallState) { s.push(contracts.FrameCall, st) })
	s.SOS = emergencysvc.NewSOS(lifetime, emDeps, s.Dialer, deps.Settings.SOS,
		func(st ports.SOSState) { s.push(contracts.FrameSOS, st) })

	context.AfterFunc(ctx, s.Close)
	return s
}

// Context returns the session lifetime context, carrying the session ID for logs.
func (s *Session) Context() context.Context {
	return s.lifetime
}

// Notify queues a toast and pushes it to the live page. Implements ports.Notifier.
func (s *Session) Notify(ctx context.Context, t notify.Toast) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.toasts = append(s.toasts, t)
	if over := len(s.toasts) - MaxToasts; over > 0 {
		s.toasts = append([]notify.Toast(nil), s.toasts[over:]...)
	}
	s.mu.Unlock()

	s.logger.Debug(ctx, "toast_queued", t.Title, map[string]any{"variant": string(t.Variant)})
	s.push(contracts.FrameToast, t)
}

// DrainToasts returns and clears the queued toasts.
func (s *Session) DrainToasts() []notify.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.toasts
	s.toasts = nil
	if out == nil {
		out = []notify.Toast{}
	}
	return out
}

// Snapshot returns the full page state. drain also empties the toast queue.
func (s *Session) Snapshot(drain bool) State {
	st := State{
		SessionID: s.ID,
		Location:  s.Tracker.Snapshot(),
		Form:      s.Form.Snapshot(),
		SOS:       s.SOS.Snapshot(),
		CallBusy:  s.Dialer.Busy(),
	}
	if drain {
		st.Toasts = s.DrainToasts()
	} else {
		s.mu.Lock()
		st.Toasts = append([]notify.Toast{}, s.toasts...)
		s.mu.Unlock()
	}
	return st
}

// Mount handles the page's hello. The first one triggers the initial location request.
func (s *Session) Mount(ctx context.Context, hello contracts.WSHello) {
	if s.bridge != nil {
		s.bridge.SetSupported(hello.Geolocation)
	}

	s.mu.Lock()
	first := !s.mounted && !s.closed
	s.mounted = true
	s.mu.Unlock()

	s.logger.Info(ctx, "page_mounted", "Page mounted", map[string]any{
		"geolocation": hello.Geolocation,
		"first":       first,
	})
	if first {
		s.RequestLocation()
	} else {
		s.push(contracts.FrameLocation, s.Tracker.Snapshot())
	}
}

// RequestLocation starts a location request in the background.
func (s *Session) RequestLocation() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Tracker.Acquire(s.lifetime)
	}()
}

// ResolveGeolocation hands a browser answer to the waiting request.
func (s *Session) ResolveGeolocation(res contracts.WSGeolocationResult) error {
	if s.bridge == nil {
		return ErrNoBridge
	}
	return s.bridge.Resolve(res)
}

// HandleFrame routes one frame sent by the page over its live channel.
func (s *Session) HandleFrame(ctx context.Context, msgType string, payload []byte) error {
	s.Touch()

	switch msgType {
	case contracts.FrameHello:
		var hello contracts.WSHello
		if err := json.Unmarshal(payload, &hello); err != nil {
			return fmt.Errorf("bad hello: %w", err)
		}
		s.Mount(ctx, hello)
		return nil

	case contracts.FrameGeolocationResult:
		var res contracts.WSGeolocationResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return fmt.Errorf("bad geolocation result: %w", err)
		}
		return s.ResolveGeolocation(res)

	case contracts.FrameRefreshLocation:
		s.RequestLocation()
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrameType, msgType)
	}
}

// Call places a direct call to one of the listed services.
func (s *Session) Call(ctx context.Context, key string) (emergency.Intent, error) {
	entry, err := emergency.Lookup(key)
	if err != nil {
		return emergency.Intent{}, err
	}
	// the countdown owns the line until it settles
	if s.SOS.Snapshot().Status.Active() {
		return emergency.Intent{}, emergencysvc.ErrSOSActive
	}
	return s.Dialer.Call(ctx, entry.CallLabel, entry.Number)
}

// Touch records page activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last page activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close tears the page down. No background work survives it.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.SOS.Close()
		s.Dialer.Close()
		s.Form.Close()
		s.Tracker.Close()
		s.cancel()
		s.wg.Wait()

		s.logger.Info(s.lifetime, "page_session_closed", "Page session closed", nil)
	})
}

// push sends a frame to the live page. A page without a socket catches up through /api/state.
func (s *Session) push(frameType string, data any) {
	if s.channel == nil {
		return
	}
	if err := s.channel.Send(contracts.WSFrame{Type: frameType, Data: data}); err != nil && !errors.Is(err, websocket.ErrNotConnected) {
		s.logger.Error(s.lifetime, "page_push_failed", "Failed to push frame to page", err, map[string]any{"type": frameType})
	}
}
