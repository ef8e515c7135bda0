package service

import (
	"context"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

const (
	DefaultCountdown = 5
	DefaultTick      = time.Second
)

// SOSConfig tunes the countdown.
type SOSConfig struct {
	Number    string        // dialled on expiry
	Countdown int           // ticks before the call
	Tick      time.Duration // tick interval
}

// SOS runs the countdown-before-call interaction: Idle -> Counting(n..1) -> Dispatching -> Idle,
// or Counting -> Cancelled -> Idle. A run generation guards every tick so a cancelled
// or replaced run can never dispatch.
type SOS struct {
	deps     Deps
	dialer   ports.Dialer
	cfg      SOSConfig
	onChange func(ports.SOSState)

	lifetime context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	status    emergency.SOSStatus
	remaining int
	run       uint64
	closed    bool
}

// NewSOS creates an idle countdown. onChange may be nil.
func NewSOS(lifetime context.Context, deps Deps, dialer ports.Dialer, cfg SOSConfig, onChange func(ports.SOSState)) *SOS {
	if cfg.Number == "" {
		cfg.Number = emergency.DefaultNumber
	}
	if cfg.Countdown <= 0 {
		cfg.Countdown = DefaultCountdown
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	ctx, cancel := context.WithCancel(lifetime)
	return &SOS{
		deps:     deps,
		dialer:   dialer,
		cfg:      cfg,
		onChange: onChange,
		lifetime: ctx,
		cancel:   cancel,
		status:   emergency.SOSIdle,
	}
}

// Start begins a countdown from Idle. It is refused while a direct call is in progress.
func (s *SOS) Start(ctx context.Context) (ports.SOSState, error) {
	// checked before s.mu so the dialer lock is never taken inside it
	busy := s.dialer.Busy()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ports.SOSState{}, ErrClosed
	}
	if busy {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, ErrCallInProgress
	}
	if !s.transitionLocked(emergency.SOSCounting) {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, ErrSOSActive
	}
	s.run++
	run := s.run
	s.remaining = s.cfg.Countdown
	st := s.snapshotLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.deps.Logger.Info(ctx, "sos_started", "SOS countdown started", map[string]any{"seconds": s.cfg.Countdown})
	s.deps.Notifier.Notify(ctx, notify.SOSActivated(s.cfg.Number, s.cfg.Countdown))
	s.report(ctx, st)

	go s.loop(context.WithoutCancel(ctx), run)
	return st, nil
}

// Cancel aborts a running countdown. The call is never placed.
func (s *SOS) Cancel(ctx context.Context) (ports.SOSState, error) {
	s.mu.Lock()
	if s.status != emergency.SOSCounting {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, ErrNoCountdown
	}
	s.run++
	s.transitionLocked(emergency.SOSCancelled)
	cancelled := s.snapshotLocked()
	s.transitionLocked(emergency.SOSIdle)
	s.remaining = 0
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.deps.Logger.Info(ctx, "sos_cancelled", "SOS countdown cancelled", map[string]any{"remaining": cancelled.Remaining})
	s.deps.Notifier.Notify(ctx, notify.SOSCancelled())
	s.publish(ctx, cancelled)
	s.report(ctx, st)
	return st, nil
}

// Snapshot returns the current countdown state.
func (s *SOS) Snapshot() ports.SOSState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops any countdown without calling.
func (s *SOS) Close() {
	s.mu.Lock()
	s.closed = true
	s.run++
	s.status = emergency.SOSIdle
	s.remaining = 0
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// loop ticks strictly one after another until the countdown expires or the run is superseded.
func (s *SOS) loop(ctx context.Context, run uint64) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.lifetime.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.run != run || s.status != emergency.SOSCounting {
			s.mu.Unlock()
			return
		}
		s.remaining--
		if s.remaining > 0 {
			st := s.snapshotLocked()
			s.mu.Unlock()
			s.report(ctx, st)
			continue
		}

		ticker.Stop()
		s.transitionLocked(emergency.SOSDispatching)
		st := s.snapshotLocked()
		s.mu.Unlock()
		s.report(ctx, st)

		s.dispatch(ctx, run)
		return
	}
}

// dispatch places the SOS call once and returns to Idle. The dialer's busy window
// does not apply to it.
func (s *SOS) dispatch(ctx context.Context, run uint64) {
	if _, err := s.dialer.Dispatch(ctx, emergency.SOSServiceLabel, s.cfg.Number); err != nil {
		s.deps.Logger.Error(ctx, "sos_call_failed", "SOS call could not be placed", err, nil)
	} else {
		s.deps.Logger.Info(ctx, "sos_dispatched", "SOS countdown expired, call placed", map[string]any{"number": s.cfg.Number})
	}

	s.mu.Lock()
	if s.run != run || s.status != emergency.SOSDispatching {
		s.mu.Unlock()
		return
	}
	s.transitionLocked(emergency.SOSIdle)
	st := s.snapshotLocked()
	s.mu.Unlock()
	s.report(ctx, st)
}

// transitionLocked moves to next when the state machine allows it.
func (s *SOS) transitionLocked(next emergency.SOSStatus) bool {
	if !s.status.CanTransitionTo(next) {
		return false
	}
	s.status = next
	return true
}

func (s *SOS) snapshotLocked() ports.SOSState {
	return ports.SOSState{Status: s.status, Remaining: s.remaining}
}

// report pushes the state to the page and publishes status changes.
func (s *SOS) report(ctx context.Context, st ports.SOSState) {
	if s.onChange != nil {
		s.onChange(st)
	}
	// ticks are not events
	if st.Status == emergency.SOSCounting && st.Remaining != s.cfg.Countdown {
		return
	}
	s.publish(ctx, st)
}

func (s *SOS) publish(ctx context.Context, st ports.SOSState) {
	err := publishSOSStatus(ctx, s.deps, contracts.SOSStatusMessage{
		Status:    st.Status.String(),
		Remaining: st.Remaining,
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: generateCorrelationID(),
			Producer:      contracts.ProducerReportService,
			SessionID:     s.deps.SessionID,
			SentAt:        time.Now().UTC(),
		},
	})
	if err != nil {
		s.deps.Logger.Error(ctx, "sos_status_publish_failed", "Failed to publish SOS status", err, map[string]any{
			"status": st.Status.String(),
		})
	}
}
