package service

import (
	"context"
	"errors"
	"sync"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

// Tracker owns the page-level position. Each Acquire is a one-shot query; a newer
// query supersedes an older one and nothing is applied after Close.
type Tracker struct {
	logger     *logger.Logger
	positioner ports.Positioner
	notifier   ports.Notifier
	opts       ports.PositionOptions
	onChange   func(ports.LocationState)

	lifetime context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
	closed   bool
	location *geo.Coordinates
	errMsg   string
	loading  bool
}

// NewTracker creates a tracker scoped to lifetime. onChange may be nil.
func NewTracker(
	lifetime context.Context,
	logger *logger.Logger,
	positioner ports.Positioner,
	notifier ports.Notifier,
	opts ports.PositionOptions,
	onChange func(ports.LocationState),
) *Tracker {
	ctx, cancel := context.WithCancel(lifetime)
	return &Tracker{
		logger:     logger,
		positioner: positioner,
		notifier:   notifier,
		opts:       opts,
		onChange:   onChange,
		lifetime:   ctx,
		cancel:     cancel,
	}
}

// Acquire runs one positioning query and blocks until it settles.
// Cancelling ctx abandons the query without a toast.
func (t *Tracker) Acquire(ctx context.Context) ports.LocationState {
	t.mu.Lock()
	if t.closed {
		st := t.snapshotLocked()
		t.mu.Unlock()
		return st
	}

	if t.positioner == nil || !t.positioner.Supported() {
		// a query started while positioning was available must not land afterwards
		if t.inflight != nil {
			t.inflight()
			t.inflight = nil
		}
		t.seq++
		t.errMsg = geo.MsgNotSupported
		t.loading = false
		st := t.snapshotLocked()
		t.mu.Unlock()

		t.logger.Info(ctx, "location_not_supported", "Positioning is not available for this page", nil)
		t.changed(st)
		return st
	}

	if t.inflight != nil {
		t.inflight()
	}
	t.seq++
	seq := t.seq
	reqCtx, cancel := context.WithCancel(t.lifetime)
	t.inflight = cancel
	t.loading = true
	st := t.snapshotLocked()
	t.mu.Unlock()

	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	t.changed(st)

	coords, err := t.positioner.CurrentPosition(reqCtx, t.opts)

	t.mu.Lock()
	if t.closed || seq != t.seq {
		st := t.snapshotLocked()
		t.mu.Unlock()
		t.logger.Debug(ctx, "location_result_discarded", "Discarded a superseded positioning result", map[string]any{"seq": seq})
		return st
	}
	t.inflight = nil
	t.loading = false

	if err != nil && errors.Is(reqCtx.Err(), context.Canceled) {
		st := t.snapshotLocked()
		t.mu.Unlock()
		t.logger.Info(ctx, "location_request_abandoned", "Positioning request abandoned by caller", nil)
		t.changed(st)
		return st
	}

	if err != nil {
		// the previous fix is kept
		t.errMsg = geo.MessageFor(err)
	} else {
		c := coords
		t.location = &c
		t.errMsg = ""
	}
	st = t.snapshotLocked()
	t.mu.Unlock()

	if err != nil {
		t.logger.Error(ctx, "location_request_failed", "Positioning request failed", err, map[string]any{
			"code": geo.CodeOf(err).String(),
		})
		t.notifier.Notify(ctx, notify.LocationError(st.Error))
	} else {
		t.logger.Info(ctx, "location_captured", "Location captured", map[string]any{
			"latitude":  coords.Latitude,
			"longitude": coords.Longitude,
		})
		t.notifier.Notify(ctx, notify.LocationCaptured())
	}
	t.changed(st)

	return st
}

// Snapshot returns the current location state.
func (t *Tracker) Snapshot() ports.LocationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Current returns a copy of the last captured coordinates, or nil.
func (t *Tracker) Current() *geo.Coordinates {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.location == nil {
		return nil
	}
	c := *t.location
	return &c
}

// Close abandons any in-flight query. Later results are discarded.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.seq++
	t.loading = false
	t.inflight = nil
	t.mu.Unlock()
	t.cancel()
}

func (t *Tracker) snapshotLocked() ports.LocationState {
	st := ports.LocationState{
		Error:     t.errMsg,
		Loading:   t.loading,
		Supported: t.positioner != nil && t.positioner.Supported(),
	}
	if t.location != nil {
		c := *t.location
		st.Location = &c
	}
	return st
}

func (t *Tracker) changed(st ports.LocationState) {
	if t.onChange != nil {
		t.onChange(st)
	}
}
