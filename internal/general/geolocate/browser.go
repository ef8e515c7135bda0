package geolocate

import (
	"context"
	"errors"
	"sync"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"

	"github.com/google/uuid"
)

var ErrUnknownRequest = errors.New("geolocate: no pending request with that id")

type answer struct {
	coords geo.Coordinates
	err    error
}

// BrowserPositioner asks the page's navigator.geolocation for a fix over the live channel.
// Answers come back through Resolve.
type BrowserPositioner struct {
	ch ports.PageChannel

	mu        sync.Mutex
	supported bool
	pending   map[string]chan answer
}

// NewBrowserPositioner assumes the page supports geolocation until it says otherwise.
func NewBrowserPositioner(ch ports.PageChannel) *BrowserPositioner {
	return &BrowserPositioner{
		ch:        ch,
		supported: true,
		pending:   make(map[string]chan answer),
	}
}

// SetSupported records what the page reported in its hello frame.
func (b *BrowserPositioner) SetSupported(v bool) {
	b.mu.Lock()
	b.supported = v
	b.mu.Unlock()
}

func (b *BrowserPositioner) Supported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supported
}

// CurrentPosition sends a geolocation request to the page and waits for its answer.
func (b *BrowserPositioner) CurrentPosition(ctx context.Context, opts ports.PositionOptions) (geo.Coordinates, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	id := uuid.NewString()
	wait := make(chan answer, 1)

	b.mu.Lock()
	b.pending[id] = wait
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	err := b.ch.Send(contracts.WSGeolocationRequest{
		Type:         contracts.FrameGeolocationRequest,
		RequestID:    id,
		HighAccuracy: opts.HighAccuracy,
		TimeoutMS:    opts.Timeout.Milliseconds(),
		MaximumAgeMS: opts.MaximumAge.Milliseconds(),
	})
	if err != nil {
		return geo.Coordinates{}, geo.NewPositionError(geo.CodePositionUnavailable, err)
	}

	select {
	case a := <-wait:
		return a.coords, a.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return geo.Coordinates{}, geo.NewPositionError(geo.CodeTimeout, ctx.Err())
		}
		return geo.Coordinates{}, geo.NewPositionError(geo.CodeUnknown, ctx.Err())
	}
}

// Resolve delivers the page's answer to the waiting request.
func (b *BrowserPositioner) Resolve(res contracts.WSGeolocationResult) error {
	b.mu.Lock()
	wait, ok := b.pending[res.RequestID]
	b.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}

	var a answer
	switch {
	case res.ErrorCode != "":
		a.err = geo.NewPositionError(geo.ParseErrorCode(res.ErrorCode), nil)
	case res.Latitude == nil || res.Longitude == nil:
		a.err = geo.NewPositionError(geo.CodePositionUnavailable, errors.New("answer carries no coordinates"))
	default:
		c, err := geo.NewCoordinates(*res.Latitude, *res.Longitude)
		if err != nil {
			a.err = geo.NewPositionError(geo.CodeUnknown, err)
		} else {
			a.coords = c
		}
	}

	// a duplicate answer is dropped
	select {
	case wait <- a:
	default:
	}
	return nil
}
