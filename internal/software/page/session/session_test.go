package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
	emergencysvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/emergency/service"

	"github.com/matryer/is"
)

// fakeChannel records pushed frames and forwards geolocation requests.
type fakeChannel struct {
	mu       sync.Mutex
	frames   []contracts.WSFrame
	requests chan contracts.WSGeolocationRequest
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{requests: make(chan contracts.WSGeolocationRequest, 4)}
}

func (c *fakeChannel) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m := msg.(type) {
	case contracts.WSFrame:
		c.frames = append(c.frames, m)
	case contracts.WSGeolocationRequest:
		c.requests <- m
	case contracts.WSNavigate:
		c.frames = append(c.frames, contracts.WSFrame{Type: m.Type, Data: m.Href})
	}
	return nil
}

func (c *fakeChannel) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Type)
	}
	return out
}

type fakeHub struct {
	mu        sync.Mutex
	channels  map[string]*fakeChannel
	connected map[string]bool
}

func newFakeHub() *fakeHub {
	return &fakeHub{channels: map[string]*fakeChannel{}, connected: map[string]bool{}}
}

func (h *fakeHub) Channel(id string) ports.PageChannel {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := newFakeChannel()
	h.channels[id] = c
	return c
}

func (h *fakeHub) Connected(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected[id]
}

func (h *fakeHub) setConnected(id string, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected[id] = on
}

func (h *fakeHub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connected, id)
}

type countingPositioner struct {
	calls atomic.Int32
}

func (p *countingPositioner) Supported() bool { return true }

func (p *countingPositioner) CurrentPosition(context.Context, ports.PositionOptions) (geo.Coordinates, error) {
	p.calls.Add(1)
	return geo.Coordinates{Latitude: 10, Longitude: 20}, nil
}

func testDeps(p ports.Positioner) Deps {
	return Deps{
		Logger:     logger.Nop(),
		Positioner: p,
		Settings: Settings{
			Position:    ports.PositionOptions{HighAccuracy: true, Timeout: time.Second},
			SubmitDelay: time.Millisecond,
			BusyWindow:  time.Second,
			SOS:         emergencysvc.SOSConfig{Countdown: 5, Tick: time.Hour},
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestToastQueueIsBounded(t *testing.T) {
	is := is.New(t)
	s := New(context.Background(), "s1", newFakeChannel(), testDeps(&countingPositioner{}))
	defer s.Close()

	for i := 0; i < MaxToasts+5; i++ {
		s.Notify(context.Background(), notify.Toast{Title: fmt.Sprintf("t%d", i)})
	}

	toasts := s.DrainToasts()
	is.Equal(len(toasts), MaxToasts)
	is.Equal(toasts[0].Title, "t5")
	is.Equal(len(s.DrainToasts()), 0)
}

func TestFirstHelloAcquiresOnce(t *testing.T) {
	is := is.New(t)
	p := &countingPositioner{}
	ch := newFakeChannel()
	s := New(context.Background(), "s2", ch, testDeps(p))
	defer s.Close()

	hello, _ := json.Marshal(contracts.WSHello{Type: contracts.FrameHello, Geolocation: true})
	is.NoErr(s.HandleFrame(context.Background(), contracts.FrameHello, hello))
	waitFor(t, "location", func() bool { return s.Tracker.Current() != nil })

	is.NoErr(s.HandleFrame(context.Background(), contracts.FrameHello, hello))
	is.Equal(p.calls.Load(), int32(1))

	st := s.Snapshot(true)
	is.Equal(*st.Location.Location, geo.Coordinates{Latitude: 10, Longitude: 20})
	is.Equal(st.Toasts[0].Title, "Location captured")
}

func TestBrowserBridgeRoundTrip(t *testing.T) {
	is := is.New(t)
	ch := newFakeChannel()
	s := New(context.Background(), "s3", ch, testDeps(nil))
	defer s.Close()

	hello, _ := json.Marshal(contracts.WSHello{Type: contracts.FrameHello, Geolocation: true})
	is.NoErr(s.HandleFrame(context.Background(), contracts.FrameHello, hello))

	var req contracts.WSGeolocationRequest
	select {
	case req = <-ch.requests:
	case <-time.After(2 * time.Second):
		t.Fatal("no geolocation request was sent")
	}
	is.True(req.HighAccuracy)

	lat, lng := 51.5, -0.12
	answer, _ := json.Marshal(contracts.WSGeolocationResult{
		Type:      contracts.FrameGeolocationResult,
		RequestID: req.RequestID,
		Latitude:  &lat,
		Longitude: &lng,
	})
	is.NoErr(s.HandleFrame(context.Background(), contracts.FrameGeolocationResult, answer))

	waitFor(t, "location", func() bool { return s.Tracker.Current() != nil })
	is.Equal(*s.Tracker.Current(), geo.Coordinates{Latitude: 51.5, Longitude: -0.12})
}

func TestHelloWithoutGeolocation(t *testing.T) {
	is := is.New(t)
	ch := newFakeChannel()
	s := New(context.Background(), "s4", ch, testDeps(nil))
	defer s.Close()

	s.Mount(context.Background(), contracts.WSHello{Geolocation: false})
	waitFor(t, "unsupported state", func() bool { return s.Tracker.Snapshot().Error != "" })

	is.Equal(s.Tracker.Snapshot().Error, geo.MsgNotSupported)
	is.Equal(len(ch.requests), 0)
}

func TestUnknownFrame(t *testing.T) {
	is := is.New(t)
	s := New(context.Background(), "s5", newFakeChannel(), testDeps(&countingPositioner{}))
	defer s.Close()

	err := s.HandleFrame(context.Background(), "dance", []byte(`{"type":"dance"}`))
	is.True(errors.Is(err, ErrUnknownFrameType))
}

func TestResolveWithoutBridge(t *testing.T) {
	is := is.New(t)
	s := New(context.Background(), "s6", newFakeChannel(), testDeps(&countingPositioner{}))
	defer s.Close()

	is.True(errors.Is(s.ResolveGeolocation(contracts.WSGeolocationResult{}), ErrNoBridge))
}

func TestCallByServiceKey(t *testing.T) {
	is := is.New(t)
	ch := newFakeChannel()
	s := New(context.Background(), "s7", ch, testDeps(&countingPositioner{}))
	defer s.Close()

	intent, err := s.Call(context.Background(), "medical")
	is.NoErr(err)
	is.Equal(intent.Href, "tel:911")
	is.Equal(intent.Service, "Medical Emergency")
	is.True(s.Snapshot(false).CallBusy)

	_, err = s.Call(context.Background(), "plumber")
	is.True(errors.Is(err, emergency.ErrUnknownService))
}

func TestCallPushesBusyFrame(t *testing.T) {
	is := is.New(t)
	ch := newFakeChannel()
	deps := testDeps(&countingPositioner{})
	deps.Settings.BusyWindow = 20 * time.Millisecond
	s := New(context.Background(), "s10", ch, deps)
	defer s.Close()

	_, err := s.Call(context.Background(), "police")
	is.NoErr(err)

	callStates := func() []ports.CallState {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		var out []ports.CallState
		for _, f := range ch.frames {
			if f.Type == contracts.FrameCall {
				out = append(out, f.Data.(ports.CallState))
			}
		}
		return out
	}
	waitFor(t, "idle frame", func() bool { return len(callStates()) == 2 })
	is.Equal(callStates(), []ports.CallState{{Busy: true}, {Busy: false}})
	is.True(!s.Snapshot(false).CallBusy)
}

func TestCallRefusedDuringSOS(t *testing.T) {
	is := is.New(t)
	s := New(context.Background(), "s11", newFakeChannel(), testDeps(&countingPositioner{}))
	defer s.Close()

	_, err := s.SOS.Start(context.Background())
	is.NoErr(err)

	_, err = s.Call(context.Background(), "fire")
	is.True(errors.Is(err, emergencysvc.ErrSOSActive))
	is.True(!s.Snapshot(false).CallBusy)

	_, err = s.SOS.Cancel(context.Background())
	is.NoErr(err)
	_, err = s.Call(context.Background(), "fire")
	is.NoErr(err)

	// and the countdown waits for the call window
	_, err = s.SOS.Start(context.Background())
	is.True(errors.Is(err, emergencysvc.ErrCallInProgress))
}

func TestCloseStopsEverything(t *testing.T) {
	is := is.New(t)
	s := New(context.Background(), "s8", newFakeChannel(), testDeps(&countingPositioner{}))

	_, err := s.SOS.Start(context.Background())
	is.NoErr(err)
	s.Close()
	s.Close()

	is.Equal(s.SOS.Snapshot().Status, emergency.SOSIdle)
	_, err = s.Form.Submit(context.Background())
	is.True(err != nil)

	s.Notify(context.Background(), notify.SOSCancelled())
	is.Equal(len(s.DrainToasts()), 1) // only the activation toast
}

func TestParentCancelClosesSession(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, "s9", newFakeChannel(), testDeps(&countingPositioner{}))

	cancel()
	waitFor(t, "teardown", func() bool { return s.Context().Err() != nil })
	is.True(errors.Is(s.Context().Err(), context.Canceled))
}
