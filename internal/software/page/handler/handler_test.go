package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/jwt"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/websocket"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
	emergencysvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/emergency/service"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/session"

	gws "github.com/gorilla/websocket"
	"github.com/matryer/is"
)

// fixedPositioner answers every query with the same fix and counts them.
type fixedPositioner struct {
	calls atomic.Int32
}

func (*fixedPositioner) Supported() bool { return true }

func (p *fixedPositioner) CurrentPosition(context.Context, ports.PositionOptions) (geo.Coordinates, error) {
	p.calls.Add(1)
	return geo.Coordinates{Latitude: 40.7128, Longitude: -74.006}, nil
}

// testPage is one browser: a cookie jar plus the page it currently has open.
type testPage struct {
	server     *httptest.Server
	client     *http.Client
	registry   *session.Registry
	positioner *fixedPositioner
	pageID     string
}

func newTestPage(t *testing.T) *testPage {
	t.Helper()

	log := logger.Nop()
	hub := websocket.NewHub(log)
	positioner := &fixedPositioner{}
	registry := session.NewRegistry(context.Background(), log, hub, session.Deps{
		Logger:     log,
		Positioner: positioner,
		Settings: session.Settings{
			Position:    ports.PositionOptions{Timeout: time.Second},
			SubmitDelay: 10 * time.Millisecond,
			BusyWindow:  time.Minute,
			SOS:         emergencysvc.SOSConfig{Countdown: 5, Tick: time.Hour},
		},
	}, time.Minute)

	h := NewPageHTTPHandler(registry, log, jwt.NewManager("test-secret", time.Hour), hub, 1<<20, time.Second)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	jar, _ := cookiejar.New(nil)

	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		registry.Close()
	})

	p := &testPage{server: srv, client: &http.Client{Jar: jar}, registry: registry, positioner: positioner}
	p.open(t)
	return p
}

// browser returns another browser on the same server, with its own cookie and page.
func (p *testPage) browser(t *testing.T) *testPage {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	other := &testPage{server: p.server, client: &http.Client{Jar: jar}, registry: p.registry, positioner: p.positioner}
	other.open(t)
	return other
}

// open loads the page like a browser navigation and switches to the new page.
func (p *testPage) open(t *testing.T) (*http.Response, []byte) {
	t.Helper()
	p.pageID = ""
	res, body := p.do(t, http.MethodGet, "/", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("open page: %d %s", res.StatusCode, body)
	}
	p.pageID = res.Header.Get(PageIDHeader)
	if p.pageID == "" {
		t.Fatal("page id header missing")
	}
	return res, body
}

func (p *testPage) state(t *testing.T) session.State {
	t.Helper()
	res, body := p.do(t, http.MethodGet, "/api/state", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("state: %d %s", res.StatusCode, body)
	}
	var st session.State
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	return st
}

// dialWS opens the live channel of the current page.
func (p *testPage) dialWS(t *testing.T) *gws.Conn {
	t.Helper()
	u, _ := url.Parse(p.server.URL)

	header := http.Header{}
	for _, c := range p.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	wsURL := "ws" + strings.TrimPrefix(p.server.URL, "http") + "/ws?page=" + url.QueryEscape(p.pageID)
	conn, _, err := gws.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitLocation reads frames until a settled location state arrives.
func waitLocation(t *testing.T, conn *gws.Conn) ports.LocationState {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type != contracts.FrameLocation {
			continue
		}
		var st ports.LocationState
		if err := json.Unmarshal(frame.Data, &st); err != nil {
			t.Fatal(err)
		}
		if !st.Loading && st.Location != nil {
			return st
		}
	}
}

func (p *testPage) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, p.server.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.pageID != "" {
		req.Header.Set(PageIDHeader, p.pageID)
	}

	res, err := p.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	out, _ := io.ReadAll(res.Body)
	return res, out
}

func TestPageRendersAndOpensSession(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.open(t)
	is.True(strings.HasPrefix(res.Header.Get("Content-Type"), "text/html"))
	is.True(strings.Contains(string(body), "Report a Road Accident"))
	is.True(strings.Contains(string(body), "Police Emergency"))
	is.True(strings.Contains(string(body), `data-page-id="`+p.pageID+`"`))

	u, _ := url.Parse(p.server.URL)
	is.Equal(len(p.client.Jar.Cookies(u)), 1)

	// every load is its own page, the browser cookie stays
	first := p.pageID
	p.open(t)
	is.True(p.pageID != first)
	is.Equal(p.registry.Count(), 3)
	is.Equal(len(p.client.Jar.Cookies(u)), 1)
}

func TestReloadStartsFreshPage(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, _ := p.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "description", Value: "two cars"})
	is.Equal(res.StatusCode, http.StatusOK)
	first := p.pageID

	p.open(t)
	is.True(p.pageID != first)
	st := p.state(t)
	is.Equal(st.SessionID, p.pageID)
	is.Equal(st.Form.Draft.Description, "")
	is.Equal(st.SOS.Status, emergency.SOSIdle)

	// the reloaded page asks for a position once
	before := p.positioner.calls.Load()
	conn := p.dialWS(t)
	is.NoErr(conn.WriteJSON(contracts.WSHello{Type: contracts.FrameHello, Geolocation: true}))
	loc := waitLocation(t, conn)
	is.Equal(loc.Location.Latitude, 40.7128)
	is.Equal(p.positioner.calls.Load(), before+1)

	// the earlier page kept its own draft
	p.pageID = first
	is.Equal(p.state(t).Form.Draft.Description, "two cars")
}

func TestPageIDIsChecked(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)
	own := p.pageID

	p.pageID = ""
	res, _ := p.do(t, http.MethodGet, "/api/state", nil)
	is.Equal(res.StatusCode, http.StatusBadRequest)

	p.pageID = "no-such-page"
	res, _ = p.do(t, http.MethodGet, "/api/state", nil)
	is.Equal(res.StatusCode, http.StatusGone)

	// another browser cannot drive this page
	other := p.browser(t)
	other.pageID = own
	res, _ = other.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "description", Value: "x"})
	is.Equal(res.StatusCode, http.StatusGone)

	p.pageID = own
	is.Equal(p.state(t).Form.Draft.Description, "")
}

func TestSetFieldShowsPatientSection(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "severity", Value: "critical"})
	is.Equal(res.StatusCode, http.StatusOK)

	var st ports.FormState
	is.NoErr(json.Unmarshal(body, &st))
	is.Equal(string(st.Draft.Severity), "critical")
	is.True(st.VisibleFields.Has("patientName"))
}

func TestSetFieldRejectsBadInput(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, _ := p.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "colour", Value: "red"})
	is.Equal(res.StatusCode, http.StatusBadRequest)

	res, _ = p.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "patientAge", Value: "abc"})
	is.Equal(res.StatusCode, http.StatusBadRequest)

	req, _ := http.NewRequest(http.MethodPatch, p.server.URL+"/api/report/draft", strings.NewReader("field=severity"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := p.client.Do(req)
	is.NoErr(err)
	raw.Body.Close()
	is.Equal(raw.StatusCode, http.StatusUnsupportedMediaType)
}

func TestAttachImagesKeepsMetadata(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"front.jpg", "side.jpg"} {
		fw, err := mw.CreateFormFile("images", name)
		is.NoErr(err)
		_, _ = fw.Write([]byte("0123456789"))
	}
	is.NoErr(mw.Close())

	req, _ := http.NewRequest(http.MethodPost, p.server.URL+"/api/report/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := p.client.Do(req)
	is.NoErr(err)
	defer res.Body.Close()
	is.Equal(res.StatusCode, http.StatusOK)

	var st ports.FormState
	is.NoErr(json.NewDecoder(res.Body).Decode(&st))
	is.Equal(len(st.Images), 2)
	is.Equal(st.Images[0].Name, "front.jpg")
	is.Equal(st.Images[1].Size, int64(10))
}

func TestSubmitReturnsReceiptAndResetsForm(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	p.do(t, http.MethodPatch, "/api/report/draft", setFieldRequest{Field: "description", Value: "two cars"})

	res, body := p.do(t, http.MethodPost, "/api/report/submit", nil)
	is.Equal(res.StatusCode, http.StatusOK)

	var receipt ports.SubmitReceipt
	is.NoErr(json.Unmarshal(body, &receipt))
	is.True(receipt.ReportNumber != "")

	st := p.state(t)
	is.Equal(st.Form.Draft.Description, "")
	is.True(!st.Form.Submitting)
}

func TestCallReturnsTelIntent(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.do(t, http.MethodPost, "/api/emergency/calls", callRequest{Service: "police"})
	is.Equal(res.StatusCode, http.StatusOK)

	var intent emergency.Intent
	is.NoErr(json.Unmarshal(body, &intent))
	is.Equal(intent.Href, "tel:911")
	is.Equal(intent.Service, "Police")

	// busy window
	is.True(p.state(t).CallBusy)
	res, _ = p.do(t, http.MethodPost, "/api/emergency/calls", callRequest{Service: "fire"})
	is.Equal(res.StatusCode, http.StatusConflict)
	res, _ = p.do(t, http.MethodPost, "/api/emergency/sos", nil)
	is.Equal(res.StatusCode, http.StatusConflict)

	res, _ = p.do(t, http.MethodPost, "/api/emergency/calls", callRequest{Service: "coastguard"})
	is.Equal(res.StatusCode, http.StatusBadRequest)
}

func TestSOSStartAndCancel(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.do(t, http.MethodPost, "/api/emergency/sos", nil)
	is.Equal(res.StatusCode, http.StatusAccepted)

	var st ports.SOSState
	is.NoErr(json.Unmarshal(body, &st))
	is.Equal(st.Status, emergency.SOSCounting)
	is.Equal(st.Remaining, 5)

	res, _ = p.do(t, http.MethodPost, "/api/emergency/sos", nil)
	is.Equal(res.StatusCode, http.StatusConflict)

	// the countdown owns the line
	res, _ = p.do(t, http.MethodPost, "/api/emergency/calls", callRequest{Service: "police"})
	is.Equal(res.StatusCode, http.StatusConflict)
	is.True(!p.state(t).CallBusy)

	res, body = p.do(t, http.MethodDelete, "/api/emergency/sos", nil)
	is.Equal(res.StatusCode, http.StatusOK)
	is.NoErr(json.Unmarshal(body, &st))
	is.Equal(st.Status, emergency.SOSIdle)

	res, _ = p.do(t, http.MethodDelete, "/api/emergency/sos", nil)
	is.Equal(res.StatusCode, http.StatusConflict)
}

func TestRefreshLocation(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.do(t, http.MethodPost, "/api/location/refresh", nil)
	is.Equal(res.StatusCode, http.StatusOK)

	var st ports.LocationState
	is.NoErr(json.Unmarshal(body, &st))
	is.True(st.Location != nil)
	is.Equal(st.Location.Latitude, 40.7128)
	is.Equal(st.Error, "")
}

func TestLocationResultWithoutBridge(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	lat, lng := 1.0, 2.0
	res, _ := p.do(t, http.MethodPost, "/api/location/result", contracts.WSGeolocationResult{
		RequestID: "r1", Latitude: &lat, Longitude: &lng,
	})
	is.Equal(res.StatusCode, http.StatusConflict)

	res, _ = p.do(t, http.MethodPost, "/api/location/result", contracts.WSGeolocationResult{})
	is.Equal(res.StatusCode, http.StatusBadRequest)
}

func TestServicesAndHealth(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, body := p.do(t, http.MethodGet, "/api/emergency/services", nil)
	is.Equal(res.StatusCode, http.StatusOK)

	var svc servicesResponse
	is.NoErr(json.Unmarshal(body, &svc))
	is.Equal(len(svc.Services), 3)
	is.Equal(len(svc.Lines), 4)

	res, _ = p.do(t, http.MethodGet, "/healthz", nil)
	is.Equal(res.StatusCode, http.StatusOK)
}

func TestWebSocketNeedsCookieAndPage(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	res, err := http.Get(p.server.URL + "/ws?page=" + p.pageID)
	is.NoErr(err)
	res.Body.Close()
	is.Equal(res.StatusCode, http.StatusUnauthorized)

	p.pageID = ""
	res, _ = p.do(t, http.MethodGet, "/ws", nil)
	is.Equal(res.StatusCode, http.StatusBadRequest)
}

func TestWebSocketHelloPushesLocation(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)

	conn := p.dialWS(t)
	is.NoErr(conn.WriteJSON(contracts.WSHello{Type: contracts.FrameHello, Geolocation: true}))

	st := waitLocation(t, conn)
	is.Equal(st.Location.Longitude, -74.006)
}

func TestWebSocketPushesCallState(t *testing.T) {
	is := is.New(t)
	p := newTestPage(t)
	conn := p.dialWS(t)

	res, _ := p.do(t, http.MethodPost, "/api/emergency/calls", callRequest{Service: "medical"})
	is.Equal(res.StatusCode, http.StatusOK)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var frame struct {
			Type string          `json:"type"`
			Data ports.CallState `json:"data"`
		}
		is.NoErr(conn.ReadJSON(&frame))
		if frame.Type == contracts.FrameCall {
			is.True(frame.Data.Busy)
			return
		}
	}
}

func TestPageRendersDisabledButtons(t *testing.T) {
	is := is.New(t)

	render := func(st session.State) string {
		var buf bytes.Buffer
		is.NoErr(pageTemplate.Execute(&buf, newPageView(st)))
		return buf.String()
	}

	idle := render(session.State{SOS: ports.SOSState{Status: emergency.SOSIdle}})
	is.True(strings.Contains(idle, `data-service="police">`))
	is.True(strings.Contains(idle, `id="sos">`))

	busy := render(session.State{CallBusy: true, SOS: ports.SOSState{Status: emergency.SOSIdle}})
	is.True(strings.Contains(busy, `data-service="police" disabled>`))
	is.True(strings.Contains(busy, `id="sos" disabled>`))

	counting := render(session.State{SOS: ports.SOSState{Status: emergency.SOSCounting, Remaining: 3}})
	is.True(strings.Contains(counting, `data-service="fire" disabled>`))
	is.True(strings.Contains(counting, `id="sos" disabled>`))
	is.True(strings.Contains(counting, "Calling in 3"))
}
