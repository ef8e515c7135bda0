package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"

	"github.com/matryer/is"
)

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []notify.Toast
}

func (r *recordingNotifier) Notify(_ context.Context, t notify.Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.toasts))
	for _, t := range r.toasts {
		out = append(out, t.Title)
	}
	return out
}

type recordingSink struct {
	mu      sync.Mutex
	reports []report.Report
	err     error
}

func (s *recordingSink) PublishReport(_ context.Context, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

type recordingPublisher struct {
	exchange, routingKey string
	body                 []byte
}

func (p *recordingPublisher) Publish(exchange, routingKey string, body []byte) error {
	p.exchange, p.routingKey, p.body = exchange, routingKey, body
	return nil
}

func newForm(delay time.Duration, loc func() *geo.Coordinates, sinks ...ports.ReportSink) (*Form, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewForm(context.Background(), logger.Nop(), n, loc, delay, nil, sinks...), n
}

func mustSet(t *testing.T, f *Form, field report.Field, value string) {
	t.Helper()
	if _, err := f.Set(context.Background(), field, value); err != nil {
		t.Fatalf("set %s=%q: %v", field, value, err)
	}
}

func TestSetLastWriteWins(t *testing.T) {
	is := is.New(t)
	f, _ := newForm(0, nil)

	mustSet(t, f, report.FieldSeverity, "minor")
	mustSet(t, f, report.FieldSeverity, "critical")
	mustSet(t, f, report.FieldDescription, "two cars")

	st := f.Snapshot()
	is.Equal(st.Draft.Severity, report.SeverityCritical)
	is.Equal(st.Draft.Description, "two cars")
	is.True(st.VisibleFields.Has(report.FieldPatientName))
}

func TestSetRejectsBadInput(t *testing.T) {
	is := is.New(t)
	f, _ := newForm(0, nil)
	mustSet(t, f, report.FieldSeverity, "moderate")

	_, err := f.Set(context.Background(), report.Field("nickname"), "x")
	is.True(errors.Is(err, report.ErrUnknownField))

	st, err := f.Set(context.Background(), report.FieldSeverity, "apocalyptic")
	is.True(err != nil)
	is.Equal(st.Draft.Severity, report.SeverityModerate)
}

func TestAttachImagesAccumulates(t *testing.T) {
	is := is.New(t)
	f, n := newForm(0, nil)

	f.AttachImages(context.Background(), report.Image{Name: "a.jpg"}, report.Image{Name: "b.jpg"})
	st := f.AttachImages(context.Background(), report.Image{Name: "c.jpg"})
	is.Equal(len(st.Images), 3)
	is.Equal(st.Images[2].Name, "c.jpg")

	f.AttachImages(context.Background())
	is.Equal(n.titles(), []string{"Images uploaded", "Images uploaded"})
}

func TestSubmitCycleResetsForm(t *testing.T) {
	is := is.New(t)
	sink := &recordingSink{}
	loc := &geo.Coordinates{Latitude: 40.7128, Longitude: -74.006}
	f, n := newForm(30*time.Millisecond, func() *geo.Coordinates { return loc }, sink)

	mustSet(t, f, report.FieldSeverity, "critical")
	mustSet(t, f, report.FieldAccidentType, "pedestrian")
	mustSet(t, f, report.FieldPatientName, "Jane")
	f.AttachImages(context.Background(),
		report.Image{Name: "1.jpg"}, report.Image{Name: "2.jpg"}, report.Image{Name: "3.jpg"})
	is.True(!f.Snapshot().Submitting)

	type result struct {
		receipt ports.SubmitReceipt
		err     error
	}
	done := make(chan result)
	go func() {
		r, err := f.Submit(context.Background())
		done <- result{r, err}
	}()

	deadline := time.Now().Add(time.Second)
	for !f.Snapshot().Submitting {
		if time.Now().After(deadline) {
			t.Fatal("form never entered submitting")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := f.Submit(context.Background())
	is.True(errors.Is(err, ErrSubmitting))

	res := <-done
	is.NoErr(res.err)
	is.True(res.receipt.ReportID != "")
	is.Equal(res.receipt.ReportNumber[:4], "RPT_")

	st := f.Snapshot()
	is.True(!st.Submitting)
	is.Equal(st.Draft, report.Draft{})
	is.Equal(len(st.Images), 0)

	// drain the fan-out
	f.Close()
	is.Equal(len(sink.reports), 1)
	got := sink.reports[0]
	is.Equal(len(got.Images), 3)
	is.Equal(*got.Location, *loc)
	is.Equal(got.Patient.Name, "Jane")

	is.Equal(n.titles()[len(n.titles())-1], "Report Submitted Successfully!")
}

func TestSubmitIgnoresSinkFailure(t *testing.T) {
	is := is.New(t)
	f, n := newForm(0, nil, &recordingSink{err: errors.New("broker down")})

	_, err := f.Submit(context.Background())
	is.NoErr(err)
	is.Equal(n.titles(), []string{"Report Submitted Successfully!"})
}

type blockingSink struct {
	release   chan struct{}
	delivered chan report.Report
}

func (s *blockingSink) PublishReport(ctx context.Context, r report.Report) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.delivered <- r
	return nil
}

func TestSlowSinkDoesNotDelaySubmit(t *testing.T) {
	is := is.New(t)
	sink := &blockingSink{release: make(chan struct{}), delivered: make(chan report.Report, 1)}
	fast := &recordingSink{}
	f, n := newForm(20*time.Millisecond, nil, sink, fast)
	mustSet(t, f, report.FieldSeverity, "serious")

	start := time.Now()
	res, err := f.Submit(context.Background())
	is.NoErr(err)
	is.True(time.Since(start) < time.Second)

	// the form is reset while the slow sink is still holding the report
	st := f.Snapshot()
	is.True(!st.Submitting)
	is.Equal(st.Draft, report.Draft{})
	is.Equal(n.titles(), []string{"Report Submitted Successfully!"})
	select {
	case <-sink.delivered:
		t.Fatal("slow sink finished before release")
	default:
	}

	close(sink.release)
	got := <-sink.delivered
	is.Equal(got.ID, res.ReportID)

	f.Close()
	is.Equal(len(fast.reports), 1)
}

func TestSubmitAbortedByClose(t *testing.T) {
	is := is.New(t)
	sink := &recordingSink{}
	f, n := newForm(time.Hour, nil, sink)

	errCh := make(chan error)
	go func() {
		_, err := f.Submit(context.Background())
		errCh <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !f.Snapshot().Submitting {
		if time.Now().After(deadline) {
			t.Fatal("form never entered submitting")
		}
		time.Sleep(time.Millisecond)
	}
	f.Close()

	is.True(errors.Is(<-errCh, ErrClosed))
	is.Equal(len(sink.reports), 0)
	is.Equal(len(n.titles()), 0)

	_, err := f.Submit(context.Background())
	is.True(errors.Is(err, ErrClosed))
}

func TestAnonymousReportOmitsContact(t *testing.T) {
	is := is.New(t)
	sink := &recordingSink{}
	f, _ := newForm(0, nil, sink)

	mustSet(t, f, report.FieldContactNumber, "555-0100")
	mustSet(t, f, report.FieldIsAnonymous, "true")
	_, err := f.Submit(context.Background())
	is.NoErr(err)
	f.Close()

	is.Equal(sink.reports[0].ContactNumber, "")
	is.True(sink.reports[0].IsAnonymous)
}

func TestFeedSinkRoutesBySeverity(t *testing.T) {
	is := is.New(t)
	pub := &recordingPublisher{}
	sink := NewFeedSink(logger.Nop(), pub, "sess-1")

	d, err := report.Draft{}.With(report.FieldSeverity, "critical")
	is.NoErr(err)
	rep := report.NewReport(d, []report.Image{{Name: "x.png", Size: 10}}, &geo.Coordinates{Latitude: 1, Longitude: 2}, time.Now())

	is.NoErr(sink.PublishReport(context.Background(), rep))
	is.Equal(pub.exchange, contracts.ExchangeIncidentTopic)
	is.Equal(pub.routingKey, "report.submitted.critical")

	var msg contracts.ReportSubmittedMessage
	is.NoErr(json.Unmarshal(pub.body, &msg))
	is.Equal(msg.ReportID, rep.ID)
	is.Equal(msg.SessionID, "sess-1")
	is.Equal(msg.Producer, contracts.ProducerReportService)
	is.Equal(*msg.Location, contracts.GeoPoint{Lat: 1, Lng: 2})
	is.Equal(len(msg.Images), 1)

	is.NoErr(sink.PublishReport(context.Background(), report.NewReport(report.Draft{}, nil, nil, time.Now())))
	is.Equal(pub.routingKey, "report.submitted.unspecified")
}
