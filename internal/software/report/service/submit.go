package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

const sinkTimeout = 5 * time.Second

// Submit runs the simulated submission. It only fails when a submission is already
// running or the page goes away during the wait; the caller's ctx does not abort it.
func (f *Form) Submit(ctx context.Context) (ports.SubmitReceipt, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ports.SubmitReceipt{}, ErrClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return ports.SubmitReceipt{}, ErrSubmitting
	}
	f.submitting = true
	st := f.snapshotLocked()
	draft, images := st.Draft, st.Images
	f.mu.Unlock()
	f.changed(st)

	f.logger.Info(ctx, "report_submit_started", "Report submission started", nil)

	timer := time.NewTimer(f.delay)
	select {
	case <-f.lifetime.Done():
		timer.Stop()
		f.logger.Info(ctx, "report_submit_aborted", "Report submission aborted by page teardown", nil)
		return ports.SubmitReceipt{}, ErrClosed
	case <-timer.C:
	}
	if f.lifetime.Err() != nil {
		return ports.SubmitReceipt{}, ErrClosed
	}

	// the draft as it was when the user pressed submit
	rep := report.NewReport(draft, images, f.location(), f.now())

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ports.SubmitReceipt{}, ErrClosed
	}
	f.draft = report.Draft{}
	f.images = nil
	f.submitting = false
	st = f.snapshotLocked()
	// sinks run off the submit path; Close waits for them
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		f.fanOut(ctx, rep)
	}()

	f.notifier.Notify(ctx, notify.ReportSubmitted())
	f.changed(st)

	f.logger.Info(ctx, "report_submitted",
		fmt.Sprintf("Report %s submitted", rep.Number),
		map[string]any{
			"report_id":     rep.ID,
			"report_number": rep.Number,
			"severity":      rep.Severity.String(),
			"has_location":  rep.Location != nil,
			"images":        len(rep.Images),
		},
	)

	return ports.SubmitReceipt{
		ReportID:     rep.ID,
		ReportNumber: rep.Number,
		SubmittedAt:  rep.SubmittedAt,
		Message:      "Emergency services have been notified. Help is on the way.",
	}, nil
}

// fanOut hands the report to every sink in parallel and returns once all of them
// are done or sinkTimeout has passed. Failures are logged only.
func (f *Form) fanOut(ctx context.Context, rep report.Report) {
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, sink := range f.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.PublishReport(sinkCtx, rep); err != nil {
				f.logger.Error(ctx, "report_sink_failed", "Failed to hand report to sink", err, map[string]any{
					"report_id": rep.ID,
					"sink":      fmt.Sprintf("%T", sink),
				})
			}
		}()
	}
	wg.Wait()
}
