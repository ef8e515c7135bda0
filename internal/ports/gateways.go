package ports

import (
	"context"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/notify"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
)

// PositionOptions tune a one-shot positioning query.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration // how long the query may take
	MaximumAge   time.Duration // how old a cached fix may be
}

// DefaultPositionOptions: high accuracy, 10s timeout, 60s cache tolerance.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{HighAccuracy: true, Timeout: 10 * time.Second, MaximumAge: 60 * time.Second}
}

// Positioner answers one-shot positioning queries.
// Failures are *geo.PositionError values.
type Positioner interface {
	Supported() bool
	CurrentPosition(ctx context.Context, opts PositionOptions) (geo.Coordinates, error)
}

// Notifier delivers toasts to the page.
type Notifier interface {
	Notify(ctx context.Context, t notify.Toast)
}

// Navigator points the page at a telephony intent.
type Navigator interface {
	Navigate(ctx context.Context, intent emergency.Intent) error
}

// PageChannel pushes live frames to a connected page.
type PageChannel interface {
	Send(msg any) error
}

// Publisher publishes a message body to an exchange with a routing key.
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// ReportSink receives submitted reports. Sinks are best-effort observers.
type ReportSink interface {
	PublishReport(ctx context.Context, r report.Report) error
}
