package geolocate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/geo"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"googlemaps.github.io/maps"
)

type fix struct {
	coords   geo.Coordinates
	accuracy float64
	at       time.Time
}

// GooglePositioner resolves the position server-side through the Google Geolocation API.
// The last fix is reused while it is younger than the requested maximum age.
type GooglePositioner struct {
	client *maps.Client
	now    func() time.Time

	mu   sync.Mutex
	last *fix
}

// NewGooglePositioner builds a positioner for apiKey. Extra options are applied last.
func NewGooglePositioner(apiKey string, opts ...maps.ClientOption) (*GooglePositioner, error) {
	options := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}),
	}
	options = append(options, opts...)

	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("error creating Google Maps client: %w", err)
	}
	return &GooglePositioner{client: client, now: time.Now}, nil
}

func (g *GooglePositioner) Supported() bool { return true }

func (g *GooglePositioner) CurrentPosition(ctx context.Context, opts ports.PositionOptions) (geo.Coordinates, error) {
	// reuse a fresh enough fix
	if c, ok := g.cached(opts.MaximumAge); ok {
		return c, nil
	}

	// bound the API call by the page timeout
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resp, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		return geo.Coordinates{}, geo.NewPositionError(classify(ctx, err), err)
	}

	// validate before caching
	c, err := geo.NewCoordinates(resp.Location.Lat, resp.Location.Lng)
	if err != nil {
		return geo.Coordinates{}, geo.NewPositionError(geo.CodeUnknown, err)
	}

	g.mu.Lock()
	g.last = &fix{coords: c, accuracy: resp.Accuracy, at: g.now()}
	g.mu.Unlock()

	return c, nil
}

func (g *GooglePositioner) cached(maxAge time.Duration) (geo.Coordinates, bool) {
	if maxAge <= 0 {
		return geo.Coordinates{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil || g.now().Sub(g.last.at) > maxAge {
		return geo.Coordinates{}, false
	}
	return g.last.coords, true
}

// classify maps a Geolocation API failure onto a position error code.
// The client only surfaces the API's message text.
func classify(ctx context.Context, err error) geo.ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return geo.CodeTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return geo.CodePositionUnavailable
	case strings.Contains(msg, "api key"), strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "permission"), strings.Contains(msg, "access not configured"):
		return geo.CodePermissionDenied
	default:
		return geo.CodeUnknown
	}
}
