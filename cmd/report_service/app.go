package reportservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/broker"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/config"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/geolocate"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/jwt"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/rabbitmq"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/websocket"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
	emergencysvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/emergency/service"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/handler"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/session"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// sessionTokenTTL outlives any realistic page visit; the registry sweeps idle pages on its own.
const sessionTokenTTL = 24 * time.Hour

// Run wires the report service and blocks until ctx is cancelled.
func Run(ctx context.Context, configPath string, maxConcurrent int) error {
	// load a config from file
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}

	// set up a new logger with a static request ID for startup logs
	logger, err := logger.New("report-service", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	deps := session.Deps{
		Logger: logger,
		Settings: session.Settings{
			Position: ports.PositionOptions{
				HighAccuracy: cfg.HighAccuracy(),
				Timeout:      cfg.Location.Timeout,
				MaximumAge:   cfg.Location.MaximumAge,
			},
			SubmitDelay: cfg.Report.SubmitDelay,
			BusyWindow:  cfg.Emergency.BusyWindow,
			SOS: emergencysvc.SOSConfig{
				Number:    cfg.Emergency.DefaultNumber,
				Countdown: cfg.Emergency.SOSCountdown,
				Tick:      cfg.Emergency.SOSTick,
			},
		},
	}

	// connect to RabbitMQ when the incident feed is enabled
	var rmq *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rmq, err = rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
		if err != nil {
			logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
			return err
		}
		defer rmq.Close()
		deps.Publisher = rabbitmq.NewMQPublisher(rmq)
	}

	// mirror submitted reports into the context broker
	if cfg.ContextBroker.URL != "" {
		deps.Sinks = append(deps.Sinks, broker.NewRoadAccidentSink(logger, broker.NewClient(cfg.ContextBroker.URL)))
		logger.Info(ctx, "context_broker_enabled", "Submitted reports are mirrored to the context broker",
			map[string]any{"url": cfg.ContextBroker.URL})
	}

	// the browser bridge is the default; a server-side positioner replaces it for every page
	if cfg.Location.Provider == config.ProviderGoogle {
		positioner, err := geolocate.NewGooglePositioner(cfg.Location.GoogleAPIKey)
		if err != nil {
			logger.Error(ctx, "positioner_init_failed", "Failed to set up the Google positioner", err, nil)
			return err
		}
		deps.Positioner = positioner
	}

	// set up the page registry and its live channel hub
	hub := websocket.NewHub(logger)
	registry := session.NewRegistry(ctx, logger, hub, deps, cfg.Server.SessionIdle)
	go registry.Run(ctx)

	// set up the session cookie signer
	jwtManager := jwt.NewManager(cfg.Session.SecretKey, sessionTokenTTL)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewPageHTTPHandler(registry, logger, jwtManager, hub, cfg.Server.MaxUploadMB<<20, cfg.Location.Timeout)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global), blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, otelhttp.NewHandler(mux, "report-service"))

	// submit waits out the simulated delay, so writes get that on top of the usual window
	writeTimeout := 15*time.Second + cfg.Report.SubmitDelay

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           limitedHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Report Service started on port %d", cfg.Server.Port),
		map[string]any{
			"port":              cfg.Server.Port,
			"max_concurrent":    maxConcurrent,
			"location_provider": cfg.Location.Provider,
			"rabbitmq":          cfg.RabbitMQ.Enabled,
		},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Shutting down Report Service", nil)
		if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Server.Port})
			runErr = err
		}
	}

	// sockets are hijacked, so Shutdown does not wait for them
	registry.Close()
	hub.CloseAll()

	logger.Info(ctx, "shutdown_complete", "Report Service stopped", nil)
	return runErr
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
