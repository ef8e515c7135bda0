package eventmonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/config"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrFeedDisabled = errors.New("rabbitmq is disabled in config; the incident feed has nothing to monitor")

// Run tails every incident queue and logs each event until ctx is cancelled.
func Run(ctx context.Context, configPath string, prefetch int) error {
	// load config
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return err
	}
	if !cfg.RabbitMQ.Enabled {
		return ErrFeedDisabled
	}

	// init logger
	logger, err := logger.New("event-monitor", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	ctx = logger.WithRequestID(ctx, "startup-001")

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer rmq.Close()

	queues := rabbitmq.IncidentQueues()
	logger.Info(ctx, "service_started", "Event monitor started", map[string]any{"queues": queues, "prefetch": prefetch})

	// one consumer per incident queue
	var wg sync.WaitGroup
	errCh := make(chan error, len(queues))
	for _, q := range queues {
		wg.Add(1)
		go func(queue string) {
			defer wg.Done()
			if err := rmq.Consume(ctx, queue, "event-monitor-"+queue, prefetch, logDelivery(logger, queue)); err != nil {
				logger.Error(ctx, "consume_failed", "Incident queue consumer stopped", err, map[string]any{"queue": queue})
				errCh <- err
			}
		}(q)
	}
	wg.Wait()
	close(errCh)

	logger.Info(ctx, "shutdown_complete", "Event monitor stopped", nil)

	// collect consumer failures
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// logDelivery logs one incident event. Bodies that are not JSON are rejected without requeue.
func logDelivery(log *logger.Logger, queue string) func(context.Context, amqp.Delivery) error {
	return func(ctx context.Context, d amqp.Delivery) error {
		var env contracts.Envelope
		if err := json.Unmarshal(d.Body, &env); err != nil {
			log.Error(ctx, "event_decode_failed", "Incident event is not valid JSON", err,
				map[string]any{"queue": queue, "routing_key": d.RoutingKey})
			return err
		}

		// correlate the log line with the page that produced the event
		ctx = log.WithSessionID(log.WithRequestID(ctx, env.CorrelationID), env.SessionID)

		// the envelope decoded, so the full body is JSON too
		var payload map[string]any
		_ = json.Unmarshal(d.Body, &payload)
		log.Info(ctx, "incident_event_received", "Incident event received", map[string]any{
			"queue":       queue,
			"routing_key": d.RoutingKey,
			"producer":    env.Producer,
			"sent_at":     env.SentAt,
			"event":       payload,
		})
		return nil
	}
}
