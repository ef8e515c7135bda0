package rabbitmq

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/config"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dialTimeout    = 30 * time.Second
	heartbeat      = 10 * time.Second
	minBackoff     = time.Second
	maxBackoff     = 30 * time.Second
	confirmTimeout = 5 * time.Second
)

// Client keeps one AMQP connection plus a confirming publish channel alive.
// A background watcher redials with exponential backoff and re-declares the incident topology.
type Client struct {
	url    string
	logger *logger.Logger
	logCtx context.Context

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	pubMu       sync.Mutex
	pubConfirms chan amqp.Confirmation

	closeOnce sync.Once
	closed    chan struct{}
	reconnect chan struct{}
}

// AMQPURL builds the broker URL from config.
func AMQPURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(cfg.RabbitMQ.User, cfg.RabbitMQ.Password),
		Host:   cfg.RabbitMQ.Host + ":" + strconv.Itoa(cfg.RabbitMQ.Port),
		Path:   "/",
	}
	return u.String()
}

// ConnectRabbitMQ dials once and starts the reconnect watcher.
func ConnectRabbitMQ(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Client, error) {
	client := &Client{
		url:       AMQPURL(cfg),
		logger:    log,
		logCtx:    context.WithoutCancel(ctx),
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}

	if err := client.connectOnce(); err != nil {
		return nil, err
	}
	go client.watch()

	return client, nil
}

// Ready reports whether a publish channel is currently open.
func (client *Client) Ready() bool {
	client.mu.RLock()
	defer client.mu.RUnlock()
	return client.conn != nil && !client.conn.IsClosed() && client.pubChan != nil && !client.pubChan.IsClosed()
}

// Close stops the watcher and releases the connection. Safe to call twice.
func (client *Client) Close() {
	client.closeOnce.Do(func() {
		close(client.closed)

		client.mu.Lock()
		if client.pubChan != nil {
			_ = client.pubChan.Close()
			client.pubChan = nil
		}
		if client.conn != nil {
			_ = client.conn.Close()
			client.conn = nil
		}
		client.mu.Unlock()

		client.pubMu.Lock()
		client.pubConfirms = nil
		client.pubMu.Unlock()

		client.logger.Info(client.logCtx, "rabbitmq_closed", "RabbitMQ client closed", nil)
	})
}

func (client *Client) connectOnce() (err error) {
	conn, err := amqp.DialConfig(client.url, amqp.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_dial_failed", "Failed to dial RabbitMQ", err, nil)
		return fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	if err = declareTopology(ch); err != nil {
		client.logger.Error(client.logCtx, "rabbitmq_declare_topology_failed", "Failed to declare incident topology", err, nil)
		return fmt.Errorf("rabbitmq: declare topology: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return fmt.Errorf("rabbitmq: enable confirms: %w", err)
	}

	client.pubMu.Lock()
	client.pubConfirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	client.pubMu.Unlock()

	// unroutable events (mandatory publish) are logged, never fatal
	returns := ch.NotifyReturn(make(chan amqp.Return, 1))
	go func() {
		for r := range returns {
			client.logger.Error(client.logCtx, "rabbitmq_returned", "Incident event was returned as unroutable",
				fmt.Errorf("code=%d text=%s", r.ReplyCode, r.ReplyText),
				map[string]any{"exchange": r.Exchange, "routing_key": r.RoutingKey, "size": len(r.Body)},
			)
		}
	}()

	client.mu.Lock()
	if client.pubChan != nil && !client.pubChan.IsClosed() {
		_ = client.pubChan.Close()
	}
	client.conn = conn
	client.pubChan = ch
	client.mu.Unlock()

	go client.notifyOnClose(conn, ch)

	client.logger.Info(client.logCtx, "rabbitmq_connected", "RabbitMQ connection established", nil)
	return nil
}

// notifyOnClose asks the watcher to redial once conn or ch goes away.
func (client *Client) notifyOnClose(conn *amqp.Connection, ch *amqp.Channel) {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-client.closed:
		return
	case <-connClosed:
	case <-chClosed:
	}

	select {
	case client.reconnect <- struct{}{}:
	default:
	}
}

func (client *Client) watch() {
	for {
		select {
		case <-client.closed:
			return
		case <-client.reconnect:
			client.redial()
		}
	}
}

// redial retries until it succeeds or the client is closed.
func (client *Client) redial() {
	backoff := minBackoff
	for {
		err := client.connectOnce()
		if err == nil {
			client.logger.Info(client.logCtx, "rabbitmq_reconnected", "Reconnected to RabbitMQ", nil)
			return
		}
		client.logger.Error(client.logCtx, "retry_attempted", "Failed to reconnect to RabbitMQ", err,
			map[string]any{"backoff": backoff.String()})

		t := time.NewTimer(backoff)
		select {
		case <-client.closed:
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
