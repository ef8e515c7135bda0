package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
)

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// publishCall sends a call event to the incident topic exchange using routing key
// emergency.call.{service}, e.g. emergency.call.police.
func (d *Dialer) publishCall(ctx context.Context, msg contracts.EmergencyCallMessage) error {
	if d.deps.Publisher == nil {
		return nil
	}
	routingKey := contracts.RouteEmergencyCallPrefix + routingToken(msg.Service)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := d.deps.Publisher.Publish(contracts.ExchangeIncidentTopic, routingKey, body); err != nil {
		return err
	}

	d.deps.Logger.Info(ctx, "call_event_published", "Published emergency call to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
	return nil
}

// publishSOSStatus sends an SOS transition using routing key emergency.sos.{status}.
func publishSOSStatus(ctx context.Context, deps Deps, msg contracts.SOSStatusMessage) error {
	if deps.Publisher == nil {
		return nil
	}
	routingKey := contracts.RouteEmergencySOSPrefix + strings.ToLower(msg.Status)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := deps.Publisher.Publish(contracts.ExchangeIncidentTopic, routingKey, body); err != nil {
		return err
	}

	deps.Logger.Info(ctx, "sos_status_published", "Published SOS status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})
	return nil
}

// routingToken turns a display label like "Fire Department" into "fire_department".
func routingToken(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "unknown"
	}
	return strings.Join(strings.Fields(label), "_")
}
