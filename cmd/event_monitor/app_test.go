package eventmonitor

import (
	"context"
	"testing"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"

	"github.com/matryer/is"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestLogDeliveryAcceptsIncidentEvents(t *testing.T) {
	is := is.New(t)
	handle := logDelivery(logger.Nop(), "emergency_sos")

	err := handle(context.Background(), amqp.Delivery{
		RoutingKey: "emergency.sos.counting",
		Body:       []byte(`{"status":"counting","remaining":5,"correlation_id":"req_1","session_id":"s1"}`),
	})
	is.NoErr(err)
}

func TestLogDeliveryRejectsGarbage(t *testing.T) {
	is := is.New(t)
	handle := logDelivery(logger.Nop(), "incident_reports")

	err := handle(context.Background(), amqp.Delivery{RoutingKey: "report.submitted.minor", Body: []byte("not json")})
	is.True(err != nil)
}

func TestRunRefusesWithoutFeed(t *testing.T) {
	is := is.New(t)

	err := Run(context.Background(), "does-not-exist.yaml", 4)
	is.Equal(err, ErrFeedDisabled)
}
