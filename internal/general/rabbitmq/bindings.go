package rabbitmq

import (
	"fmt"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// binding ties a queue to the incident exchange.
type binding struct {
	queue      string
	routingKey string
}

var incidentBindings = []binding{
	{contracts.QueueIncidentReports, contracts.RouteReportSubmittedPrefix + "*"},
	{contracts.QueueEmergencyCalls, contracts.RouteEmergencyCallPrefix + "*"},
	{contracts.QueueEmergencySOS, contracts.RouteEmergencySOSPrefix + "*"},
}

// IncidentQueues lists every queue fed by the incident exchange.
func IncidentQueues() []string {
	out := make([]string, 0, len(incidentBindings))
	for _, b := range incidentBindings {
		out = append(out, b.queue)
	}
	return out
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(contracts.ExchangeIncidentTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeIncidentTopic, err)
	}

	for _, b := range incidentBindings {
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := ch.QueueBind(b.queue, b.routingKey, contracts.ExchangeIncidentTopic, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, contracts.ExchangeIncidentTopic, err)
		}
	}

	return nil
}
