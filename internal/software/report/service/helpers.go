package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

// FeedSink publishes submitted reports onto the incident topic exchange.
type FeedSink struct {
	logger    *logger.Logger
	pub       ports.Publisher
	sessionID string
}

func NewFeedSink(logger *logger.Logger, pub ports.Publisher, sessionID string) *FeedSink {
	return &FeedSink{logger: logger, pub: pub, sessionID: sessionID}
}

// PublishReport implements ports.ReportSink.
func (s *FeedSink) PublishReport(ctx context.Context, r report.Report) error {
	return s.publishReportSubmitted(ctx, toMessage(r, s.sessionID))
}

// publishReportSubmitted sends a report to the incident topic exchange using routing key
// report.submitted.{severity}, e.g. report.submitted.critical.
func (s *FeedSink) publishReportSubmitted(ctx context.Context, msg contracts.ReportSubmittedMessage) error {
	severity := strings.ToLower(msg.Severity)
	if severity == "" {
		severity = "unspecified"
	}
	routingKey := contracts.RouteReportSubmittedPrefix + severity

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(contracts.ExchangeIncidentTopic, routingKey, body); err != nil {
		return err
	}

	s.logger.Info(ctx, "report_published", "Published submitted report to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"report_id":   msg.ReportID,
	})
	return nil
}

func toMessage(r report.Report, sessionID string) contracts.ReportSubmittedMessage {
	msg := contracts.ReportSubmittedMessage{
		ReportID:         r.ID,
		ReportNumber:     r.Number,
		ReporterType:     string(r.ReporterType),
		ContactNumber:    r.ContactNumber,
		IsAnonymous:      r.IsAnonymous,
		AccidentType:     string(r.AccidentType),
		NumberOfVehicles: string(r.NumberOfVehicles),
		Severity:         r.Severity.String(),
		Injuries:         string(r.Injuries),
		Description:      r.Description,
		SubmittedAt:      r.SubmittedAt,
		Envelope: contracts.Envelope{
			CorrelationID: generateCorrelationID(),
			Producer:      contracts.ProducerReportService,
			SessionID:     sessionID,
			SentAt:        time.Now().UTC(),
		},
	}
	if r.Patient != nil {
		msg.Patient = &contracts.PatientBrief{Name: r.Patient.Name, Age: r.Patient.Age, Gender: string(r.Patient.Gender)}
	}
	if r.Location != nil {
		msg.Location = &contracts.GeoPoint{Lat: r.Location.Latitude, Lng: r.Location.Longitude}
	}
	for _, img := range r.Images {
		msg.Images = append(msg.Images, contracts.ImageBrief{Name: img.Name, ContentType: img.ContentType, Size: img.Size})
	}
	return msg
}

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}
