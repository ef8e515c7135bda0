package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"

	"github.com/diwise/context-broker/pkg/datamodels/fiware"
	"github.com/diwise/context-broker/pkg/ngsild/client"
	ngsierrors "github.com/diwise/context-broker/pkg/ngsild/errors"
	"github.com/diwise/context-broker/pkg/ngsild/types/entities"
	"github.com/diwise/context-broker/pkg/ngsild/types/entities/decorators"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
)

// EntityIDNamespace is placed between the RoadAccident prefix and the report ID.
const EntityIDNamespace = "civic-aid:report:"

var tracer = otel.Tracer("civic-aid-context-broker")

// RoadAccidentSink mirrors submitted reports into an NGSI-LD context broker as RoadAccident entities.
type RoadAccidentSink struct {
	logger    *logger.Logger
	ctxBroker client.ContextBrokerClient
}

func NewRoadAccidentSink(logger *logger.Logger, ctxBroker client.ContextBrokerClient) *RoadAccidentSink {
	return &RoadAccidentSink{logger: logger, ctxBroker: ctxBroker}
}

// NewClient returns a broker client for url.
func NewClient(url string) client.ContextBrokerClient {
	return client.NewContextBrokerClient(url)
}

// EntityID returns the broker ID of a report.
func EntityID(r report.Report) string {
	return fiware.RoadAccidentIDPrefix + EntityIDNamespace + r.ID
}

// PublishReport implements ports.ReportSink. It merges into an existing entity and creates it when missing.
func (s *RoadAccidentSink) PublishReport(ctx context.Context, r report.Report) error {
	var err error
	ctx, span := tracer.Start(ctx, "publish-to-broker")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	// build the entity attributes once for both merge and create
	attributes := convertReportToFiwareEntity(r)

	fragment, _ := entities.NewFragment(attributes...)
	entityID := EntityID(r)

	headers := map[string][]string{"Content-Type": {"application/ld+json"}}

	// try merge first, the entity may already exist
	_, err = s.ctxBroker.MergeEntity(ctx, entityID, fragment, headers)
	if err != nil {
		if !errors.Is(err, ngsierrors.ErrNotFound) {
			err = fmt.Errorf("failed to merge entity: %w", err)
			return err
		}

		// not found: create it
		entity, newErr := entities.New(entityID, fiware.RoadAccidentTypeName, attributes...)
		if newErr != nil {
			err = fmt.Errorf("entities.New failed: %w", newErr)
			return err
		}

		_, err = s.ctxBroker.CreateEntity(ctx, entity, headers)
		if err != nil {
			err = fmt.Errorf("failed to post road accident to context broker: %w", err)
			return err
		}
	}

	s.logger.Info(ctx, "report_mirrored_to_broker", "Report mirrored to context broker", map[string]any{
		"entity_id": entityID,
	})
	return nil
}

func convertReportToFiwareEntity(r report.Report) []entities.EntityDecoratorFunc {
	attributes := append(
		make([]entities.EntityDecoratorFunc, 0, 5),
		decorators.Description(r.Summary()),
		decorators.Status("onGoing"),
	)

	// reports without a fix carry no location
	if r.Location != nil {
		attributes = append(attributes, decorators.Location(r.Location.Latitude, r.Location.Longitude))
	}

	utcTime := r.SubmittedAt.UTC().Format(time.RFC3339)
	attributes = append(attributes, decorators.DateCreated(utcTime), decorators.DateTime("accidentDate", utcTime))

	return attributes
}
