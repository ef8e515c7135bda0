package contracts

// Exchanges
const (
	ExchangeIncidentTopic = "incident_topic"
)

// Queues
const (
	QueueIncidentReports = "incident_reports"
	QueueEmergencyCalls  = "emergency_calls"
	QueueEmergencySOS    = "emergency_sos"
)

// Routing patterns
const (
	RouteReportSubmittedPrefix = "report.submitted." // {severity}
	RouteEmergencyCallPrefix   = "emergency.call."   // {service}
	RouteEmergencySOSPrefix    = "emergency.sos."    // {status}
)

// Producer names
const (
	ProducerReportService = "report-service"
)
