package contracts

// Frame types pushed to the page.
const (
	FrameToast              = "toast"
	FrameLocation           = "location_state"
	FrameForm               = "form_state"
	FrameSOS                = "sos_state"
	FrameCall               = "call_state"
	FrameNavigate           = "navigate"
	FrameGeolocationRequest = "geolocation_request"
	FrameError              = "error"
)

// Frame types sent by the page.
const (
	FrameHello             = "hello"
	FrameGeolocationResult = "geolocation_result"
	FrameRefreshLocation   = "refresh_location"
)

// WSFrame is the generic server -> page frame.
type WSFrame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WSNavigate asks the page to navigate to a telephony intent.
type WSNavigate struct {
	Type    string `json:"type"` // "navigate"
	Href    string `json:"href"`
	Service string `json:"service,omitempty"`
}

// WSGeolocationRequest asks the page to run a one-shot navigator.geolocation query.
type WSGeolocationRequest struct {
	Type         string `json:"type"` // "geolocation_request"
	RequestID    string `json:"request_id"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMS    int64  `json:"timeout_ms"`
	MaximumAgeMS int64  `json:"maximum_age_ms"`
}

// WSHello is the first frame a mounted page sends.
type WSHello struct {
	Type        string `json:"type"` // "hello"
	Geolocation bool   `json:"geolocation"`
}

// WSGeolocationResult is the page's answer to a geolocation request.
// Either the coordinates or ErrorCode is set.
type WSGeolocationResult struct {
	Type      string   `json:"type"` // "geolocation_result"
	RequestID string   `json:"request_id"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ErrorCode string   `json:"error_code,omitempty"` // permission-denied|position-unavailable|timeout|unknown
}
