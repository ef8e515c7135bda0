package emergency

import (
	"errors"
	"strings"
)

// DefaultNumber is the emergency line used by every call button and by SOS.
const DefaultNumber = "911"

// NonEmergencyNumber is the city information line.
const NonEmergencyNumber = "311"

// ServiceKey identifies an emergency service.
type ServiceKey string

const (
	ServicePolice  ServiceKey = "police"
	ServiceMedical ServiceKey = "medical"
	ServiceFire    ServiceKey = "fire"
)

var ErrUnknownService = errors.New("unknown emergency service")

// ServiceEntry is static reference data for one emergency line.
type ServiceEntry struct {
	Key         ServiceKey `json:"key"`
	Name        string     `json:"name"`
	CallLabel   string     `json:"call_label"` // label used by the quick-dial buttons
	Number      string     `json:"number"`
	Icon        string     `json:"icon"`
	Color       string     `json:"color"`
	Description string     `json:"description"`
}

// Services returns the emergency directory in display order.
func Services() []ServiceEntry {
	return []ServiceEntry{
		{
			Key:         ServicePolice,
			Name:        "Police Emergency",
			CallLabel:   "Police",
			Number:      DefaultNumber,
			Icon:        "shield",
			Color:       "blue",
			Description: "For immediate police assistance",
		},
		{
			Key:         ServiceMedical,
			Name:        "Medical Emergency",
			CallLabel:   "Medical Emergency",
			Number:      DefaultNumber,
			Icon:        "heart-pulse",
			Color:       "red",
			Description: "For ambulance and medical emergencies",
		},
		{
			Key:         ServiceFire,
			Name:        "Fire Emergency",
			CallLabel:   "Fire Department",
			Number:      DefaultNumber,
			Icon:        "flame",
			Color:       "orange",
			Description: "For fire and rescue services",
		},
	}
}

// Lookup finds a service by key. Matching is case-insensitive.
func Lookup(key string) (ServiceEntry, error) {
	k := ServiceKey(strings.ToLower(strings.TrimSpace(key)))
	for _, s := range Services() {
		if s.Key == k {
			return s, nil
		}
	}
	return ServiceEntry{}, ErrUnknownService
}

// Facility is a nearby responder location shown in the sidebar.
type Facility struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Distance string `json:"distance"`
}

// NearbyFacilities is static; there is no facility lookup.
func NearbyFacilities() []Facility {
	return []Facility{
		{Name: "City General Hospital", Kind: "hospital", Distance: "2.3 miles"},
		{Name: "Metro Ambulance Station", Kind: "ambulance", Distance: "1.8 miles"},
		{Name: "Central Police Station", Kind: "police", Distance: "1.2 miles"},
	}
}

// Line is one entry of the quick-reference numbers list.
type Line struct {
	Label  string `json:"label"`
	Number string `json:"number"`
}

// QuickReference lists the lines printed in the page footer.
func QuickReference() []Line {
	return []Line{
		{Label: "Police", Number: DefaultNumber},
		{Label: "Fire", Number: DefaultNumber},
		{Label: "Medical", Number: DefaultNumber},
		{Label: "Non-Emergency", Number: NonEmergencyNumber},
	}
}

// SystemStatus is the static service status card.
type SystemStatus struct {
	ResponseTime string `json:"response_time"`
	Availability string `json:"availability"`
	Coverage     string `json:"coverage"`
}

func CurrentStatus() SystemStatus {
	return SystemStatus{ResponseTime: "< 2 min", Availability: "24/7", Coverage: "Citywide"}
}
