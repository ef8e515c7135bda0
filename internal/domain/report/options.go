package report

import (
	"errors"
	"strings"
)

// Option is one selectable value of an enumerated field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ReporterType is the role of the person filing the report.
type ReporterType string

const (
	ReporterVictim         ReporterType = "victim"
	ReporterWitness        ReporterType = "witness"
	ReporterGoodSamaritan  ReporterType = "good-samaritan"
	ReporterFirstResponder ReporterType = "first-responder"
)

var ReporterTypeOptions = []Option{
	{Value: string(ReporterVictim), Label: "Victim"},
	{Value: string(ReporterWitness), Label: "Witness"},
	{Value: string(ReporterGoodSamaritan), Label: "Good Samaritan"},
	{Value: string(ReporterFirstResponder), Label: "First Responder"},
}

// AccidentType classifies the accident.
type AccidentType string

const (
	AccidentVehicleCollision AccidentType = "vehicle-collision"
	AccidentPedestrian       AccidentType = "pedestrian"
	AccidentMotorcycle       AccidentType = "motorcycle"
	AccidentBicycle          AccidentType = "bicycle"
	AccidentSingleVehicle    AccidentType = "single-vehicle"
	AccidentOther            AccidentType = "other"
)

var AccidentTypeOptions = []Option{
	{Value: string(AccidentVehicleCollision), Label: "Vehicle Collision"},
	{Value: string(AccidentPedestrian), Label: "Pedestrian Accident"},
	{Value: string(AccidentMotorcycle), Label: "Motorcycle Accident"},
	{Value: string(AccidentBicycle), Label: "Bicycle Accident"},
	{Value: string(AccidentSingleVehicle), Label: "Single Vehicle"},
	{Value: string(AccidentOther), Label: "Other"},
}

// VehicleCount is the bucketed number of vehicles involved.
type VehicleCount string

const (
	VehiclesOne        VehicleCount = "1"
	VehiclesTwo        VehicleCount = "2"
	VehiclesThree      VehicleCount = "3"
	VehiclesFourOrMore VehicleCount = "4+"
)

var VehicleCountOptions = []Option{
	{Value: string(VehiclesOne), Label: "1 Vehicle"},
	{Value: string(VehiclesTwo), Label: "2 Vehicles"},
	{Value: string(VehiclesThree), Label: "3 Vehicles"},
	{Value: string(VehiclesFourOrMore), Label: "4+ Vehicles"},
}

// InjuryStatus is whether anyone is hurt.
type InjuryStatus string

const (
	InjuriesNone    InjuryStatus = "none"
	InjuriesMinor   InjuryStatus = "minor"
	InjuriesSerious InjuryStatus = "serious"
	InjuriesUnknown InjuryStatus = "unknown"
)

var InjuryStatusOptions = []Option{
	{Value: string(InjuriesNone), Label: "No Injuries"},
	{Value: string(InjuriesMinor), Label: "Minor Injuries"},
	{Value: string(InjuriesSerious), Label: "Serious Injuries"},
	{Value: string(InjuriesUnknown), Label: "Unknown"},
}

// Gender of the patient.
type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer-not-to-say"
)

var GenderOptions = []Option{
	{Value: string(GenderMale), Label: "Male"},
	{Value: string(GenderFemale), Label: "Female"},
	{Value: string(GenderOther), Label: "Other"},
	{Value: string(GenderPreferNotToSay), Label: "Prefer not to say"},
}

var ErrInvalidValue = errors.New("value is not one of the allowed options")

// ParseReporterType validates a reporter type. Empty means unset.
func ParseReporterType(in string) (ReporterType, error) {
	v, err := parseOption(ReporterTypeOptions, in)
	return ReporterType(v), err
}

// ParseAccidentType validates an accident type. Empty means unset.
func ParseAccidentType(in string) (AccidentType, error) {
	v, err := parseOption(AccidentTypeOptions, in)
	return AccidentType(v), err
}

// ParseVehicleCount validates a vehicle count bucket. Empty means unset.
func ParseVehicleCount(in string) (VehicleCount, error) {
	v, err := parseOption(VehicleCountOptions, in)
	return VehicleCount(v), err
}

// ParseInjuryStatus validates an injury status. Empty means unset.
func ParseInjuryStatus(in string) (InjuryStatus, error) {
	v, err := parseOption(InjuryStatusOptions, in)
	return InjuryStatus(v), err
}

// ParseGender validates a gender. Empty means unset.
func ParseGender(in string) (Gender, error) {
	v, err := parseOption(GenderOptions, in)
	return Gender(v), err
}

func (t ReporterType) Label() string { return labelOf(ReporterTypeOptions, string(t)) }
func (t AccidentType) Label() string { return labelOf(AccidentTypeOptions, string(t)) }
func (c VehicleCount) Label() string { return labelOf(VehicleCountOptions, string(c)) }
func (s InjuryStatus) Label() string { return labelOf(InjuryStatusOptions, string(s)) }
func (g Gender) Label() string       { return labelOf(GenderOptions, string(g)) }

func parseOption(opts []Option, in string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(in))
	if v == "" {
		return "", nil
	}
	for _, o := range opts {
		if o.Value == v {
			return v, nil
		}
	}
	return "", ErrInvalidValue
}

func labelOf(opts []Option, v string) string {
	for _, o := range opts {
		if o.Value == v {
			return o.Label
		}
	}
	return ""
}
