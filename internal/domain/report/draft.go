package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Field names a single editable draft field. Values match the wire names used by the page.
type Field string

const (
	FieldReporterType     Field = "reporterType"
	FieldContactNumber    Field = "contactNumber"
	FieldIsAnonymous      Field = "isAnonymous"
	FieldAccidentType     Field = "accidentType"
	FieldNumberOfVehicles Field = "numberOfVehicles"
	FieldSeverity         Field = "severity"
	FieldInjuries         Field = "injuries"
	FieldDescription      Field = "description"
	FieldPatientName      Field = "patientName"
	FieldPatientAge       Field = "patientAge"
	FieldPatientGender    Field = "patientGender"
)

// BaseFields are always part of the form, in display order.
var BaseFields = []Field{
	FieldReporterType,
	FieldContactNumber,
	FieldIsAnonymous,
	FieldAccidentType,
	FieldNumberOfVehicles,
	FieldSeverity,
	FieldInjuries,
	FieldDescription,
}

// PatientFields form the patient sub-record.
var PatientFields = []Field{
	FieldPatientName,
	FieldPatientAge,
	FieldPatientGender,
}

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidAge   = errors.New("patient age must be a whole number between 0 and 150")
)

// Patient is the optional patient sub-record.
type Patient struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Gender Gender `json:"gender"`
}

// IsEmpty reports whether nothing was entered.
func (p Patient) IsEmpty() bool {
	return p.Name == "" && p.Age == "" && p.Gender == ""
}

// Draft is the in-progress report. It is a value: every edit produces a new Draft.
type Draft struct {
	ReporterType     ReporterType `json:"reporterType"`
	ContactNumber    string       `json:"contactNumber"`
	IsAnonymous      bool         `json:"isAnonymous"`
	AccidentType     AccidentType `json:"accidentType"`
	NumberOfVehicles VehicleCount `json:"numberOfVehicles"`
	Severity         Severity     `json:"severity"`
	Injuries         InjuryStatus `json:"injuries"`
	Description      string       `json:"description"`
	Patient          Patient      `json:"patient"`
}

// With returns a copy of d with field set to value. d itself is never modified.
// Enumerated fields accept their option values or "" to clear.
func (d Draft) With(field Field, value string) (Draft, error) {
	next := d
	var err error

	switch field {
	case FieldReporterType:
		next.ReporterType, err = ParseReporterType(value)
	case FieldContactNumber:
		next.ContactNumber = strings.TrimSpace(value)
	case FieldIsAnonymous:
		next.IsAnonymous, err = parseFlag(value)
	case FieldAccidentType:
		next.AccidentType, err = ParseAccidentType(value)
	case FieldNumberOfVehicles:
		next.NumberOfVehicles, err = ParseVehicleCount(value)
	case FieldSeverity:
		next.Severity, err = ParseSeverity(value)
	case FieldInjuries:
		next.Injuries, err = ParseInjuryStatus(value)
	case FieldDescription:
		next.Description = value
	case FieldPatientName:
		next.Patient.Name = strings.TrimSpace(value)
	case FieldPatientAge:
		next.Patient.Age, err = parseAge(value)
	case FieldPatientGender:
		next.Patient.Gender, err = ParseGender(value)
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if err != nil {
		return d, fmt.Errorf("%s: %w", field, err)
	}
	return next, nil
}

// Value returns the wire representation of a field.
func (d Draft) Value(field Field) string {
	switch field {
	case FieldReporterType:
		return string(d.ReporterType)
	case FieldContactNumber:
		return d.ContactNumber
	case FieldIsAnonymous:
		return strconv.FormatBool(d.IsAnonymous)
	case FieldAccidentType:
		return string(d.AccidentType)
	case FieldNumberOfVehicles:
		return string(d.NumberOfVehicles)
	case FieldSeverity:
		return string(d.Severity)
	case FieldInjuries:
		return string(d.Injuries)
	case FieldDescription:
		return d.Description
	case FieldPatientName:
		return d.Patient.Name
	case FieldPatientAge:
		return d.Patient.Age
	case FieldPatientGender:
		return string(d.Patient.Gender)
	default:
		return ""
	}
}

// IsEmpty reports whether d equals the initial draft.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

// ParseField validates a field name.
func ParseField(in string) (Field, error) {
	f := Field(strings.TrimSpace(in))
	for _, known := range BaseFields {
		if f == known {
			return f, nil
		}
	}
	for _, known := range PatientFields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, in)
}

func parseFlag(v string) (bool, error) {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "off":
		return false, nil
	case "on":
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, ErrInvalidValue
	}
	return b, nil
}

func parseAge(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 150 {
		return "", ErrInvalidAge
	}
	return strconv.Itoa(n), nil
}
