package report

import (
	"errors"
	"strings"
)

// Severity is the reporter's assessment of the accident.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

var ErrInvalidSeverity = errors.New("invalid severity")

// SeverityOptions lists the selectable severities in display order.
var SeverityOptions = []Option{
	{Value: string(SeverityMinor), Label: "Minor - No injuries, minor damage"},
	{Value: string(SeverityModerate), Label: "Moderate - Minor injuries, medical attention needed"},
	{Value: string(SeverityCritical), Label: "Critical - Serious injuries, immediate medical attention required"},
}

// ParseSeverity normalizes (lowercases+trims) and validates a severity. Empty means unset.
func ParseSeverity(in string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(in)))
	if s == "" || s.Valid() {
		return s, nil
	}
	return "", ErrInvalidSeverity
}

// Valid reports whether s is one of the severity constants.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityCritical:
		return true
	default:
		return false
	}
}

// RequiresMedicalAttention reports whether a patient is expected to need care.
func (s Severity) RequiresMedicalAttention() bool {
	return s == SeverityModerate || s == SeverityCritical
}

func (s Severity) Label() string {
	return labelOf(SeverityOptions, string(s))
}

func (s Severity) String() string {
	return string(s)
}
