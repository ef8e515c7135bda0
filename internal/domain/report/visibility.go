package report

// PatientSectionVisible reports whether the patient sub-record is solicited for a severity.
func PatientSectionVisible(s Severity) bool {
	return s.RequiresMedicalAttention()
}

// FieldSet is the set of fields the form currently shows, in display order.
type FieldSet []Field

// Has reports whether f is part of the set.
func (fs FieldSet) Has(f Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// VisibleFields derives the rendered field set from a draft.
// Severity is the only field that changes the result.
func VisibleFields(d Draft) FieldSet {
	out := make(FieldSet, 0, len(BaseFields)+len(PatientFields))
	out = append(out, BaseFields...)
	if PatientSectionVisible(d.Severity) {
		out = append(out, PatientFields...)
	}
	return out
}
