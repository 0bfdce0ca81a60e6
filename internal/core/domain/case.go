package domain

import "strings"

// CaseID identifies a case in the source court system.
type CaseID string

// CaseNumberField is the record field carrying the case identifier.
const CaseNumberField = "case_number"

// CaseRecord holds the fields parsed from one case detail page.
// Values must be JSON-compatible so the record survives a JSON round trip unchanged.
type CaseRecord map[string]any

// CaseNumber extracts the case identifier of the record.
func (r CaseRecord) CaseNumber() (CaseID, bool) {
	raw, ok := r[CaseNumberField]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return CaseID(s), true
}

// JoinCaseIDs renders ids as a comma separated list for reports.
func JoinCaseIDs(ids []CaseID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
