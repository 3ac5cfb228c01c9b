package contract

import "strings"

// ClauseType is the fixed taxonomy used by clause classification.
type ClauseType string

const (
	ClauseIndemnity            ClauseType = "Indemnity"
	ClauseLiability            ClauseType = "Liability"
	ClauseTermination          ClauseType = "Termination"
	ClauseConfidentiality      ClauseType = "Confidentiality"
	ClausePayment              ClauseType = "Payment"
	ClauseIntellectualProperty ClauseType = "Intellectual Property"
	ClauseOther                ClauseType = "Other"
)

// ClauseTypes lists every member of the taxonomy, in display order.
func ClauseTypes() []ClauseType {
	return []ClauseType{
		ClauseIndemnity,
		ClauseLiability,
		ClauseTermination,
		ClauseConfidentiality,
		ClausePayment,
		ClauseIntellectualProperty,
		ClauseOther,
	}
}

// NormalizeClauseType maps a free-form label onto the taxonomy. Unknown
// labels fall back to Other.
func NormalizeClauseType(label string) ClauseType {
	needle := strings.ToLower(strings.TrimSpace(label))
	for _, ct := range ClauseTypes() {
		if strings.ToLower(string(ct)) == needle {
			return ct
		}
	}
	// Common aliases seen in model output.
	switch needle {
	case "ip", "intellectual-property", "intellectualproperty":
		return ClauseIntellectualProperty
	case "indemnification":
		return ClauseIndemnity
	case "limitation of liability":
		return ClauseLiability
	case "nda", "non-disclosure":
		return ClauseConfidentiality
	}
	return ClauseOther
}
