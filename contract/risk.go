package contract

// RiskLevel is the categorical classification derived from a numeric risk
// score.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// Risk level thresholds. Boundary values classify to the higher bucket.
const (
	HighRiskThreshold   = 75.0
	MediumRiskThreshold = 40.0
)

// RiskLevelFor maps a risk score in [0,100] to its level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampScore bounds a score to the [0,100] domain.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
