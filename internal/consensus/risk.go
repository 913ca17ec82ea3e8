package consensus

import (
	"strings"

	"monad-trader/internal/models"
)

// highRiskTerms are the keywords that classify a free-text risk
// assessment as HIGH.
var highRiskTerms = []string{"high", "volatile", "unstable", "risky", "dangerous"}

// AssessRiskLevel classifies a free-text risk assessment. Absent text
// defaults to LOW.
func AssessRiskLevel(riskAssessment string) models.RiskLevel {
	lowered := strings.ToLower(riskAssessment)
	for _, term := range highRiskTerms {
		if strings.Contains(lowered, term) {
			return models.RiskHigh
		}
	}
	return models.RiskLow
}

// CombineRiskAssessments merges risk texts from multiple sources: any
// high-risk signal dominates.
func CombineRiskAssessments(assessments ...string) string {
	for _, a := range assessments {
		lowered := strings.ToLower(a)
		if strings.Contains(lowered, "high") || strings.Contains(lowered, "volatile") {
			return string(models.RiskHigh)
		}
	}
	return string(models.RiskLow)
}
