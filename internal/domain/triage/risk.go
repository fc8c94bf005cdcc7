package triage

// Risk score thresholds and weights.
const (
	severityHighThreshold     = 7
	severityModerateThreshold = 4
	tachycardiaThreshold      = 100.0
	feverThresholdCelsius     = 38.5
)

// ComputeRiskScore sums the weighted risk factors present on c. Every
// contribution is non-negative and absent fields contribute nothing.
func ComputeRiskScore(c PatientContext) int {
	score := 0

	if c.Severity != nil {
		switch {
		case *c.Severity >= severityHighThreshold:
			score += 3
		case *c.Severity >= severityModerateThreshold:
			score += 2
		}
	}

	if c.Progression != nil && *c.Progression == ProgressionWorse {
		score += 2
	}

	if c.HasRiskFactor(RiskFactorAsthma) {
		score += 2
	}
	if c.HasRiskFactor(RiskFactorHeartDisease) {
		score += 3
	}

	if c.Vitals != nil {
		if c.Vitals.HeartRate > tachycardiaThreshold {
			score += 2
		}
		if c.Vitals.Temperature > feverThresholdCelsius {
			score += 1
		}
	}

	return score
}
