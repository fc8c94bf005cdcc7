package triage

// Score cut-offs for tiers below the red-flag rules.
const (
	urgentHighScore = 8
	urgentLowScore  = 5
	nonUrgentScore  = 2
)

// Classify assigns an urgency tier to the patient given the latest utterance.
// Rules are applied in strict precedence: emergency language, the asthma
// exacerbation flag, any other red flag, then the numeric risk score.
func Classify(c PatientContext, latestUtterance string) Tier {
	if IsEmergencyUtterance(latestUtterance) {
		return TierEmergent
	}
	if c.HasRedFlag(RedFlagAsthmaExacerbation) {
		return TierUrgentHigh
	}
	if len(c.RedFlags) > 0 {
		return TierEmergent
	}
	return tierForScore(ComputeRiskScore(c))
}

func tierForScore(score int) Tier {
	switch {
	case score >= urgentHighScore:
		return TierUrgentHigh
	case score >= urgentLowScore:
		return TierUrgentLow
	case score >= nonUrgentScore:
		return TierNonUrgent
	default:
		return TierAdviceOnly
	}
}
