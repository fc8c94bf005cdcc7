package triage

import (
	"time"
)

// Phase is the current position in the scripted dialogue.
type Phase string

const (
	PhaseGreeting            Phase = "GREETING"
	PhaseAskedTimeline       Phase = "ASKED_TIMELINE"
	PhaseAskedConcerns       Phase = "ASKED_CONCERNS"
	PhaseGaveRecommendations Phase = "GAVE_RECOMMENDATIONS"
	PhaseClosing             Phase = "CLOSING"
	PhaseEmergency           Phase = "EMERGENCY"
	PhaseEnded               Phase = "ENDED"
)

var validPhases = map[Phase]bool{
	PhaseGreeting:            true,
	PhaseAskedTimeline:       true,
	PhaseAskedConcerns:       true,
	PhaseGaveRecommendations: true,
	PhaseClosing:             true,
	PhaseEmergency:           true,
	PhaseEnded:               true,
}

// Valid reports whether p is one of the known dialogue phases.
func (p Phase) Valid() bool {
	return validPhases[p]
}

// Tier is an urgency classification. Tiers are ordered from EMERGENT (most
// severe) to ADVICE_ONLY (least severe).
type Tier string

const (
	TierEmergent   Tier = "EMERGENT"
	TierUrgentHigh Tier = "URGENT_HIGH"
	TierUrgentLow  Tier = "URGENT_LOW"
	TierNonUrgent  Tier = "NON_URGENT"
	TierAdviceOnly Tier = "ADVICE_ONLY"
)

var tierRank = map[Tier]int{
	TierEmergent:   0,
	TierUrgentHigh: 1,
	TierUrgentLow:  2,
	TierNonUrgent:  3,
	TierAdviceOnly: 4,
}

// Rank returns the position of t in severity order, 0 being the most severe.
// Unknown or empty tiers rank below ADVICE_ONLY.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierRank)
}

// MoreSevereThan reports whether t is strictly more severe than other.
func (t Tier) MoreSevereThan(other Tier) bool {
	return t.Rank() < other.Rank()
}

// MostSevere returns whichever of a and b is more severe.
func MostSevere(a, b Tier) Tier {
	if b.MoreSevereThan(a) {
		return b
	}
	return a
}

// Progression describes how a symptom is trending.
type Progression string

const (
	ProgressionBetter Progression = "better"
	ProgressionWorse  Progression = "worse"
	ProgressionSame   Progression = "same"
)

// Risk factor and red flag tags.
const (
	RiskFactorAsthma       = "asthma"
	RiskFactorHeartDisease = "heart_disease"

	RedFlagAsthmaExacerbation = "asthma_exacerbation_possible"
)

// Vitals is the most recent vital-signs reading for the patient.
type Vitals struct {
	HeartRate   float64 `json:"heart_rate"`
	Temperature float64 `json:"temperature"`
}

// History is the patient's known medical history.
type History struct {
	Conditions []string `json:"conditions"`
}

// PatientContext is the running record of everything learned about the
// patient in one session. Values are passed by snapshot; use Clone before
// mutating a context owned by someone else.
type PatientContext struct {
	Age         *int         `json:"age,omitempty"`
	RiskFactors []string     `json:"risk_factors"`
	Symptom     *string      `json:"symptom,omitempty"`
	Severity    *int         `json:"severity,omitempty"`
	Progression *Progression `json:"progression,omitempty"`
	RedFlags    []string     `json:"red_flags"`
	Vitals      *Vitals      `json:"vitals,omitempty"`
	History     *History     `json:"history,omitempty"`
	TriageTier  Tier         `json:"triage_tier,omitempty"`
}

// Clone returns a deep copy of c.
func (c PatientContext) Clone() PatientContext {
	out := PatientContext{TriageTier: c.TriageTier}
	if c.Age != nil {
		v := *c.Age
		out.Age = &v
	}
	if c.Symptom != nil {
		v := *c.Symptom
		out.Symptom = &v
	}
	if c.Severity != nil {
		v := *c.Severity
		out.Severity = &v
	}
	if c.Progression != nil {
		v := *c.Progression
		out.Progression = &v
	}
	if c.Vitals != nil {
		v := *c.Vitals
		out.Vitals = &v
	}
	if c.History != nil {
		out.History = &History{Conditions: append([]string(nil), c.History.Conditions...)}
	}
	out.RiskFactors = append([]string{}, c.RiskFactors...)
	out.RedFlags = append([]string{}, c.RedFlags...)
	return out
}

// HasRiskFactor reports whether tag is among the context's risk factors.
func (c PatientContext) HasRiskFactor(tag string) bool {
	return containsString(c.RiskFactors, tag)
}

// HasRedFlag reports whether tag has been raised on the context.
func (c PatientContext) HasRedFlag(tag string) bool {
	return containsString(c.RedFlags, tag)
}

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of the session transcript.
type ConversationTurn struct {
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
}

// TurnInput is everything the engine needs to process one user utterance.
// Symptom is the symptom label the dialogue is currently about, as returned
// in the previous TurnOutput. It is nil before the first complaint and after a
// restart.
type TurnInput struct {
	UserText     string         `json:"user_text"`
	CurrentPhase Phase          `json:"current_phase"`
	Symptom      *string        `json:"symptom,omitempty"`
	Context      PatientContext `json:"context"`
}

// TurnOutput is the engine's answer for one user utterance.
type TurnOutput struct {
	ResponseText   string         `json:"response_text"`
	NextPhase      Phase          `json:"next_phase"`
	Symptom        *string        `json:"symptom,omitempty"`
	UpdatedContext PatientContext `json:"updated_context"`
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// appendUnique appends each value not already present in list. The input
// slice is never modified in place.
func appendUnique(list []string, values ...string) []string {
	out := append([]string{}, list...)
	for _, v := range values {
		if !containsString(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func stringPtr(s string) *string { return &s }
