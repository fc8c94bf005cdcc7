package triage

import (
	"context"
	"fmt"
	"strings"
)

// Accumulator folds each user utterance into the running patient context.
type Accumulator struct {
	provider ClinicalDataProvider
}

// NewAccumulator returns an Accumulator backed by provider. A nil provider
// falls back to StubClinicalProvider.
func NewAccumulator(provider ClinicalDataProvider) *Accumulator {
	if provider == nil {
		provider = StubClinicalProvider{}
	}
	return &Accumulator{provider: provider}
}

// Accumulate returns a new context with the signals from text merged into
// prior. prior is never modified.
//
// A provider failure leaves vitals and history unset so the lookup is retried
// on the next turn. The returned context is complete and classified in that
// case; the error is informational.
func (a *Accumulator) Accumulate(ctx context.Context, prior PatientContext, text string) (PatientContext, error) {
	return a.accumulate(ctx, prior, text, true)
}

// AccumulateInPhase is Accumulate for a reply given in phase. Severity and
// progression are only read from GREETING and ASKED_TIMELINE replies.
func (a *Accumulator) AccumulateInPhase(ctx context.Context, prior PatientContext, phase Phase, text string) (PatientContext, error) {
	return a.accumulate(ctx, prior, text, describesComplaint(phase))
}

func describesComplaint(phase Phase) bool {
	return phase == PhaseGreeting || phase == PhaseAskedTimeline
}

func (a *Accumulator) accumulate(ctx context.Context, prior PatientContext, text string, scanCourse bool) (PatientContext, error) {
	next := prior.Clone()

	if next.Symptom == nil {
		next.Symptom = stringPtr(ExtractSymptomLabel(text))
	}
	if scanCourse && next.Severity == nil {
		if sev, ok := ExtractSeverity(text); ok {
			next.Severity = &sev
		}
	}
	if scanCourse && next.Progression == nil {
		if prog, ok := ExtractProgression(text); ok {
			next.Progression = &prog
		}
	}

	var fetchErr error
	if next.Vitals == nil || next.History == nil {
		rec, err := a.provider.FetchHistoryAndVitals(ctx)
		if err != nil {
			fetchErr = fmt.Errorf("fetch clinical data: %w", err)
		} else {
			vitals := rec.Vitals
			history := History{Conditions: append([]string(nil), rec.History.Conditions...)}
			next.Vitals = &vitals
			next.History = &history
			next.RiskFactors = appendUnique(next.RiskFactors, history.Conditions...)
		}
	}

	if next.HasRiskFactor(RiskFactorAsthma) && strings.Contains(strings.ToLower(text), "asthma") {
		next.RedFlags = appendUnique(next.RedFlags, RedFlagAsthmaExacerbation)
	}

	next.TriageTier = Classify(next, text)
	return next, fetchErr
}
