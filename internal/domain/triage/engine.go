package triage

import (
	"context"
)

// Engine runs one complete triage turn: dialogue control followed by context
// accumulation and classification. It holds no per-session state.
type Engine struct {
	acc *Accumulator
}

// NewEngine returns an Engine that looks up clinical data through provider.
// A nil provider uses StubClinicalProvider.
func NewEngine(provider ClinicalDataProvider) *Engine {
	return &Engine{acc: NewAccumulator(provider)}
}

// Process handles a single user utterance. The output is always complete; a
// non-nil error only reports a clinical data lookup failure.
//
// The dialogue symptom comes from in.Symptom only. Context.Symptom is the
// session's first extraction and is never cleared, so it cannot stand in for
// the dialogue symptom after a restart; callers echo TurnOutput.Symptom back.
func (e *Engine) Process(ctx context.Context, in TurnInput) (TurnOutput, error) {
	res := Step(in.CurrentPhase, in.UserText, in.Symptom)
	updated, err := e.acc.AccumulateInPhase(ctx, in.Context, in.CurrentPhase, in.UserText)

	return TurnOutput{
		ResponseText:   res.Text,
		NextPhase:      res.NextPhase,
		Symptom:        res.Symptom,
		UpdatedContext: updated,
	}, err
}
