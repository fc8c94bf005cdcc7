package triage

import (
	"context"
	"errors"
	"testing"
)

type countingProvider struct {
	calls int
	fail  int // number of initial calls that return err
	err   error
}

func (p *countingProvider) FetchHistoryAndVitals(ctx context.Context) (ClinicalRecord, error) {
	p.calls++
	if p.calls <= p.fail {
		return ClinicalRecord{}, p.err
	}
	return StubClinicalProvider{}.FetchHistoryAndVitals(ctx)
}

func TestAccumulate_FirstTurn(t *testing.T) {
	acc := NewAccumulator(nil)
	got, err := acc.Accumulate(context.Background(), PatientContext{}, "I have an asthma flare, about 6/10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symptom == nil || *got.Symptom != "asthma symptoms" {
		t.Errorf("Symptom = %v, want asthma symptoms", got.Symptom)
	}
	if got.Severity == nil || *got.Severity != 6 {
		t.Errorf("Severity = %v, want 6", got.Severity)
	}
	if got.Vitals == nil || got.Vitals.HeartRate != 92 || got.Vitals.Temperature != 38.1 {
		t.Errorf("Vitals = %+v, want stub vitals", got.Vitals)
	}
	if !got.HasRiskFactor(RiskFactorAsthma) {
		t.Error("expected asthma risk factor from history")
	}
	if !got.HasRedFlag(RedFlagAsthmaExacerbation) {
		t.Error("expected asthma exacerbation flag")
	}
	if got.TriageTier != TierUrgentHigh {
		t.Errorf("TriageTier = %s, want URGENT_HIGH", got.TriageTier)
	}
}

func TestAccumulate_NoFlagWithoutMention(t *testing.T) {
	acc := NewAccumulator(nil)
	got, err := acc.Accumulate(context.Background(), PatientContext{}, "my head hurts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.RedFlags) != 0 {
		t.Errorf("RedFlags = %v, want none", got.RedFlags)
	}
	if got.TriageTier != TierNonUrgent {
		t.Errorf("TriageTier = %s, want NON_URGENT", got.TriageTier)
	}
}

func TestAccumulate_FetchesOncePerSession(t *testing.T) {
	p := &countingProvider{}
	acc := NewAccumulator(p)
	ctx := context.Background()

	c := PatientContext{}
	for _, text := range []string{"my back hurts", "it's getting worse", "7/10"} {
		var err error
		c, err = acc.Accumulate(ctx, c, text)
		if err != nil {
			t.Fatalf("Accumulate(%q): %v", text, err)
		}
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
}

func TestAccumulate_FirstValueWins(t *testing.T) {
	acc := NewAccumulator(nil)
	ctx := context.Background()

	c, _ := acc.Accumulate(ctx, PatientContext{}, "my back hurts, 4/10 and getting worse")
	c, _ = acc.Accumulate(ctx, c, "now a headache too, 9/10, a bit better")

	if *c.Symptom != "back pain" {
		t.Errorf("Symptom = %q, want back pain", *c.Symptom)
	}
	if *c.Severity != 4 {
		t.Errorf("Severity = %d, want 4", *c.Severity)
	}
	if *c.Progression != ProgressionWorse {
		t.Errorf("Progression = %s, want worse", *c.Progression)
	}
}

func TestAccumulate_DoesNotMutatePrior(t *testing.T) {
	acc := NewAccumulator(nil)
	prior := PatientContext{RiskFactors: []string{}, RedFlags: []string{}}

	if _, err := acc.Accumulate(context.Background(), prior, "asthma again, 8/10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prior.Symptom != nil || prior.Severity != nil || prior.Vitals != nil {
		t.Error("prior context was modified")
	}
	if len(prior.RiskFactors) != 0 || len(prior.RedFlags) != 0 {
		t.Error("prior slices were modified")
	}
}

func TestAccumulate_RedFlagNotDuplicated(t *testing.T) {
	acc := NewAccumulator(nil)
	ctx := context.Background()

	c, _ := acc.Accumulate(ctx, PatientContext{}, "my asthma is acting up")
	c, _ = acc.Accumulate(ctx, c, "the asthma is still bad")
	if len(c.RedFlags) != 1 {
		t.Errorf("RedFlags = %v, want one entry", c.RedFlags)
	}
	if len(c.RiskFactors) != 1 {
		t.Errorf("RiskFactors = %v, want one entry", c.RiskFactors)
	}
}

func TestAccumulate_ProviderFailure(t *testing.T) {
	boom := errors.New("ehr unavailable")
	p := &countingProvider{fail: 1, err: boom}
	acc := NewAccumulator(p)
	ctx := context.Background()

	c, err := acc.Accumulate(ctx, PatientContext{}, "my knee hurts")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
	if c.Vitals != nil || c.History != nil {
		t.Error("vitals and history should stay unset after a failed lookup")
	}
	if c.TriageTier != TierAdviceOnly {
		t.Errorf("TriageTier = %s, want ADVICE_ONLY", c.TriageTier)
	}

	c, err = acc.Accumulate(ctx, c, "still hurts")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.Vitals == nil || p.calls != 2 {
		t.Errorf("expected a successful retry, calls = %d", p.calls)
	}
}

func TestAccumulator_CourseReadOnlyFromComplaintPhases(t *testing.T) {
	acc := NewAccumulator(nil)
	ctx := context.Background()
	text := "ok, I'll feel better soon, 3/10"

	tests := []struct {
		phase Phase
		want  bool
	}{
		{PhaseGreeting, true},
		{PhaseAskedTimeline, true},
		{PhaseAskedConcerns, false},
		{PhaseGaveRecommendations, false},
		{PhaseClosing, false},
		{PhaseEmergency, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			c, err := acc.AccumulateInPhase(ctx, PatientContext{}, tt.phase, text)
			if err != nil {
				t.Fatalf("AccumulateInPhase: %v", err)
			}
			if got := c.Progression != nil; got != tt.want {
				t.Errorf("progression set = %v, want %v", got, tt.want)
			}
			if got := c.Severity != nil; got != tt.want {
				t.Errorf("severity set = %v, want %v", got, tt.want)
			}
			if c.Symptom == nil {
				t.Error("symptom should be extracted in every phase")
			}
		})
	}
}
