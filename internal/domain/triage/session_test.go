package triage

import (
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession(now)

	if s.Phase != PhaseGreeting {
		t.Errorf("Phase = %s, want GREETING", s.Phase)
	}
	if len(s.Transcript) != 1 || s.Transcript[0].Text != GreetingMessage || s.Transcript[0].Role != RoleAssistant {
		t.Errorf("Transcript = %+v, want the greeting only", s.Transcript)
	}
	if !s.CreatedAt.Equal(now) || !s.UpdatedAt.Equal(now) {
		t.Error("timestamps not set")
	}
}

func TestSession_ApplyTracksPeakTier(t *testing.T) {
	now := time.Now()
	s := NewSession(now)

	s.Apply("chest pain", TurnOutput{
		ResponseText:   EmergencyScript,
		NextPhase:      PhaseEmergency,
		UpdatedContext: PatientContext{TriageTier: TierEmergent},
	}, now)
	s.Apply("ok", TurnOutput{
		ResponseText:   EmergencyHoldMessage,
		NextPhase:      PhaseEmergency,
		UpdatedContext: PatientContext{TriageTier: TierNonUrgent},
	}, now)

	if s.PeakTier != TierEmergent {
		t.Errorf("PeakTier = %s, want EMERGENT", s.PeakTier)
	}
	if s.Context.TriageTier != TierNonUrgent {
		t.Errorf("Context.TriageTier = %s, want the latest turn's tier", s.Context.TriageTier)
	}
	if s.Turns != 2 || len(s.Transcript) != 5 {
		t.Errorf("Turns = %d, transcript = %d, want 2 and 5", s.Turns, len(s.Transcript))
	}
	if s.Transcript[1].Role != RoleUser || s.Transcript[1].Phase != PhaseGreeting {
		t.Errorf("user turn recorded as %+v", s.Transcript[1])
	}
}

func TestSession_Reset(t *testing.T) {
	start := time.Now()
	s := NewSession(start)
	id := s.ID
	s.Apply("I have a fever", TurnOutput{
		NextPhase:      PhaseAskedTimeline,
		Symptom:        stringPtr("fever"),
		UpdatedContext: PatientContext{Symptom: stringPtr("fever"), TriageTier: TierNonUrgent},
	}, start)

	later := start.Add(time.Minute)
	s.Reset(later)

	if s.ID != id {
		t.Error("Reset must keep the session ID")
	}
	if s.Phase != PhaseGreeting || s.Symptom != nil || s.Context.Symptom != nil {
		t.Errorf("state not cleared: %+v", s)
	}
	if s.PeakTier != "" || s.Turns != 0 || len(s.Transcript) != 1 {
		t.Errorf("counters not cleared: peak=%q turns=%d transcript=%d", s.PeakTier, s.Turns, len(s.Transcript))
	}
	if !s.UpdatedAt.Equal(later) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession(time.Now())
	s.Symptom = stringPtr("fever")
	s.Context.RedFlags = []string{"x"}

	c := s.Clone()
	*c.Symptom = "cough"
	c.Context.RedFlags[0] = "y"
	c.Transcript[0].Text = "changed"

	if *s.Symptom != "fever" || s.Context.RedFlags[0] != "x" || s.Transcript[0].Text != GreetingMessage {
		t.Error("Clone shares state with the original")
	}
}
