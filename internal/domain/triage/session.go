package triage

import (
	"time"

	"github.com/google/uuid"
)

// Session is one conversation from greeting to end or reset. It owns exactly
// one PatientContext and one current Phase.
type Session struct {
	ID         uuid.UUID          `json:"id"`
	Phase      Phase              `json:"phase"`
	Symptom    *string            `json:"symptom,omitempty"`
	Context    PatientContext     `json:"context"`
	Transcript []ConversationTurn `json:"transcript"`
	PeakTier   Tier               `json:"peak_tier,omitempty"`
	Turns      int                `json:"turns"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewSession returns a session in GREETING whose transcript holds the greeting.
func NewSession(now time.Time) *Session {
	s := &Session{ID: uuid.New(), CreatedAt: now}
	s.Reset(now)
	return s
}

// Reset discards everything learned so far and restarts the dialogue. The
// session keeps its ID.
func (s *Session) Reset(now time.Time) {
	s.Phase = PhaseGreeting
	s.Symptom = nil
	s.Context = PatientContext{RiskFactors: []string{}, RedFlags: []string{}}
	s.PeakTier = ""
	s.Turns = 0
	s.Transcript = []ConversationTurn{{Role: RoleAssistant, Text: GreetingMessage, Phase: PhaseGreeting, At: now}}
	s.UpdatedAt = now
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	out := *s
	if s.Symptom != nil {
		out.Symptom = stringPtr(*s.Symptom)
	}
	out.Context = s.Context.Clone()
	out.Transcript = append([]ConversationTurn(nil), s.Transcript...)
	return &out
}

// Input builds the engine input for the next user utterance.
func (s *Session) Input(text string) TurnInput {
	return TurnInput{UserText: text, CurrentPhase: s.Phase, Symptom: s.Symptom, Context: s.Context}
}

// Apply records a processed turn: the user utterance and assistant reply are
// appended to the transcript and the session state advances.
func (s *Session) Apply(userText string, out TurnOutput, now time.Time) {
	s.Transcript = append(s.Transcript,
		ConversationTurn{Role: RoleUser, Text: userText, Phase: s.Phase, At: now},
		ConversationTurn{Role: RoleAssistant, Text: out.ResponseText, Phase: out.NextPhase, At: now},
	)
	s.Phase = out.NextPhase
	s.Symptom = out.Symptom
	s.Context = out.UpdatedContext
	s.PeakTier = MostSevere(s.PeakTier, out.UpdatedContext.TriageTier)
	s.Turns++
	s.UpdatedAt = now
}
