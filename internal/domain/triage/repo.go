package triage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TurnLogEntry is the audit record of one triage decision.
type TurnLogEntry struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	TurnIndex int       `json:"turn_index"`
	PhaseFrom Phase     `json:"phase_from"`
	PhaseTo   Phase     `json:"phase_to"`
	Tier      Tier      `json:"tier"`
	PeakTier  Tier      `json:"peak_tier"`
	Symptom   *string   `json:"symptom,omitempty"`
	RedFlags  []string  `json:"red_flags"`
	Emergency bool      `json:"emergency"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnLogRepository stores the decision audit trail. Entries are written once
// and never used to rebuild a session.
type TurnLogRepository interface {
	Create(ctx context.Context, e *TurnLogEntry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*TurnLogEntry, int, error)
	ListEscalations(ctx context.Context, limit, offset int) ([]*TurnLogEntry, int, error)
}
