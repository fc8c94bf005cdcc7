package triage

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyUtterance   = errors.New("utterance is empty")
	ErrUtteranceTooLong = errors.New("utterance is too long")
)

// DefaultMaxUtteranceChars bounds a single user message when no limit is
// configured.
const DefaultMaxUtteranceChars = 2000

// Escalation is published whenever a turn lands in EMERGENCY or is classified
// EMERGENT.
type Escalation struct {
	SessionID uuid.UUID `json:"session_id"`
	TurnIndex int       `json:"turn_index"`
	Phase     Phase     `json:"phase"`
	Tier      Tier      `json:"tier"`
	PeakTier  Tier      `json:"peak_tier"`
	Symptom   *string   `json:"symptom,omitempty"`
	RedFlags  []string  `json:"red_flags"`
	Utterance string    `json:"utterance"`
	At        time.Time `json:"at"`
}

// EscalationPublisher delivers escalations to clinicians.
type EscalationPublisher interface {
	PublishEscalation(ctx context.Context, e Escalation) error
}

// TurnResult is the outcome of a session turn.
type TurnResult struct {
	Output  TurnOutput `json:"output"`
	Session *Session   `json:"session"`
}

type Service struct {
	store     SessionStore
	engine    *Engine
	turnLog   TurnLogRepository
	publisher EscalationPublisher
	maxChars  int
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(store SessionStore, engine *Engine, logger zerolog.Logger) *Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Service{
		store:    store,
		engine:   engine,
		maxChars: DefaultMaxUtteranceChars,
		logger:   logger,
		now:      time.Now,
	}
}

// SetTurnLog attaches an optional audit repository.
func (s *Service) SetTurnLog(repo TurnLogRepository) {
	s.turnLog = repo
}

// SetPublisher attaches an optional escalation publisher.
func (s *Service) SetPublisher(p EscalationPublisher) {
	s.publisher = p
}

// SetMaxUtteranceChars overrides the per-message length limit. Values below 1
// are ignored.
func (s *Service) SetMaxUtteranceChars(n int) {
	if n > 0 {
		s.maxChars = n
	}
}

// TurnLogEnabled reports whether turn decisions are being persisted.
func (s *Service) TurnLogEnabled() bool {
	return s.turnLog != nil
}

func (s *Service) validateUtterance(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyUtterance
	}
	if utf8.RuneCountInString(text) > s.maxChars {
		return "", ErrUtteranceTooLong
	}
	return text, nil
}

// -- Sessions --

func (s *Service) StartSession(ctx context.Context) (*Session, error) {
	sess := NewSession(s.now())
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", sess.ID.String()).Msg("session started")
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *Service) ResetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		sess.Reset(s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", id.String()).Msg("session reset")
	return sess, nil
}

func (s *Service) EndSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("session_id", id.String()).Msg("session ended")
	return nil
}

// SweepIdle removes sessions idle for longer than ttl.
func (s *Service) SweepIdle(ctx context.Context, ttl time.Duration) (int, error) {
	n, err := s.store.Sweep(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int("removed", n).Msg("idle sessions swept")
	}
	return n, nil
}

// -- Turns --

// Turn processes one user utterance within a session. Turns on the same
// session are serialized by the store.
func (s *Service) Turn(ctx context.Context, id uuid.UUID, text string) (*TurnResult, error) {
	text, err := s.validateUtterance(text)
	if err != nil {
		return nil, err
	}

	var (
		out  TurnOutput
		from Phase
	)
	sess, err := s.store.Update(ctx, id, func(sess *Session) error {
		from = sess.Phase
		var procErr error
		out, procErr = s.engine.Process(ctx, sess.Input(text))
		if procErr != nil {
			s.logger.Error().Err(procErr).Str("session_id", id.String()).Msg("clinical data lookup failed")
		}
		sess.Apply(text, out, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	tier := out.UpdatedContext.TriageTier
	s.logger.Info().
		Str("session_id", id.String()).
		Str("phase_from", string(from)).
		Str("phase_to", string(out.NextPhase)).
		Str("tier", string(tier)).
		Str("peak_tier", string(sess.PeakTier)).
		Str("symptom", derefString(out.Symptom)).
		Msg("triage turn")

	entry := &TurnLogEntry{
		SessionID: sess.ID,
		TurnIndex: sess.Turns,
		PhaseFrom: from,
		PhaseTo:   out.NextPhase,
		Tier:      tier,
		PeakTier:  sess.PeakTier,
		Symptom:   out.Symptom,
		RedFlags:  append([]string{}, out.UpdatedContext.RedFlags...),
		Emergency: out.NextPhase == PhaseEmergency,
		CreatedAt: sess.UpdatedAt,
	}
	if s.turnLog != nil {
		if err := s.turnLog.Create(ctx, entry); err != nil {
			s.logger.Error().Err(err).Str("session_id", id.String()).Msg("write turn log")
		}
	}
	if (from != PhaseEmergency && entry.Emergency) || tier == TierEmergent {
		s.escalate(ctx, entry, text)
	}

	return &TurnResult{Output: out, Session: sess}, nil
}

func (s *Service) escalate(ctx context.Context, entry *TurnLogEntry, text string) {
	s.logger.Warn().
		Str("session_id", entry.SessionID.String()).
		Str("phase", string(entry.PhaseTo)).
		Str("tier", string(entry.Tier)).
		Strs("red_flags", entry.RedFlags).
		Msg("triage escalation")
	if s.publisher == nil {
		return
	}
	esc := Escalation{
		SessionID: entry.SessionID,
		TurnIndex: entry.TurnIndex,
		Phase:     entry.PhaseTo,
		Tier:      entry.Tier,
		PeakTier:  entry.PeakTier,
		Symptom:   entry.Symptom,
		RedFlags:  entry.RedFlags,
		Utterance: text,
		At:        entry.CreatedAt,
	}
	if err := s.publisher.PublishEscalation(ctx, esc); err != nil {
		s.logger.Error().Err(err).Str("session_id", entry.SessionID.String()).Msg("publish escalation")
	}
}

// Step runs a single stateless turn for callers that keep their own state.
func (s *Service) Step(ctx context.Context, in TurnInput) (TurnOutput, error) {
	text, err := s.validateUtterance(in.UserText)
	if err != nil {
		return TurnOutput{}, err
	}
	in.UserText = text
	out, err := s.engine.Process(ctx, in)
	if err != nil {
		s.logger.Error().Err(err).Msg("clinical data lookup failed")
	}
	return out, nil
}

// -- Audit --

func (s *Service) ListTurnLog(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*TurnLogEntry, int, error) {
	if s.turnLog == nil {
		return []*TurnLogEntry{}, 0, nil
	}
	return s.turnLog.ListBySession(ctx, sessionID, limit, offset)
}

func (s *Service) ListEscalations(ctx context.Context, limit, offset int) ([]*TurnLogEntry, int, error) {
	if s.turnLog == nil {
		return []*TurnLogEntry{}, 0, nil
	}
	return s.turnLog.ListEscalations(ctx, limit, offset)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
