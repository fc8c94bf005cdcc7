package triage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type turnLogRepoPG struct{ db queryable }

func NewTurnLogRepoPG(pool *pgxpool.Pool) TurnLogRepository { return &turnLogRepoPG{db: pool} }

const turnLogCols = `id, session_id, turn_index, phase_from, phase_to, tier, peak_tier,
	symptom, red_flags, emergency, created_at`

func (r *turnLogRepoPG) scan(row pgx.Row) (*TurnLogEntry, error) {
	var e TurnLogEntry
	var phaseFrom, phaseTo, tier, peak string
	err := row.Scan(&e.ID, &e.SessionID, &e.TurnIndex, &phaseFrom, &phaseTo, &tier, &peak,
		&e.Symptom, &e.RedFlags, &e.Emergency, &e.CreatedAt)
	e.PhaseFrom, e.PhaseTo = Phase(phaseFrom), Phase(phaseTo)
	e.Tier, e.PeakTier = Tier(tier), Tier(peak)
	if e.RedFlags == nil {
		e.RedFlags = []string{}
	}
	return &e, err
}

func (r *turnLogRepoPG) Create(ctx context.Context, e *TurnLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	redFlags := e.RedFlags
	if redFlags == nil {
		redFlags = []string{}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO triage_turn (id, session_id, turn_index, phase_from, phase_to, tier, peak_tier,
			symptom, red_flags, emergency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at`,
		e.ID, e.SessionID, e.TurnIndex, string(e.PhaseFrom), string(e.PhaseTo), string(e.Tier), string(e.PeakTier),
		e.Symptom, redFlags, e.Emergency,
	).Scan(&e.CreatedAt)
}

func (r *turnLogRepoPG) ListBySession(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*TurnLogEntry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM triage_turn WHERE session_id = $1`, sessionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+turnLogCols+` FROM triage_turn WHERE session_id = $1
		ORDER BY turn_index LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *turnLogRepoPG) ListEscalations(ctx context.Context, limit, offset int) ([]*TurnLogEntry, int, error) {
	const where = ` WHERE emergency OR tier = 'EMERGENT'`
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM triage_turn`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+turnLogCols+` FROM triage_turn`+where+`
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return r.collect(rows, total)
}

func (r *turnLogRepoPG) collect(rows pgx.Rows, total int) ([]*TurnLogEntry, int, error) {
	defer rows.Close()
	items := []*TurnLogEntry{}
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
