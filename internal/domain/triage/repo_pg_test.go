package triage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assignScan copies vals into the Scan destinations. A nil value zeroes the
// destination, the way pgx scans NULL.
func assignScan(dest, vals []interface{}) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d).Elem()
		if vals[i] == nil {
			dv.Set(reflect.Zero(dv.Type()))
			continue
		}
		dv.Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

type fakeRow struct {
	vals []interface{}
	err  error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	return assignScan(dest, r.vals)
}

type fakeRows struct {
	data    [][]interface{}
	pos     int
	scanErr error
	err     error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]interface{}, error)               { return r.data[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return assignScan(dest, r.data[r.pos-1])
}

type fakeDB struct {
	row      fakeRow
	rows     *fakeRows
	queryErr error
	sqls     []string
	args     [][]interface{}
}

func (f *fakeDB) record(sql string, args []interface{}) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.record(sql, args)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.record(sql, args)
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.record(sql, args)
	return pgconn.CommandTag{}, nil
}

func turnLogRow(idx int, tier Tier, symptom *string, redFlags []string, emergency bool, at time.Time) []interface{} {
	var sym interface{}
	if symptom != nil {
		sym = symptom
	}
	var flags interface{}
	if redFlags != nil {
		flags = redFlags
	}
	return []interface{}{
		uuid.New(), uuid.New(), idx, string(PhaseAskedConcerns), string(PhaseGaveRecommendations),
		string(tier), string(tier), sym, flags, emergency, at,
	}
}

func TestTurnLogRepoPG_ListBySession(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]interface{}{
		turnLogRow(0, TierNonUrgent, nil, nil, false, at),
		turnLogRow(1, TierUrgentHigh, stringPtr("asthma symptoms"), []string{RedFlagAsthmaExacerbation}, false, at.Add(time.Minute)),
	}}
	db := &fakeDB{row: fakeRow{vals: []interface{}{7}}, rows: rows}
	repo := &turnLogRepoPG{db: db}
	sessionID := uuid.New()

	items, total, err := repo.ListBySession(context.Background(), sessionID, 20, 5)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if total != 7 || len(items) != 2 {
		t.Fatalf("total=%d len=%d, want 7 and 2", total, len(items))
	}
	if !rows.closed {
		t.Error("rows were not closed")
	}

	first := items[0]
	if first.RedFlags == nil || len(first.RedFlags) != 0 {
		t.Errorf("NULL red_flags scanned as %#v, want an empty slice", first.RedFlags)
	}
	if first.Symptom != nil {
		t.Errorf("Symptom = %q, want nil", *first.Symptom)
	}
	if first.PhaseFrom != PhaseAskedConcerns || first.PhaseTo != PhaseGaveRecommendations {
		t.Errorf("phases = %s -> %s", first.PhaseFrom, first.PhaseTo)
	}

	second := items[1]
	if second.Tier != TierUrgentHigh || second.PeakTier != TierUrgentHigh {
		t.Errorf("tiers = %s/%s, want URGENT_HIGH", second.Tier, second.PeakTier)
	}
	if second.Symptom == nil || *second.Symptom != "asthma symptoms" {
		t.Errorf("Symptom = %v, want asthma symptoms", second.Symptom)
	}
	if len(second.RedFlags) != 1 || second.RedFlags[0] != RedFlagAsthmaExacerbation {
		t.Errorf("RedFlags = %v", second.RedFlags)
	}
	if !second.CreatedAt.Equal(at.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v", second.CreatedAt)
	}

	if len(db.args) != 2 {
		t.Fatalf("queries = %d, want count and select", len(db.args))
	}
	if db.args[0][0] != sessionID {
		t.Errorf("count arg = %v, want the session id", db.args[0][0])
	}
	if got := db.args[1]; got[0] != sessionID || got[1] != 20 || got[2] != 5 {
		t.Errorf("select args = %v, want session id, 20, 5", got)
	}
}

func TestTurnLogRepoPG_ListEscalationsEmpty(t *testing.T) {
	db := &fakeDB{row: fakeRow{vals: []interface{}{0}}, rows: &fakeRows{}}
	repo := &turnLogRepoPG{db: db}

	items, total, err := repo.ListEscalations(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListEscalations: %v", err)
	}
	if items == nil || len(items) != 0 || total != 0 {
		t.Errorf("items=%#v total=%d, want an empty non-nil slice", items, total)
	}
	if !strings.Contains(db.sqls[1], "EMERGENT") || !strings.Contains(db.sqls[1], "ORDER BY created_at DESC") {
		t.Errorf("unexpected escalation query: %s", db.sqls[1])
	}
}

func TestTurnLogRepoPG_ListErrors(t *testing.T) {
	boom := errors.New("connection reset")
	at := time.Now()

	tests := []struct {
		name string
		db   *fakeDB
	}{
		{"count", &fakeDB{row: fakeRow{err: boom}}},
		{"query", &fakeDB{row: fakeRow{vals: []interface{}{1}}, queryErr: boom}},
		{"scan", &fakeDB{row: fakeRow{vals: []interface{}{1}}, rows: &fakeRows{
			data: [][]interface{}{turnLogRow(0, TierNonUrgent, nil, nil, false, at)}, scanErr: boom,
		}}},
		{"rows", &fakeDB{row: fakeRow{vals: []interface{}{1}}, rows: &fakeRows{err: boom}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &turnLogRepoPG{db: tt.db}
			items, total, err := repo.ListBySession(context.Background(), uuid.New(), 10, 0)
			if !errors.Is(err, boom) {
				t.Fatalf("err = %v, want %v", err, boom)
			}
			if items != nil || total != 0 {
				t.Errorf("items=%v total=%d, want nil and 0 on error", items, total)
			}
		})
	}
}

func TestTurnLogRepoPG_Create(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{vals: []interface{}{at}}}
	repo := &turnLogRepoPG{db: db}

	e := &TurnLogEntry{SessionID: uuid.New(), TurnIndex: 2, PhaseFrom: PhaseGreeting, PhaseTo: PhaseEmergency, Tier: TierEmergent, PeakTier: TierEmergent, Emergency: true}
	if err := repo.Create(context.Background(), e); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ID == uuid.Nil {
		t.Error("expected an ID to be assigned")
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, at)
	}

	args := db.args[0]
	if len(args) != 10 {
		t.Fatalf("args = %d, want 10", len(args))
	}
	if flags, ok := args[8].([]string); !ok || flags == nil {
		t.Errorf("red_flags arg = %#v, want a non-nil []string", args[8])
	}
	if args[3] != "GREETING" || args[4] != "EMERGENCY" || args[5] != "EMERGENT" {
		t.Errorf("enum args = %v %v %v", args[3], args[4], args[5])
	}
}
