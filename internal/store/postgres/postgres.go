package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New opens a connection, applies the schema, and returns a
// Postgres-backed store.
func New(dsn string) (store.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

// EnsureSchema creates the journal tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
            id TEXT PRIMARY KEY,
            audio_blob BYTEA NOT NULL,
            mime_type TEXT NOT NULL DEFAULT '',
            duration BIGINT NOT NULL,
            created_at TEXT NOT NULL,
            transcription TEXT,
            transcription_state TEXT NOT NULL DEFAULT 'idle'
        )`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_created_at ON recordings(created_at)`,
		`CREATE TABLE IF NOT EXISTS pending_schedule (
            slot INT PRIMARY KEY CHECK (slot = 1),
            payload JSONB NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS approved_entries (
            id TEXT PRIMARY KEY,
            entry_id TEXT NOT NULL,
            date TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            description TEXT NOT NULL,
            note TEXT,
            approved_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS confirmed_schedules (
            id TEXT PRIMARY KEY,
            date TEXT NOT NULL,
            payload JSONB NOT NULL,
            saved_at TEXT NOT NULL
        )`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

type pgStore struct{ db *sql.DB }

func (s *pgStore) Recordings() store.Recordings { return &recordings{db: s.db} }
func (s *pgStore) Pending() store.Pending       { return &pending{db: s.db} }
func (s *pgStore) Approved() store.Approved     { return &approved{db: s.db} }
func (s *pgStore) Confirmed() store.Confirmed   { return &confirmed{db: s.db} }

// HealthPing implements health.HealthPinger.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Recordings ---

type recordings struct{ db *sql.DB }

const recordingCols = `id, audio_blob, mime_type, duration, created_at, transcription, transcription_state`

func (r *recordings) Save(ctx context.Context, rec *model.Recording) (*model.Recording, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("recording id required: %w", model.ErrValidation)
	}
	state := rec.State
	if state == "" {
		state = model.TranscriptionIdle
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO recordings (`+recordingCols+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO UPDATE SET
            audio_blob=EXCLUDED.audio_blob,
            mime_type=EXCLUDED.mime_type,
            duration=EXCLUDED.duration,
            created_at=EXCLUDED.created_at,
            transcription=EXCLUDED.transcription,
            transcription_state=EXCLUDED.transcription_state`,
		rec.ID, rec.Audio, rec.MimeType, rec.DurationMs, rec.CreatedAt.String(),
		legacyOrNil(rec.Transcript), string(state))
	if err != nil {
		return nil, err
	}
	out := *rec
	out.State = state
	return &out, nil
}

func (r *recordings) List(ctx context.Context) ([]*model.Recording, error) {
	return r.query(ctx, `SELECT `+recordingCols+` FROM recordings ORDER BY created_at DESC`)
}

func (r *recordings) ListByDate(ctx context.Context, date string) ([]*model.Recording, error) {
	return r.query(ctx, `SELECT `+recordingCols+` FROM recordings
        WHERE created_at BETWEEN $1 AND $2 ORDER BY created_at DESC`,
		date+"T00:00:00", date+"T23:59:59")
}

func (r *recordings) query(ctx context.Context, q string, args ...interface{}) ([]*model.Recording, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Recording
	for rows.Next() {
		rec, err := scanRecording(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recordings) Get(ctx context.Context, id string) (*model.Recording, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordingCols+` FROM recordings WHERE id=$1`, id)
	rec, err := scanRecording(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recording %s: %w", id, model.ErrNotFound)
	}
	return rec, err
}

func (r *recordings) Update(ctx context.Context, id string, upd store.RecordingUpdate) (*model.Recording, error) {
	q := `UPDATE recordings SET `
	var args []interface{}
	n := 0
	add := func(col string, v interface{}) {
		n++
		if n > 1 {
			q += ", "
		}
		q += fmt.Sprintf("%s = $%d", col, n)
		args = append(args, v)
	}
	if upd.Transcript != nil {
		add("transcription", legacyOrNil(*upd.Transcript))
	}
	if upd.State != nil {
		add("transcription_state", string(*upd.State))
	}
	if n == 0 {
		return r.Get(ctx, id)
	}
	q += fmt.Sprintf(" WHERE id = $%d", n+1)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("recording %s: %w", id, model.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *recordings) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id=$1`, id)
	return err
}

func (r *recordings) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recordings`)
	return err
}

func scanRecording(scan func(...interface{}) error) (*model.Recording, error) {
	var rec model.Recording
	var createdAt string
	var transcription sql.NullString
	var state string
	if err := scan(&rec.ID, &rec.Audio, &rec.MimeType, &rec.DurationMs, &createdAt, &transcription, &state); err != nil {
		return nil, err
	}
	lt, err := model.ParseLocalTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = lt
	rec.State = model.TranscriptionState(state)
	if transcription.Valid {
		rec.Transcript = model.ParseLegacyTranscript(transcription.String)
	}
	return &rec, nil
}

func legacyOrNil(t model.Transcript) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Legacy()
}

// --- Pending schedule ---

type pending struct{ db *sql.DB }

func (p *pending) Put(ctx context.Context, s *model.PendingSchedule) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO pending_schedule (slot, payload) VALUES (1, $1)
        ON CONFLICT (slot) DO UPDATE SET payload=EXCLUDED.payload`, payload)
	return err
}

func (p *pending) Get(ctx context.Context) (*model.PendingSchedule, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM pending_schedule WHERE slot=1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending schedule: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var out model.PendingSchedule
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *pending) Delete(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM pending_schedule WHERE slot=1`)
	return err
}

// --- Approved entries ---

type approved struct{ db *sql.DB }

func (a *approved) Append(ctx context.Context, e *model.ApprovedEntry) (*model.ApprovedEntry, error) {
	_, err := a.db.ExecContext(ctx, `
        INSERT INTO approved_entries (id, entry_id, date, start_time, end_time, description, note, approved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.EntryID, e.Date, e.StartTime, e.EndTime, e.Description, e.Note, e.ApprovedAt)
	if err != nil {
		return nil, err
	}
	out := *e
	return &out, nil
}

func (a *approved) List(ctx context.Context) ([]*model.ApprovedEntry, error) {
	rows, err := a.db.QueryContext(ctx, `
        SELECT id, entry_id, date, start_time, end_time, description, note, approved_at
        FROM approved_entries ORDER BY approved_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ApprovedEntry
	for rows.Next() {
		var e model.ApprovedEntry
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Date, &e.StartTime, &e.EndTime, &e.Description, &e.Note, &e.ApprovedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (a *approved) Delete(ctx context.Context, id string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM approved_entries WHERE id=$1`, id)
	return err
}

// --- Confirmed schedules ---

type confirmed struct{ db *sql.DB }

type confirmedPayload struct {
	Entries             []model.ScheduleEntry       `json:"entries"`
	ConversationHistory []model.ConversationMessage `json:"conversationHistory"`
}

func (c *confirmed) Append(ctx context.Context, s *model.ConfirmedSchedule) (*model.ConfirmedSchedule, error) {
	payload, err := json.Marshal(confirmedPayload{Entries: s.Entries, ConversationHistory: s.ConversationHistory})
	if err != nil {
		return nil, err
	}
	_, err = c.db.ExecContext(ctx, `
        INSERT INTO confirmed_schedules (id, date, payload, saved_at) VALUES ($1,$2,$3,$4)`,
		s.ID, s.Date, payload, s.SavedAt)
	if err != nil {
		return nil, err
	}
	out := *s
	return &out, nil
}

func (c *confirmed) List(ctx context.Context) ([]*model.ConfirmedSchedule, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT id, date, payload, saved_at FROM confirmed_schedules ORDER BY saved_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ConfirmedSchedule
	for rows.Next() {
		s, err := scanConfirmed(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (c *confirmed) Get(ctx context.Context, id string) (*model.ConfirmedSchedule, error) {
	row := c.db.QueryRowContext(ctx, `
        SELECT id, date, payload, saved_at FROM confirmed_schedules WHERE id=$1`, id)
	s, err := scanConfirmed(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("confirmed schedule %s: %w", id, model.ErrNotFound)
	}
	return s, err
}

func (c *confirmed) Delete(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM confirmed_schedules WHERE id=$1`, id)
	return err
}

func scanConfirmed(scan func(...interface{}) error) (*model.ConfirmedSchedule, error) {
	var s model.ConfirmedSchedule
	var payload []byte
	if err := scan(&s.ID, &s.Date, &payload, &s.SavedAt); err != nil {
		return nil, err
	}
	var p confirmedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	s.Entries = p.Entries
	s.ConversationHistory = p.ConversationHistory
	return &s, nil
}
