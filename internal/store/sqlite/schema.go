package sqlite

import "database/sql"

// EnsureSchema creates the journal tables if they do not exist.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
            id TEXT PRIMARY KEY,
            audio_blob BLOB NOT NULL,
            mime_type TEXT NOT NULL DEFAULT '',
            duration INTEGER NOT NULL,
            created_at TEXT NOT NULL,
            transcription TEXT,
            transcription_state TEXT NOT NULL DEFAULT 'idle'
        );`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_created_at
            ON recordings(created_at);`,
		// Single-row working set; slot pinned to 1.
		`CREATE TABLE IF NOT EXISTS pending_schedule (
            slot INTEGER PRIMARY KEY CHECK (slot = 1),
            payload TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS approved_entries (
            id TEXT PRIMARY KEY,
            entry_id TEXT NOT NULL,
            date TEXT NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            description TEXT NOT NULL,
            note TEXT,
            approved_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS confirmed_schedules (
            id TEXT PRIMARY KEY,
            date TEXT NOT NULL,
            payload TEXT NOT NULL,
            saved_at TEXT NOT NULL
        );`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
