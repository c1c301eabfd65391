package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions",
		SQL: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				room        TEXT NOT NULL,
				language    TEXT NOT NULL DEFAULT '',
				name        TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_sessions_user ON sessions (user_id);
			CREATE INDEX idx_sessions_room ON sessions (room);
		`,
	},
}
