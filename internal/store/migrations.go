package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_tasks (
	task_id      TEXT PRIMARY KEY,
	manager_id   TEXT NOT NULL DEFAULT '',
	start_date   TEXT NOT NULL DEFAULT '',
	end_date     TEXT NOT NULL DEFAULT '',
	client_count INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL DEFAULT 'PENDING',
	message      TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fetch_tasks_manager ON fetch_tasks(manager_id);
CREATE INDEX IF NOT EXISTS idx_fetch_tasks_updated_at ON fetch_tasks(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS result_snapshots (
	id              TEXT PRIMARY KEY,
	task_id         TEXT NOT NULL REFERENCES fetch_tasks(task_id) ON DELETE CASCADE,
	manager_id      TEXT NOT NULL DEFAULT '',
	start_date      TEXT NOT NULL DEFAULT '',
	end_date        TEXT NOT NULL DEFAULT '',
	processed_count INTEGER NOT NULL DEFAULT 0,
	data            TEXT NOT NULL DEFAULT '{}',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_result_snapshots_manager_created
	ON result_snapshots(manager_id, created_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
