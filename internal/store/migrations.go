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

CREATE TABLE IF NOT EXISTS snapshots (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE snapshots ADD COLUMN size INTEGER NOT NULL DEFAULT 0;

CREATE INDEX IF NOT EXISTS idx_snapshots_updated_at ON snapshots(updated_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
