package sqlite

// Schema DDL for the key-value document table.
const (
	createKV = `CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TEXT NOT NULL
);`
)

// schemaDDL lists the statements executed on Attach, in order.
var schemaDDL = []string{
	createKV,
}
