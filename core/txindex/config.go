// Package txindex maps transaction hashes to their block, so single
// transaction requests do not need a round trip to the upstream node.
package txindex

// Config defines where the index is kept.
type Config struct {
	// DSN selects the backend: empty for memory, postgres:// for Postgres,
	// sqlite:<path> or file:<path> for SQLite.
	DSN string `koanf:"dsn"`
	// MemoryMaxBlocks bounds the memory backend, oldest blocks are dropped first.
	// Zero means unbounded.
	MemoryMaxBlocks int `koanf:"memory_max_blocks"`
}
