package txindex

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"

	_ "github.com/lib/pq"
)

var ErrNotFound = errors.New("transaction location not found")

// Storage persists transaction locations.
type Storage interface {
	// Location returns ErrNotFound for unknown transactions.
	Location(ctx context.Context, txHash common.Hash) (*Location, error)
	// AddBlock records the transactions of a block, in block order.
	AddBlock(ctx context.Context, blockHash common.Hash, number uint64, txHashes []common.Hash) error
	Ping(ctx context.Context) error
	Close() error
}

// NewStorage initializes a storage backend based on the provided Config.
// If DSN is empty, it uses an in-memory storage; otherwise, it connects to
// Postgres or SQLite and creates the table when missing.
func NewStorage(ctx context.Context, config Config) (Storage, error) {
	dsn := config.DSN
	switch {
	case dsn == "":
		return NewMemory(config.MemoryMaxBlocks), nil

	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, stacktrace.Wrap(err)
		}
		return openSQL(ctx, NewPostgres(db))

	case strings.HasPrefix(dsn, "sqlite:"), strings.HasPrefix(dsn, "file:"):
		db, err := sql.Open(sqliteshim.ShimName, strings.TrimPrefix(dsn, "sqlite:"))
		if err != nil {
			return nil, stacktrace.Wrap(err)
		}
		// SQLite serializes writers; a single connection avoids busy errors.
		db.SetMaxOpenConns(1)
		return openSQL(ctx, NewSQLite(db))
	}
	return nil, errors.New("unsupported txindex dsn scheme")
}

func openSQL(ctx context.Context, store *SQL) (Storage, error) {
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := store.CreateTable(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
