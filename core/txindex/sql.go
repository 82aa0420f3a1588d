package txindex

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"
)

// SQL provides a Bun database storage for transaction locations.
type SQL struct {
	db *bun.DB
}

// NewPostgres wraps a Postgres connection.
func NewPostgres(db *sql.DB) *SQL {
	return &SQL{db: bun.NewDB(db, pgdialect.New())}
}

// NewSQLite wraps a SQLite connection.
func NewSQLite(db *sql.DB) *SQL {
	return &SQL{db: bun.NewDB(db, sqlitedialect.New())}
}

// CreateTable creates the locations table if it does not exist.
func (s *SQL) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*locationRow)(nil)).IfNotExists().Exec(ctx)
	return stacktrace.Wrap(err)
}

// Location retrieves the location of a transaction.
func (s *SQL) Location(ctx context.Context, txHash common.Hash) (*Location, error) {
	row := new(locationRow)
	err := s.db.NewSelect().Model(row).Where("tx_hash = ?", txHash.Hex()).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, stacktrace.Wrap(err)
	}
	return row.location(), nil
}

// AddBlock upserts the locations of every transaction of a block. A
// transaction seen again after a reorg points to its newest block.
func (s *SQL) AddBlock(ctx context.Context, blockHash common.Hash, number uint64, txHashes []common.Hash) error {
	if len(txHashes) == 0 {
		return nil
	}
	rows := rowsFromBlock(blockHash, number, txHashes)
	_, err := s.db.NewInsert().Model(&rows).
		On("CONFLICT (tx_hash) DO UPDATE").
		Set("block_hash = EXCLUDED.block_hash").
		Set("block_number = EXCLUDED.block_number").
		Set("tx_index = EXCLUDED.tx_index").
		Exec(ctx)
	return stacktrace.Wrap(err)
}

func (s *SQL) Ping(ctx context.Context) error {
	return stacktrace.Wrap(s.db.PingContext(ctx))
}

func (s *SQL) Close() error {
	return s.db.Close()
}
