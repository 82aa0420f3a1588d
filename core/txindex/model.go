package txindex

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"
)

// Location is where a transaction was included.
type Location struct {
	BlockHash   common.Hash
	BlockNumber uint64
	Index       uint64
}

// locationRow is the persisted form of a Location.
type locationRow struct {
	bun.BaseModel `bun:"table:trace_tx_locations,alias:tl"`

	TxHash      string    `bun:"tx_hash,pk"`
	BlockHash   string    `bun:"block_hash,notnull"`
	BlockNumber int64     `bun:"block_number,notnull"`
	TxIndex     int64     `bun:"tx_index,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func rowsFromBlock(blockHash common.Hash, number uint64, txHashes []common.Hash) []*locationRow {
	now := time.Now().UTC()
	rows := make([]*locationRow, 0, len(txHashes))
	for i, txHash := range txHashes {
		rows = append(rows, &locationRow{
			TxHash:      txHash.Hex(),
			BlockHash:   blockHash.Hex(),
			BlockNumber: int64(number),
			TxIndex:     int64(i),
			CreatedAt:   now,
		})
	}
	return rows
}

func (r *locationRow) location() *Location {
	return &Location{
		BlockHash:   common.HexToHash(r.BlockHash),
		BlockNumber: uint64(r.BlockNumber),
		Index:       uint64(r.TxIndex),
	}
}
