package replay

//go:generate go tool mockgen -source source.go -destination mock_source.go -package replay

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/zircuit-labs/zkr-go-common/xerrors/stacktrace"

	"github.com/zircuit-labs/l2-tracecache/core/txindex"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
	"github.com/zircuit-labs/l2-tracecache/internal/ratelimiter"
	"github.com/zircuit-labs/l2-tracecache/internal/tracelog"
)

// Block is the part of a block needed to replay it.
type Block struct {
	Hash         common.Hash
	ParentHash   common.Hash
	Number       uint64
	Transactions []common.Hash
}

// Contains reports whether hash is one of the block transactions.
func (b *Block) Contains(hash common.Hash) bool {
	for _, tx := range b.Transactions {
		if tx == hash {
			return true
		}
	}
	return false
}

// BlockSource provides blocks and transaction locations.
type BlockSource interface {
	// ResolveNumber turns a block tag into a height. Pending is not supported.
	ResolveNumber(ctx context.Context, number rpc.BlockNumber) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*Block, error)
	BlockByHash(ctx context.Context, hash common.Hash) (*Block, error)
	TransactionLocation(ctx context.Context, hash common.Hash) (*txindex.Location, error)
}

// RPCSource reads blocks from an upstream node. Blocks are cached by hash
// and their transactions are recorded in the location index.
type RPCSource struct {
	client  *rpc.Client
	eth     *ethclient.Client
	blocks  *fastcache.Cache
	index   txindex.Storage
	limiter ratelimiter.RateLimiter
	logger  log.Logger
}

// NewRPCSource creates a source. A nil limiter does not limit.
func NewRPCSource(client *rpc.Client, index txindex.Storage, limiter ratelimiter.RateLimiter, cacheBytes int) *RPCSource {
	if limiter == nil {
		limiter = ratelimiter.Unlimited
	}
	return &RPCSource{
		client:  client,
		eth:     ethclient.NewClient(client),
		blocks:  fastcache.New(cacheBytes),
		index:   index,
		limiter: limiter,
		logger:  tracelog.NewWith("component", "block-source"),
	}
}

func (s *RPCSource) ResolveNumber(ctx context.Context, number rpc.BlockNumber) (uint64, error) {
	switch {
	case number == rpc.PendingBlockNumber:
		return 0, ethapi.NewUnsupportedError("'pending' is not supported")
	case number == rpc.EarliestBlockNumber:
		return 0, nil
	case number >= 0:
		return uint64(number), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	header, err := s.eth.HeaderByNumber(ctx, big.NewInt(number.Int64()))
	if errors.Is(err, ethereum.NotFound) {
		return 0, ethapi.NewNotFoundError("block %s not found", number)
	}
	if err != nil {
		return 0, stacktrace.Wrap(err)
	}
	return header.Number.Uint64(), nil
}

func (s *RPCSource) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	block, err := s.fetchBlock(ctx, "eth_getBlockByNumber", hexutil.Uint64(number))
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, ethapi.NewNotFoundError("block #%d not found", number)
	}
	return block, nil
}

func (s *RPCSource) BlockByHash(ctx context.Context, hash common.Hash) (*Block, error) {
	if enc := s.blocks.GetBig(nil, hash[:]); len(enc) > 0 {
		block := new(Block)
		if err := rlp.DecodeBytes(enc, block); err == nil {
			return block, nil
		}
		s.logger.Warn("Dropping undecodable cached block", "hash", hash)
	}
	block, err := s.fetchBlock(ctx, "eth_getBlockByHash", hash)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, ethapi.NewNotFoundError("block %s not found", hash)
	}
	return block, nil
}

// rpcBlock is eth_getBlockByX without full transactions.
type rpcBlock struct {
	Hash         *common.Hash  `json:"hash"`
	ParentHash   common.Hash   `json:"parentHash"`
	Number       *hexutil.Big  `json:"number"`
	Transactions []common.Hash `json:"transactions"`
}

func (s *RPCSource) fetchBlock(ctx context.Context, method string, ref any) (*Block, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.client.CallContext(ctx, &raw, method, ref, false); err != nil {
		return nil, stacktrace.Wrap(err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var res rpcBlock
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, stacktrace.Wrap(err)
	}
	if res.Hash == nil || res.Number == nil {
		return nil, ethapi.NewNotFoundError("block is pending")
	}

	block := &Block{
		Hash:         *res.Hash,
		ParentHash:   res.ParentHash,
		Number:       res.Number.ToInt().Uint64(),
		Transactions: res.Transactions,
	}
	if block.Transactions == nil {
		block.Transactions = []common.Hash{}
	}
	s.remember(ctx, block)
	return block, nil
}

func (s *RPCSource) remember(ctx context.Context, block *Block) {
	if enc, err := rlp.EncodeToBytes(block); err == nil {
		s.blocks.SetBig(block.Hash[:], enc)
	}
	if err := s.index.AddBlock(ctx, block.Hash, block.Number, block.Transactions); err != nil {
		s.logger.Warn("Failed to index block transactions", "hash", block.Hash, "number", block.Number, "err", err)
	}
}

// rpcTxLocation is the location part of eth_getTransactionByHash.
type rpcTxLocation struct {
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Big    `json:"blockNumber"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
}

func (s *RPCSource) TransactionLocation(ctx context.Context, hash common.Hash) (*txindex.Location, error) {
	loc, err := s.index.Location(ctx, hash)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, txindex.ErrNotFound) {
		s.logger.Warn("Transaction index lookup failed", "tx", hash, "err", err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var res *rpcTxLocation
	if err := s.client.CallContext(ctx, &res, "eth_getTransactionByHash", hash); err != nil {
		return nil, stacktrace.Wrap(err)
	}
	if res == nil {
		return nil, ethapi.NewNotFoundError("transaction %s not found", hash)
	}
	if res.BlockHash == nil || res.BlockNumber == nil || res.TransactionIndex == nil {
		return nil, ethapi.NewNotFoundError("transaction %s is pending", hash)
	}
	return &txindex.Location{
		BlockHash:   *res.BlockHash,
		BlockNumber: res.BlockNumber.ToInt().Uint64(),
		Index:       uint64(*res.TransactionIndex),
	}, nil
}
