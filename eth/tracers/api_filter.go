package tracers

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/zircuit-labs/l2-tracecache/eth/tracers/formatter"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

// FilterRequest is the trace_filter argument.
type FilterRequest struct {
	FromBlock   *rpc.BlockNumber `json:"fromBlock"`
	ToBlock     *rpc.BlockNumber `json:"toBlock"`
	FromAddress []common.Address `json:"fromAddress"`
	ToAddress   []common.Address `json:"toAddress"`
	After       *uint64          `json:"after"`
	Count       *uint64          `json:"count"`
}

// addressFilter matches traces against the from/to address lists. An empty
// list matches everything.
type addressFilter struct {
	from mapset.Set[common.Address]
	to   mapset.Set[common.Address]
}

func newAddressFilter(req *FilterRequest) *addressFilter {
	return &addressFilter{
		from: mapset.NewThreadUnsafeSet(req.FromAddress...),
		to:   mapset.NewThreadUnsafeSet(req.ToAddress...),
	}
}

func (f *addressFilter) matchFrom(addr common.Address) bool {
	return f.from.IsEmpty() || f.from.Contains(addr)
}

// match applies the rules of each trace type: creations and self-destructs
// have no destination and only match without a to filter.
func (f *addressFilter) match(trace *formatter.Trace) bool {
	switch action := trace.Action.(type) {
	case *formatter.CallAction:
		return f.matchFrom(action.From) && (f.to.IsEmpty() || f.to.Contains(action.To))
	case *formatter.CreateAction:
		return f.matchFrom(action.From) && f.to.IsEmpty()
	case *formatter.SuicideAction:
		return f.matchFrom(action.Address) && f.to.IsEmpty()
	}
	return false
}

func (f *addressFilter) apply(traces []*formatter.Trace) []*formatter.Trace {
	if f.from.IsEmpty() && f.to.IsEmpty() {
		return traces
	}
	filtered := make([]*formatter.Trace, 0, len(traces))
	for _, trace := range traces {
		if f.match(trace) {
			filtered = append(filtered, trace)
		}
	}
	return filtered
}

// Filter returns the traces of a block range, filtered by address and
// paginated with after and count.
func (api *TraceAPI) Filter(ctx context.Context, req FilterRequest) (traces []*formatter.Trace, err error) {
	defer func() { api.service.metrics.IncRequest("trace_filter", err) }()

	limit := api.service.config.TraceCountLimit()
	count := limit
	if req.Count != nil {
		count = *req.Count
		if count > limit {
			return nil, ethapi.NewLimitExceededError("count (%d) can't be greater than maximum (%d)", count, limit)
		}
	}

	from, err := api.resolve(ctx, req.FromBlock)
	if err != nil {
		return nil, err
	}
	to, err := api.resolve(ctx, req.ToBlock)
	if err != nil {
		return nil, err
	}
	if from == 0 {
		// no traces for genesis
		from = 1
	}
	if from > to {
		return []*formatter.Trace{}, nil
	}
	if maxRange := api.service.config.MaxBlockRange; maxRange != 0 && to-from+1 > maxRange {
		return nil, ethapi.NewLimitExceededError("block range (%d) can't be greater than maximum (%d)", to-from+1, maxRange)
	}

	hashes := make([]common.Hash, 0, to-from+1)
	for height := from; height <= to; height++ {
		block, err := api.service.source.BlockByNumber(ctx, height)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, block.Hash)
	}

	batch, err := api.service.cache.StartBatch(ctx, hashes)
	if err != nil {
		return nil, err
	}
	defer api.service.cache.StopBatch(batch)

	return api.fetchTraces(ctx, &req, hashes, count)
}

func (api *TraceAPI) resolve(ctx context.Context, number *rpc.BlockNumber) (uint64, error) {
	if number == nil {
		return api.service.source.ResolveNumber(ctx, rpc.LatestBlockNumber)
	}
	return api.service.source.ResolveNumber(ctx, *number)
}

// fetchTraces walks the blocks in range order, skipping the first after
// matching traces and stopping once count traces are collected. Reaching
// the default count is an error since the result would be silently cut.
func (api *TraceAPI) fetchTraces(ctx context.Context, req *FilterRequest, hashes []common.Hash, count uint64) ([]*formatter.Trace, error) {
	filter := newAddressFilter(req)

	var skip uint64
	if req.After != nil {
		skip = *req.After
	}
	traces := []*formatter.Trace{}
	for _, hash := range hashes {
		blockTraces, err := api.service.cache.GetTraces(ctx, hash)
		if err != nil {
			return nil, err
		}
		blockTraces = filter.apply(blockTraces)

		if n := uint64(len(blockTraces)); skip >= n {
			skip -= n
			continue
		}
		traces = append(traces, blockTraces[skip:]...)
		skip = 0

		if uint64(len(traces)) >= count {
			if req.Count == nil {
				return nil, ethapi.NewLimitExceededError(
					"the amount of traces goes over the maximum (%d), please use 'after' and 'count' in your request",
					api.service.config.TraceCountLimit())
			}
			return traces[:count], nil
		}
	}
	return traces, nil
}
