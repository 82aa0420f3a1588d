// Copyright 2021 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package tracers

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/zircuit-labs/l2-tracecache/core/replay"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/formatter"
	"github.com/zircuit-labs/l2-tracecache/eth/tracers/logger"
	"github.com/zircuit-labs/l2-tracecache/internal/ethapi"
)

// TraceConfig holds extra parameters to trace functions.
type TraceConfig struct {
	*logger.Config
	Tracer *string
	// Timeout is accepted for compatibility. Replays are not interrupted.
	Timeout *string
	// Config specific to given tracer. Note struct logger
	// config are historically embedded in main object.
	TracerConfig json.RawMessage
}

// txTraceResult is the result of a single transaction trace.
type txTraceResult struct {
	TxHash common.Hash `json:"txHash"`           // transaction hash
	Result any         `json:"result,omitempty"` // Trace results produced by the tracer
	Error  string      `json:"error,omitempty"`  // Trace failure produced by the tracer
}

// API is the collection of tracing APIs exposed over the private debugging endpoint.
type API struct {
	service *Service
}

// NewAPI creates a new API definition for the tracing methods of the service.
func NewAPI(service *Service) *API {
	return &API{service: service}
}

// TraceBlockByNumber returns the structured logs created during the execution of
// EVM and returns them as a JSON object.
func (api *API) TraceBlockByNumber(ctx context.Context, number rpc.BlockNumber, config *TraceConfig) (results []*txTraceResult, err error) {
	defer func() { api.service.metrics.IncRequest("debug_traceBlockByNumber", err) }()

	block, err := api.service.blockByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return api.traceBlock(ctx, block, config)
}

// TraceBlockByHash returns the structured logs created during the execution of
// EVM and returns them as a JSON object.
func (api *API) TraceBlockByHash(ctx context.Context, hash common.Hash, config *TraceConfig) (results []*txTraceResult, err error) {
	defer func() { api.service.metrics.IncRequest("debug_traceBlockByHash", err) }()

	block, err := api.service.source.BlockByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	return api.traceBlock(ctx, block, config)
}

// TraceTransaction returns the structured logs created during the execution of EVM
// and returns them as a JSON object.
func (api *API) TraceTransaction(ctx context.Context, hash common.Hash, config *TraceConfig) (result any, err error) {
	defer func() { api.service.metrics.IncRequest("debug_traceTransaction", err) }()

	tracer, err := selectTracer(config)
	if err != nil {
		return nil, err
	}
	block, index, err := api.service.transactionBlock(ctx, hash)
	if err != nil {
		return nil, err
	}
	req, err := replay.NewTransactionRequest(block, index, stepOptions(tracer, config))
	if err != nil {
		return nil, ethapi.NewInternalError("transaction location out of block range", err)
	}

	results, err := api.trace(ctx, req, tracer, config)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.TxHash == hash {
			return res.Result, nil
		}
	}
	return nil, ethapi.NewInternalError("transaction was not traced: "+hash.Hex(), nil)
}

func (api *API) traceBlock(ctx context.Context, block *replay.Block, config *TraceConfig) ([]*txTraceResult, error) {
	if block.Number == 0 {
		return nil, ErrGenesisIsNotTraceable
	}
	tracer, err := selectTracer(config)
	if err != nil {
		return nil, err
	}
	if len(block.Transactions) == 0 {
		return []*txTraceResult{}, nil
	}
	return api.trace(ctx, replay.NewBlockRequest(block, stepOptions(tracer, config)), tracer, config)
}

// trace replays req on the worker pool and formats every instrumented
// transaction with tracer.
func (api *API) trace(ctx context.Context, req *replay.Request, tracer formatter.Tracer, config *TraceConfig) ([]*txTraceResult, error) {
	var results []*txTraceResult
	err := api.service.pool.Run(ctx, func(ctx context.Context) error {
		var err error
		if tracer.NeedsSteps() {
			results, err = api.service.rawResults(ctx, req, loggerConfig(config))
		} else {
			results, err = api.service.callResults(ctx, req, tracer)
		}
		return err
	})
	return results, err
}

func (s *Service) rawResults(ctx context.Context, req *replay.Request, cfg *logger.Config) ([]*txTraceResult, error) {
	structLogger := logger.NewStructLogger(cfg)
	if err := s.replay(ctx, req, structLogger); err != nil {
		return nil, err
	}
	txs := structLogger.Results()
	results := make([]*txTraceResult, 0, len(txs))
	for _, tx := range txs {
		results = append(results, &txTraceResult{TxHash: tx.TxHash, Result: formatter.Raw(tx.Result)})
	}
	return results, nil
}

func (s *Service) callResults(ctx context.Context, req *replay.Request, tracer formatter.Tracer) ([]*txTraceResult, error) {
	txs, err := s.callLists(ctx, req)
	if err != nil {
		return nil, err
	}
	results := make([]*txTraceResult, 0, len(txs))
	for _, tx := range txs {
		res := &txTraceResult{TxHash: tx.TxHash}
		switch tracer {
		case formatter.TracerCallTracer:
			frame, err := formatter.CallTracer(tx)
			if err != nil {
				return nil, ethapi.NewInternalError("failed to format call tracer result", err)
			}
			res.Result = frame
		default:
			res.Result = formatter.Blockscout(tx)
		}
		results = append(results, res)
	}
	return results, nil
}

func selectTracer(config *TraceConfig) (formatter.Tracer, error) {
	if config == nil {
		return formatter.Select(nil)
	}
	return formatter.Select(config.Tracer)
}

func loggerConfig(config *TraceConfig) *logger.Config {
	if config == nil || config.Config == nil {
		return &logger.Config{}
	}
	return config.Config
}

func stepOptions(tracer formatter.Tracer, config *TraceConfig) *replay.StepOptions {
	if !tracer.NeedsSteps() {
		return nil
	}
	cfg := loggerConfig(config)
	return &replay.StepOptions{
		DisableStorage: cfg.DisableStorage,
		DisableMemory:  cfg.DisableMemory,
		DisableStack:   cfg.DisableStack,
		Limit:          cfg.Limit,
	}
}
