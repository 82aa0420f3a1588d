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

// Package logger collects the opcode level steps of replayed transactions.
package logger

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/zircuit-labs/l2-tracecache/core/tracing"
)

var ErrNoTransaction = errors.New("transaction end without a matching start")

// Config are the configuration options for structured logger the EVM
type Config struct {
	DisableMemory  bool `json:"disableMemory"`  // disable memory capture
	DisableStack   bool `json:"disableStack"`   // disable stack capture
	DisableStorage bool `json:"disableStorage"` // disable storage capture
	Limit          int  `json:"limit"`          // maximum number of steps to capture, zero for no limit
}

// StructLog is emitted to the EVM each cycle and lists information about the
// current internal state prior to the execution of the statement.
type StructLog struct {
	Pc      uint64
	Op      vm.OpCode
	Gas     uint64
	GasCost uint64
	Depth   uint64
	Memory  []byte
	Stack   []common.Hash
	Storage map[common.Hash]common.Hash
	Err     string
}

// ExecutionResult groups all structured logs emitted by the EVM
// while replaying a transaction in debug mode.
type ExecutionResult struct {
	Gas         uint64
	Failed      bool
	ReturnValue []byte
	StructLogs  []StructLog
}

// TxResult is the raw trace of one transaction of a replay.
type TxResult struct {
	TxHash  common.Hash
	TxIndex uint64
	Result  *ExecutionResult
}

// StructLogger records the steps of every transaction of a replay,
// dropping the parts of each step its configuration disables.
type StructLogger struct {
	cfg     Config
	hooks   *tracing.Hooks
	txs     []*TxResult
	current *TxResult
	nextIdx uint64
}

// NewStructLogger returns a new logger
func NewStructLogger(cfg *Config) *StructLogger {
	l := &StructLogger{}
	if cfg != nil {
		l.cfg = *cfg
	}
	l.hooks = &tracing.Hooks{
		OnTxStart: l.onTxStart,
		OnStep:    l.onStep,
		OnTxEnd:   l.onTxEnd,
	}
	return l
}

// Emit implements tracing.Sink.
func (l *StructLogger) Emit(data []byte) error {
	return l.hooks.Emit(data)
}

// Results returns the transactions seen so far in replay order.
func (l *StructLogger) Results() []*TxResult {
	if l.current != nil {
		l.txs = append(l.txs, l.current)
		l.current = nil
	}
	return l.txs
}

func (l *StructLogger) begin(hash common.Hash, index uint64) {
	if l.current != nil {
		l.txs = append(l.txs, l.current)
	}
	l.current = &TxResult{TxHash: hash, TxIndex: index, Result: &ExecutionResult{StructLogs: []StructLog{}}}
	l.nextIdx = index + 1
}

func (l *StructLogger) onTxStart(ev *tracing.TxStart) error {
	l.begin(ev.Hash, ev.Index)
	return nil
}

func (l *StructLogger) onStep(ev *tracing.Step) error {
	if l.current == nil {
		l.begin(common.Hash{}, l.nextIdx)
	}
	result := l.current.Result
	if l.cfg.Limit != 0 && len(result.StructLogs) >= l.cfg.Limit {
		return nil
	}

	entry := StructLog{
		Pc:      ev.PC,
		Op:      ev.Op,
		Gas:     ev.Gas,
		GasCost: ev.Cost,
		Depth:   ev.Depth,
		Err:     ev.Error,
	}
	if !l.cfg.DisableMemory {
		entry.Memory = ev.Memory
	}
	if !l.cfg.DisableStack {
		entry.Stack = ev.Stack
	}
	if !l.cfg.DisableStorage && len(ev.Storage) != 0 {
		entry.Storage = make(map[common.Hash]common.Hash, len(ev.Storage))
		for _, slot := range ev.Storage {
			entry.Storage[slot.Key] = slot.Value
		}
	}
	result.StructLogs = append(result.StructLogs, entry)
	return nil
}

func (l *StructLogger) onTxEnd(ev *tracing.TxEnd) error {
	if l.current == nil {
		return ErrNoTransaction
	}
	l.current.Result.Gas = ev.GasUsed
	l.current.Result.ReturnValue = ev.Output
	l.current.Result.Failed = ev.Error != ""
	l.txs = append(l.txs, l.current)
	l.current = nil
	return nil
}
