//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"context"
	"fmt"
)

// Response wrappers bind a normalized backend result to the provider that
// produced it, so further lookups can be made lazily. The provider reference
// is a capability only; wrappers stay valid independently of any single call.

// BlockResponse wraps a normalized block.
type BlockResponse struct {
	Block
	provider *Provider
}

func newBlockResponse(p *Provider, b *Block) *BlockResponse {
	return &BlockResponse{Block: *b, provider: p}
}

// TransactionByIndex returns the full body of the i-th transaction in the
// block, fetching it on demand unless the block already carries bodies.
func (b *BlockResponse) TransactionByIndex(ctx context.Context, i int) (*TransactionResponse, error) {
	if i < 0 || i >= len(b.Transactions) {
		return nil, fmt.Errorf("transaction index %d out of range", i)
	}
	if b.FullTransactions != nil {
		return newTransactionResponse(b.provider, b.FullTransactions[i]), nil
	}
	return b.provider.TransactionByHash(ctx, b.Transactions[i])
}

// TransactionResponse wraps a normalized transaction.
type TransactionResponse struct {
	Transaction
	provider   *Provider
	startBlock uint64
}

func newTransactionResponse(p *Provider, tx *Transaction) *TransactionResponse {
	return &TransactionResponse{Transaction: *tx, provider: p}
}

// ReplaceableTransaction returns a view of the response primed with the head
// block observed when the transaction was broadcast, so a later replacement or
// cancellation can be detected against that height.
func (t *TransactionResponse) ReplaceableTransaction(startBlock uint64) *TransactionResponse {
	cp := *t
	cp.startBlock = startBlock
	return &cp
}

// StartBlock is the head height at broadcast time, zero if unknown.
func (t *TransactionResponse) StartBlock() uint64 { return t.startBlock }

// Receipt fetches the transaction's receipt. It is nil while the transaction
// is unmined.
func (t *TransactionResponse) Receipt(ctx context.Context) (*ReceiptResponse, error) {
	return t.provider.TransactionReceipt(ctx, t.Hash)
}

// ConfirmedBlock fetches the block the transaction was mined in, nil while
// pending.
func (t *TransactionResponse) ConfirmedBlock(ctx context.Context) (*BlockResponse, error) {
	if t.BlockHash == nil {
		return nil, nil
	}
	return t.provider.BlockByHash(ctx, *t.BlockHash, false)
}

// ReceiptResponse wraps a normalized receipt.
type ReceiptResponse struct {
	Receipt
	provider *Provider
}

func newReceiptResponse(p *Provider, r *Receipt) *ReceiptResponse {
	return &ReceiptResponse{Receipt: *r, provider: p}
}

// ConfirmedBlock fetches the block the receipt belongs to.
func (r *ReceiptResponse) ConfirmedBlock(ctx context.Context) (*BlockResponse, error) {
	return r.provider.BlockByHash(ctx, r.BlockHash, false)
}

// LogResponse wraps a normalized log.
type LogResponse struct {
	Log
	provider *Provider
}

func newLogResponse(p *Provider, l *Log) *LogResponse {
	return &LogResponse{Log: *l, provider: p}
}

// ConfirmedBlock fetches the block the log was emitted in.
func (l *LogResponse) ConfirmedBlock(ctx context.Context) (*BlockResponse, error) {
	return l.provider.BlockByHash(ctx, l.BlockHash, false)
}

// EmittingTransaction fetches the transaction that emitted the log.
func (l *LogResponse) EmittingTransaction(ctx context.Context) (*TransactionResponse, error) {
	return l.provider.TransactionByHash(ctx, l.TransactionHash)
}

// EmittingReceipt fetches the receipt of the transaction that emitted the log.
func (l *LogResponse) EmittingReceipt(ctx context.Context) (*ReceiptResponse, error) {
	return l.provider.TransactionReceipt(ctx, l.TransactionHash)
}
