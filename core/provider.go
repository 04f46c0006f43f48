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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Provider exposes a strongly-typed surface over a raw JSON-RPC backend. Each
// public operation resolves its inputs, issues a single backend call (unless
// noted otherwise) and wraps the result. Providers hold no per-call state and
// are safe for concurrent use.
type Provider struct {
	transport Transport
	emitter   Emitter
	formatter Formatter
	resolver  NameResolver
}

type Option func(*Provider)

// WithEmitter replaces the default in-memory event emitter.
func WithEmitter(e Emitter) Option {
	return func(p *Provider) { p.emitter = e }
}

// WithFormatter replaces the default JSON formatter.
func WithFormatter(f Formatter) Option {
	return func(p *Provider) { p.formatter = f }
}

// WithNameResolver installs a resolver for name-based address references.
// Without one, resolving a name fails.
func WithNameResolver(r NameResolver) Option {
	return func(p *Provider) { p.resolver = r }
}

func New(t Transport, opts ...Option) *Provider {
	p := &Provider{
		transport: t,
		emitter:   NewMemoryEmitter(),
		formatter: JSONFormatter{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) send(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	RequestCounter.WithLabelValues(method).Inc()
	raw, err := p.transport.Send(ctx, method, params)
	if err != nil {
		RequestErrorCounter.WithLabelValues(method).Inc()
		return nil, err
	}
	return raw, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeBig(raw json.RawMessage) (*big.Int, error) {
	var n hexutil.Big
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to decode quantity: %v", err)
	}
	return (*big.Int)(&n), nil
}

func decodeUint64(raw json.RawMessage) (uint64, error) {
	var n hexutil.Uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("failed to decode quantity: %v", err)
	}
	return uint64(n), nil
}

func decodeBytes(raw json.RawMessage) ([]byte, error) {
	var b hexutil.Bytes
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("failed to decode hex data: %v", err)
	}
	return b, nil
}

// ChainID returns the chain identifier of the backend.
func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	raw, err := p.send(ctx, "eth_chainId")
	if err != nil {
		return nil, err
	}
	return decodeBig(raw)
}

// BlockNumber returns the current head height.
func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	raw, err := p.send(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return decodeUint64(raw)
}

// Balance returns the balance of an account at the given block.
func (p *Provider) Balance(ctx context.Context, addr *AddressRef, block *BlockRef) (*big.Int, error) {
	a, sel, err := p.resolveAccountQuery(ctx, addr, block)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "eth_getBalance", a, sel.arg())
	if err != nil {
		return nil, err
	}
	return decodeBig(raw)
}

// TransactionCount returns the nonce of an account at the given block.
func (p *Provider) TransactionCount(ctx context.Context, addr *AddressRef, block *BlockRef) (uint64, error) {
	a, sel, err := p.resolveAccountQuery(ctx, addr, block)
	if err != nil {
		return 0, err
	}
	raw, err := p.send(ctx, "eth_getTransactionCount", a, sel.arg())
	if err != nil {
		return 0, err
	}
	return decodeUint64(raw)
}

// Code returns the contract code of an account at the given block.
func (p *Provider) Code(ctx context.Context, addr *AddressRef, block *BlockRef) ([]byte, error) {
	a, sel, err := p.resolveAccountQuery(ctx, addr, block)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "eth_getCode", a, sel.arg())
	if err != nil {
		return nil, err
	}
	return decodeBytes(raw)
}

// StorageAt returns the value of a storage slot of an account at the given
// block.
func (p *Provider) StorageAt(ctx context.Context, addr *AddressRef, slot *big.Int, block *BlockRef) ([]byte, error) {
	a, sel, err := p.resolveAccountQuery(ctx, addr, block)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "eth_getStorageAt", a, hexutil.EncodeBig(slot), sel.arg())
	if err != nil {
		return nil, err
	}
	return decodeBytes(raw)
}

// resolveAccountQuery resolves the address and block arguments shared by all
// account-state lookups, concurrently.
func (p *Provider) resolveAccountQuery(ctx context.Context, addr *AddressRef, block *BlockRef) (string, BlockSelector, error) {
	var (
		a   common.Address
		sel BlockSelector
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = p.resolveAddress(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		sel, err = p.resolveBlockRef(gctx, block)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", BlockSelector{}, err
	}
	return addressHex(a), sel, nil
}

// EstimateGas estimates the gas needed to execute the request. The block
// reference defaults to pending.
func (p *Provider) EstimateGas(ctx context.Context, req *TxRequest) (*big.Int, error) {
	tx, sel, err := p.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		sel = &BlockSelector{value: TagPending}
	}
	raw, err := p.send(ctx, "eth_estimateGas", tx, sel.arg())
	if err != nil {
		return nil, err
	}
	return decodeBig(raw)
}

// Call executes the request read-only against the given block, defaulting to
// pending.
func (p *Provider) Call(ctx context.Context, req *TxRequest) ([]byte, error) {
	tx, sel, err := p.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	if sel == nil {
		sel = &BlockSelector{value: TagPending}
	}
	raw, err := p.send(ctx, "eth_call", tx, sel.arg())
	if err != nil {
		return nil, err
	}
	return decodeBytes(raw)
}

// BroadcastTransaction submits a signed raw transaction and, concurrently,
// fetches the current head height. The hash reported by the backend must match
// the hash computed locally from the submitted bytes; a divergent backend is
// rejected with a HashMismatchError. On success the returned response is
// primed with the head height observed at submission time.
func (p *Provider) BroadcastTransaction(ctx context.Context, rawTx []byte) (*TransactionResponse, error) {
	var (
		reported common.Hash
		head     uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := p.send(gctx, "eth_sendRawTransaction", hexutil.Encode(rawTx))
		if err != nil {
			return err
		}
		return json.Unmarshal(res, &reported)
	})
	g.Go(func() error {
		var err error
		head, err = p.BlockNumber(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tx gethtypes.Transaction
	if err := tx.UnmarshalBinary(rawTx); err != nil {
		return nil, fmt.Errorf("failed to decode raw transaction: %v", err)
	}
	if tx.Hash() != reported {
		return nil, &HashMismatchError{Local: tx.Hash(), Reported: reported}
	}

	resp := newTransactionResponse(p, normalizeRawTx(&tx))
	return resp.ReplaceableTransaction(head), nil
}

// normalizeRawTx builds the normalized view of a locally-known transaction.
// The sender is recovered from the signature when possible.
func normalizeRawTx(tx *gethtypes.Transaction) *Transaction {
	out := &Transaction{
		Hash:                 tx.Hash(),
		To:                   tx.To(),
		Nonce:                tx.Nonce(),
		Gas:                  tx.Gas(),
		GasPrice:             tx.GasPrice(),
		MaxFeePerGas:         tx.GasFeeCap(),
		MaxPriorityFeePerGas: tx.GasTipCap(),
		Value:                tx.Value(),
		Data:                 tx.Data(),
		ChainID:              tx.ChainId(),
		Type:                 uint64(tx.Type()),
	}
	if from, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		out.From = from
	}
	return out
}

// BlockByHash returns the block with the given hash, nil when the backend
// knows no such block.
func (p *Provider) BlockByHash(ctx context.Context, hash common.Hash, fullTx bool) (*BlockResponse, error) {
	raw, err := p.send(ctx, "eth_getBlockByHash", hash.Hex(), fullTx)
	if err != nil {
		return nil, err
	}
	return p.wrapBlock(raw)
}

// BlockByRef returns the block named by the reference, nil when the backend
// knows no such block. A nil reference means latest.
func (p *Provider) BlockByRef(ctx context.Context, ref *BlockRef, fullTx bool) (*BlockResponse, error) {
	sel, err := p.resolveBlockRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	method := "eth_getBlockByNumber"
	if sel.IsHash() {
		method = "eth_getBlockByHash"
	}
	raw, err := p.send(ctx, method, sel.String(), fullTx)
	if err != nil {
		return nil, err
	}
	return p.wrapBlock(raw)
}

func (p *Provider) wrapBlock(raw json.RawMessage) (*BlockResponse, error) {
	if isNull(raw) {
		return nil, nil
	}
	b, err := p.formatter.Block(raw)
	if err != nil {
		return nil, err
	}
	return newBlockResponse(p, b), nil
}

// TransactionByHash returns the transaction with the given hash, nil when
// unknown to the backend.
func (p *Provider) TransactionByHash(ctx context.Context, hash common.Hash) (*TransactionResponse, error) {
	raw, err := p.send(ctx, "eth_getTransactionByHash", hash.Hex())
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	tx, err := p.formatter.Transaction(raw)
	if err != nil {
		return nil, err
	}
	return newTransactionResponse(p, tx), nil
}

// TransactionReceipt returns the receipt for the given transaction hash, nil
// while the transaction is unknown or unmined.
func (p *Provider) TransactionReceipt(ctx context.Context, hash common.Hash) (*ReceiptResponse, error) {
	raw, err := p.send(ctx, "eth_getTransactionReceipt", hash.Hex())
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil
	}
	r, err := p.formatter.Receipt(raw)
	if err != nil {
		return nil, err
	}
	return newReceiptResponse(p, r), nil
}

// Logs canonicalizes the filter and returns the matching logs in one batch
// call.
func (p *Provider) Logs(ctx context.Context, spec FilterSpec) ([]*LogResponse, error) {
	filter, err := p.canonicalFilter(ctx, spec)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "eth_getLogs", filter)
	if err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode log list: %v", err)
	}
	out := make([]*LogResponse, 0, len(entries))
	for _, entry := range entries {
		l, err := p.formatter.Log(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, newLogResponse(p, l))
	}
	return out, nil
}

// FeeData holds the provider's fee estimate. GasPrice is nil when the backend
// has no legacy gas price; the EIP-1559 fields are nil when the latest block
// carries no base fee.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// FeeEstimate returns a fee estimate built from the latest block and a
// best-effort legacy gas price fetch. A failed gas-price lookup is treated as
// absence, not as an error: some chains simply have none. When the latest
// block carries a base fee, the priority fee is fixed at 1 gwei and the max
// fee at twice the base fee plus the priority fee.
func (p *Provider) FeeEstimate(ctx context.Context) (*FeeData, error) {
	var (
		gasPrice *big.Int
		head     *BlockResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := p.send(gctx, "eth_gasPrice")
		if err != nil {
			logger.Debugf("legacy gas price unavailable: %v", err)
			return nil
		}
		n, err := decodeBig(raw)
		if err != nil {
			logger.Debugf("legacy gas price unavailable: %v", err)
			return nil
		}
		gasPrice = n
		return nil
	})
	g.Go(func() error {
		var err error
		head, err = p.BlockByRef(gctx, LatestBlock(), false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fee := &FeeData{GasPrice: gasPrice}
	if head != nil && head.BaseFeePerGas != nil {
		fee.MaxPriorityFeePerGas = big.NewInt(params.GWei)
		fee.MaxFeePerGas = new(big.Int).Add(
			new(big.Int).Mul(head.BaseFeePerGas, big.NewInt(2)),
			fee.MaxPriorityFeePerGas,
		)
	}
	return fee, nil
}

// Intentionally unsupported operations. Callers must not assume these succeed.

func (p *Provider) ResolveName(ctx context.Context, name string) (common.Address, error) {
	return common.Address{}, ErrNotImplemented
}

func (p *Provider) LookupAddress(ctx context.Context, addr common.Address) (string, error) {
	return "", ErrNotImplemented
}

func (p *Provider) WaitForTransaction(ctx context.Context, hash common.Hash) (*ReceiptResponse, error) {
	return nil, ErrNotImplemented
}

func (p *Provider) WaitForBlock(ctx context.Context, number uint64) (*BlockResponse, error) {
	return nil, ErrNotImplemented
}

func (p *Provider) TransactionResult(ctx context.Context, hash common.Hash) ([]byte, error) {
	return nil, ErrNotImplemented
}

// Event forwarding. Every operation accepts only string event names; any
// other descriptor shape is rejected before the emitter is touched.

func eventName(event any) (string, error) {
	name, ok := event.(string)
	if !ok {
		return "", &NonStringEventError{Event: event}
	}
	return name, nil
}

func (p *Provider) On(event any, fn Listener) error {
	name, err := eventName(event)
	if err != nil {
		return err
	}
	p.emitter.On(name, fn)
	return nil
}

func (p *Provider) Once(event any, fn Listener) error {
	name, err := eventName(event)
	if err != nil {
		return err
	}
	p.emitter.Once(name, fn)
	return nil
}

func (p *Provider) Off(event any, fn Listener) error {
	name, err := eventName(event)
	if err != nil {
		return err
	}
	p.emitter.Off(name, fn)
	return nil
}

func (p *Provider) Emit(event any, args ...any) error {
	name, err := eventName(event)
	if err != nil {
		return err
	}
	p.emitter.Emit(name, args...)
	return nil
}

func (p *Provider) ListenerCount(event any) (int, error) {
	name, err := eventName(event)
	if err != nil {
		return 0, err
	}
	return p.emitter.ListenerCount(name), nil
}

func (p *Provider) Listeners(event any) ([]Listener, error) {
	name, err := eventName(event)
	if err != nil {
		return nil, err
	}
	return p.emitter.Listeners(name), nil
}

func (p *Provider) RemoveAllListeners(event any) error {
	name, err := eventName(event)
	if err != nil {
		return err
	}
	p.emitter.RemoveAllListeners(name)
	return nil
}

// AddListener is an alias for On.
func (p *Provider) AddListener(event any, fn Listener) error { return p.On(event, fn) }

// RemoveListener is an alias for Off.
func (p *Provider) RemoveListener(event any, fn Listener) error { return p.Off(event, fn) }
