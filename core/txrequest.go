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
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"
)

// TxRequest is a draft transaction for gas estimation and read-only calls.
// From, To and Block may require asynchronous resolution; everything else is
// literal. Unset fields are omitted from the RPC payload.
type TxRequest struct {
	From                 *AddressRef
	To                   *AddressRef
	Block                *BlockRef
	Nonce                *uint64
	Gas                  *big.Int
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Value                *big.Int
	Data                 []byte
}

// rpcTransaction is the wire form of a transaction request as embedded in
// eth_call, eth_estimateGas and eth_sendTransaction payloads.
type rpcTransaction struct {
	From                 string          `json:"from,omitempty"`
	To                   string          `json:"to,omitempty"`
	Gas                  *hexutil.Big    `json:"gas,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Nonce                *hexutil.Uint64 `json:"nonce,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
}

func bigArg(n *big.Int) *hexutil.Big {
	if n == nil {
		return nil
	}
	return (*hexutil.Big)(new(big.Int).Set(n))
}

// buildTransaction resolves a request's address and block fields into an
// RPC-ready payload. The caller's request is never mutated; literal fields are
// copied first, then From, To and Block resolve concurrently. The resolved
// block selector is returned separately since it is a call parameter rather
// than part of the transaction object. It is nil when the request names no
// block.
func (p *Provider) buildTransaction(ctx context.Context, req *TxRequest) (*rpcTransaction, *BlockSelector, error) {
	tx := &rpcTransaction{
		Gas:                  bigArg(req.Gas),
		GasPrice:             bigArg(req.GasPrice),
		MaxFeePerGas:         bigArg(req.MaxFeePerGas),
		MaxPriorityFeePerGas: bigArg(req.MaxPriorityFeePerGas),
		Value:                bigArg(req.Value),
		Data:                 req.Data,
	}
	if req.Nonce != nil {
		n := hexutil.Uint64(*req.Nonce)
		tx.Nonce = &n
	}

	var sel *BlockSelector
	g, gctx := errgroup.WithContext(ctx)
	if req.From != nil {
		g.Go(func() error {
			a, err := p.resolveAddress(gctx, req.From)
			if err != nil {
				return err
			}
			tx.From = addressHex(a)
			return nil
		})
	}
	if req.To != nil {
		g.Go(func() error {
			a, err := p.resolveAddress(gctx, req.To)
			if err != nil {
				return err
			}
			tx.To = addressHex(a)
			return nil
		})
	}
	if req.Block != nil {
		g.Go(func() error {
			s, err := p.resolveBlockRef(gctx, req.Block)
			if err != nil {
				return err
			}
			sel = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tx, sel, nil
}
