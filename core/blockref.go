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
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Symbolic block tags understood by the backend.
const (
	TagLatest    = "latest"
	TagEarliest  = "earliest"
	TagPending   = "pending"
	TagSafe      = "safe"
	TagFinalized = "finalized"
)

type blockRefKind int

const (
	blockRefTag blockRefKind = iota
	blockRefHash
	blockRefNumber
)

// BlockRef names a block by symbolic tag, 32-byte hash, absolute height, or
// negative offset from the latest block. Exactly one variant is active; use
// the constructors. A nil *BlockRef means "latest".
type BlockRef struct {
	kind blockRefKind
	tag  string
	hash common.Hash
	num  *big.Int
}

func LatestBlock() *BlockRef    { return &BlockRef{kind: blockRefTag, tag: TagLatest} }
func EarliestBlock() *BlockRef  { return &BlockRef{kind: blockRefTag, tag: TagEarliest} }
func PendingBlock() *BlockRef   { return &BlockRef{kind: blockRefTag, tag: TagPending} }
func SafeBlock() *BlockRef      { return &BlockRef{kind: blockRefTag, tag: TagSafe} }
func FinalizedBlock() *BlockRef { return &BlockRef{kind: blockRefTag, tag: TagFinalized} }

// BlockRefFromNumber names a block by height. Negative values are offsets from
// the latest block and require a backend round-trip to resolve.
func BlockRefFromNumber(n int64) *BlockRef {
	return &BlockRef{kind: blockRefNumber, num: big.NewInt(n)}
}

func BlockRefFromBig(n *big.Int) *BlockRef {
	return &BlockRef{kind: blockRefNumber, num: new(big.Int).Set(n)}
}

func BlockRefFromHash(h common.Hash) *BlockRef {
	return &BlockRef{kind: blockRefHash, hash: h}
}

// ParseBlockRef parses the string form of a block reference: a symbolic tag, a
// 32-byte hash, or a hex quantity. Any other shape is an InvalidBlockTagError.
func ParseBlockRef(s string) (*BlockRef, error) {
	switch s {
	case TagLatest, TagEarliest, TagPending, TagSafe, TagFinalized:
		return &BlockRef{kind: blockRefTag, tag: s}, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2+2*common.HashLength {
			b, err := hexutil.Decode(s)
			if err == nil {
				return BlockRefFromHash(common.BytesToHash(b)), nil
			}
		}
		if n, ok := new(big.Int).SetString(s[2:], 16); ok {
			return &BlockRef{kind: blockRefNumber, num: n}, nil
		}
		return nil, &InvalidBlockTagError{Value: s}
	}
	// Decimal heights, including negative offsets from latest.
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return &BlockRef{kind: blockRefNumber, num: n}, nil
	}
	return nil, &InvalidBlockTagError{Value: s}
}

// BlockSelector is the canonical RPC-ready form of a block reference: a tag
// string, a minimal-width hex quantity, or a 32-byte hash. It is immutable
// once produced.
type BlockSelector struct {
	value  string
	byHash bool
}

func (s BlockSelector) String() string { return s.value }

func (s BlockSelector) IsHash() bool { return s.byHash }

// arg returns the form to embed in an RPC parameter list. Hash selectors are
// wrapped into the structured EIP-1898 shape rather than passed as a bare tag.
func (s BlockSelector) arg() any {
	if s.byHash {
		return map[string]any{"blockHash": s.value}
	}
	return s.value
}

// resolveBlockRef turns a block reference into its canonical selector. A nil
// reference defaults to the latest tag. Negative heights are the only case
// requiring a backend round-trip: the offset is applied to the chain height
// observed at resolution time.
func (p *Provider) resolveBlockRef(ctx context.Context, ref *BlockRef) (BlockSelector, error) {
	if ref == nil {
		return BlockSelector{value: TagLatest}, nil
	}
	switch ref.kind {
	case blockRefTag:
		if ref.tag == TagEarliest {
			return BlockSelector{value: "0x0"}, nil
		}
		return BlockSelector{value: ref.tag}, nil
	case blockRefHash:
		return BlockSelector{value: ref.hash.Hex(), byHash: true}, nil
	case blockRefNumber:
		if ref.num == nil {
			break
		}
		if ref.num.Sign() >= 0 {
			return BlockSelector{value: hexutil.EncodeBig(ref.num)}, nil
		}
		head, err := p.BlockNumber(ctx)
		if err != nil {
			return BlockSelector{}, err
		}
		n := new(big.Int).Add(new(big.Int).SetUint64(head), ref.num)
		if n.Sign() < 0 {
			// Offsets past genesis clamp to the earliest block.
			n.SetInt64(0)
		}
		return BlockSelector{value: hexutil.EncodeBig(n)}, nil
	}
	return BlockSelector{}, &InvalidBlockTagError{Value: ref}
}
