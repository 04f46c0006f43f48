// Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveBlockRefLocal(t *testing.T) {
	tr := new(mockTransport)
	p := New(tr)
	ctx := context.TODO()

	// Absent reference defaults to the latest tag.
	sel, err := p.resolveBlockRef(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, TagLatest, sel.String())

	// Earliest always resolves to the height-zero quantity.
	sel, err = p.resolveBlockRef(ctx, EarliestBlock())
	require.NoError(t, err)
	assert.Equal(t, "0x0", sel.String())

	// The remaining tags pass through unchanged.
	for _, ref := range []*BlockRef{LatestBlock(), PendingBlock(), SafeBlock(), FinalizedBlock()} {
		sel, err = p.resolveBlockRef(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, ref.tag, sel.String())
	}

	// Non-negative heights quantity-encode with minimal width.
	sel, err = p.resolveBlockRef(ctx, BlockRefFromNumber(0))
	require.NoError(t, err)
	assert.Equal(t, "0x0", sel.String())
	sel, err = p.resolveBlockRef(ctx, BlockRefFromNumber(255))
	require.NoError(t, err)
	assert.Equal(t, "0xff", sel.String())

	// No backend call was needed for any of the above.
	tr.AssertNotCalled(t, "Send")
}

func TestResolveBlockRefNumberMatchesHexForm(t *testing.T) {
	tr := new(mockTransport)
	p := New(tr)
	ctx := context.TODO()

	parsed, err := ParseBlockRef("0x10")
	require.NoError(t, err)

	fromHex, err := p.resolveBlockRef(ctx, parsed)
	require.NoError(t, err)
	fromNum, err := p.resolveBlockRef(ctx, BlockRefFromNumber(16))
	require.NoError(t, err)
	assert.Equal(t, fromNum, fromHex)

	// Non-minimal hex re-encodes to the minimal quantity form.
	parsed, err = ParseBlockRef("0x010")
	require.NoError(t, err)
	sel, err := p.resolveBlockRef(ctx, parsed)
	require.NoError(t, err)
	assert.Equal(t, "0x10", sel.String())
}

func TestResolveBlockRefHash(t *testing.T) {
	tr := new(mockTransport)
	p := New(tr)
	hash := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	sel, err := p.resolveBlockRef(context.TODO(), BlockRefFromHash(hash))
	require.NoError(t, err)
	assert.True(t, sel.IsHash())
	assert.Equal(t, hash.Hex(), sel.String())

	// Embedded in a payload, a hash selector takes the structured form.
	arg, err := json.Marshal(sel.arg())
	require.NoError(t, err)
	assert.JSONEq(t, `{"blockHash":"`+hash.Hex()+`"}`, string(arg))

	// A parsed 32-byte hex string is a hash reference, not a quantity.
	parsed, err := ParseBlockRef(hash.Hex())
	require.NoError(t, err)
	sel, err = p.resolveBlockRef(context.TODO(), parsed)
	require.NoError(t, err)
	assert.True(t, sel.IsHash())
}

func TestResolveBlockRefNegativeOffset(t *testing.T) {
	tr := new(mockTransport)
	p := New(tr)

	// Head is 100; an offset of -10 lands on block 90.
	call := tr.On("Send", mock.Anything, "eth_blockNumber", mock.Anything).
		Return(json.RawMessage(`"0x64"`), nil)
	sel, err := p.resolveBlockRef(context.TODO(), BlockRefFromNumber(-10))
	require.NoError(t, err)
	assert.Equal(t, "0x5a", sel.String())
	tr.AssertExpectations(t)
	call.Unset()

	// The offset reflects the height at resolution time.
	call = tr.On("Send", mock.Anything, "eth_blockNumber", mock.Anything).
		Return(json.RawMessage(`"0x65"`), nil)
	sel, err = p.resolveBlockRef(context.TODO(), BlockRefFromNumber(-10))
	require.NoError(t, err)
	assert.Equal(t, "0x5b", sel.String())
	call.Unset()

	// Offsets past genesis clamp to the earliest block.
	call = tr.On("Send", mock.Anything, "eth_blockNumber", mock.Anything).
		Return(json.RawMessage(`"0x5"`), nil)
	sel, err = p.resolveBlockRef(context.TODO(), BlockRefFromNumber(-10))
	require.NoError(t, err)
	assert.Equal(t, "0x0", sel.String())
	call.Unset()
}

func TestParseBlockRefInvalid(t *testing.T) {
	for _, s := range []string{"", "bogus", "0xzz", "latest1"} {
		_, err := ParseBlockRef(s)
		var invalid *InvalidBlockTagError
		assert.ErrorAs(t, err, &invalid, "input %q", s)
	}
}
