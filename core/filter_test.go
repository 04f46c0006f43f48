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
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCanonicalJSON(t *testing.T, p *Provider, spec FilterSpec) string {
	t.Helper()
	filter, err := p.canonicalFilter(context.TODO(), spec)
	require.NoError(t, err)
	b, err := json.Marshal(filter)
	require.NoError(t, err)
	return string(b)
}

func TestCanonicalFilterTopicOrderIndependence(t *testing.T) {
	p := New(new(mockTransport))
	topicA := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	topicB := common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	ab := mustCanonicalJSON(t, p, FilterSpec{Topics: [][]common.Hash{{topicA, topicB}}})
	ba := mustCanonicalJSON(t, p, FilterSpec{Topics: [][]common.Hash{{topicB, topicA}}})
	assert.Equal(t, ab, ba)

	// Duplicates collapse.
	aab := mustCanonicalJSON(t, p, FilterSpec{Topics: [][]common.Hash{{topicA, topicA, topicB}}})
	assert.Equal(t, ab, aab)

	// A single topic is a scalar, an empty position is null.
	single := mustCanonicalJSON(t, p, FilterSpec{Topics: [][]common.Hash{nil, {topicA}}})
	assert.Equal(t, `{"topics":[null,"`+topicA.Hex()+`"]}`, single)
}

func TestCanonicalFilterAddressCollapsing(t *testing.T) {
	p := New(new(mockTransport))
	addr1 := common.HexToAddress("0x1111111111111111111111111111111111111111")
	addr2 := common.HexToAddress("0x2222222222222222222222222222222222222222")

	// Multiple addresses sort lexicographically regardless of input order.
	sorted := mustCanonicalJSON(t, p, FilterSpec{Address: []*AddressRef{Addr(addr2), Addr(addr1)}})
	assert.Equal(t, `{"address":["0x1111111111111111111111111111111111111111","0x2222222222222222222222222222222222222222"]}`, sorted)

	// A single address collapses to a scalar, not a one-element array.
	single := mustCanonicalJSON(t, p, FilterSpec{Address: []*AddressRef{Addr(addr1)}})
	assert.Equal(t, `{"address":"0x1111111111111111111111111111111111111111"}`, single)

	// Duplicates collapse to a scalar as well.
	dup := mustCanonicalJSON(t, p, FilterSpec{Address: []*AddressRef{Addr(addr1), Addr(addr1)}})
	assert.Equal(t, single, dup)

	// No addresses: the field is omitted entirely.
	empty := mustCanonicalJSON(t, p, FilterSpec{})
	assert.Equal(t, `{}`, empty)
}

func TestCanonicalFilterBlockRange(t *testing.T) {
	p := New(new(mockTransport))

	got := mustCanonicalJSON(t, p, FilterSpec{
		FromBlock: BlockRefFromNumber(16),
		ToBlock:   LatestBlock(),
	})
	assert.Equal(t, `{"fromBlock":"0x10","toBlock":"latest"}`, got)

	hash := common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	got = mustCanonicalJSON(t, p, FilterSpec{BlockHash: &hash})
	assert.Equal(t, `{"blockHash":"`+hash.Hex()+`"}`, got)
}

func TestCanonicalFilterRejectsHashWithRange(t *testing.T) {
	p := New(new(mockTransport))
	hash := common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")

	_, err := p.canonicalFilter(context.TODO(), FilterSpec{
		BlockHash: &hash,
		FromBlock: BlockRefFromNumber(1),
	})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = p.canonicalFilter(context.TODO(), FilterSpec{
		BlockHash: &hash,
		ToBlock:   LatestBlock(),
	})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

type mapResolver map[string]common.Address

func (m mapResolver) ResolveName(_ context.Context, name string) (common.Address, error) {
	a, ok := m[name]
	if !ok {
		return common.Address{}, fmt.Errorf("unknown name %q", name)
	}
	return a, nil
}

func TestCanonicalFilterResolvesNames(t *testing.T) {
	resolver := mapResolver{
		"one.eth": common.HexToAddress("0x1111111111111111111111111111111111111111"),
		"two.eth": common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}
	p := New(new(mockTransport), WithNameResolver(resolver))

	got := mustCanonicalJSON(t, p, FilterSpec{
		Address: []*AddressRef{Name("two.eth"), Name("one.eth")},
	})
	assert.Equal(t, `{"address":["0x1111111111111111111111111111111111111111","0x2222222222222222222222222222222222222222"]}`, got)

	// An unknown name propagates the resolver's failure.
	_, err := p.canonicalFilter(context.TODO(), FilterSpec{
		Address: []*AddressRef{Name("missing.eth")},
	})
	assert.Error(t, err)
}
