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
	"encoding/json"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// FilterSpec selects event logs by address, topic pattern, and either a block
// range or a block hash. BlockHash is mutually exclusive with FromBlock and
// ToBlock. An empty topic position matches any topic at that position.
type FilterSpec struct {
	Address   []*AddressRef
	Topics    [][]common.Hash
	FromBlock *BlockRef
	ToBlock   *BlockRef
	BlockHash *common.Hash
}

// addressSet marshals as a scalar when it holds exactly one address.
type addressSet []string

func (s addressSet) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// topicSet marshals an alternative set at one topic position: null when empty,
// a scalar when singular, an array otherwise.
type topicSet []string

func (s topicSet) MarshalJSON() ([]byte, error) {
	switch len(s) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

// CanonicalFilter is the RPC-ready form of a filter. Absent fields stay out of
// the JSON encoding entirely, so semantically equal specs marshal to
// byte-identical payloads.
type CanonicalFilter struct {
	Address   addressSet `json:"address,omitempty"`
	Topics    []topicSet `json:"topics,omitempty"`
	FromBlock string     `json:"fromBlock,omitempty"`
	ToBlock   string     `json:"toBlock,omitempty"`
	BlockHash string     `json:"blockHash,omitempty"`
}

// canonicalFilter builds the canonical filter for a spec. Address and block
// resolutions are fired concurrently and awaited as a batch before the filter
// is validated and assembled.
func (p *Provider) canonicalFilter(ctx context.Context, spec FilterSpec) (*CanonicalFilter, error) {
	out := &CanonicalFilter{Topics: normalizeTopics(spec.Topics)}

	var (
		addrs    []common.Address
		from, to BlockSelector
	)
	g, gctx := errgroup.WithContext(ctx)
	if len(spec.Address) > 0 {
		g.Go(func() error {
			var err error
			addrs, err = p.resolveAddresses(gctx, spec.Address)
			return err
		})
	}
	if spec.FromBlock != nil {
		g.Go(func() error {
			var err error
			from, err = p.resolveBlockRef(gctx, spec.FromBlock)
			return err
		})
	}
	if spec.ToBlock != nil {
		g.Go(func() error {
			var err error
			to, err = p.resolveBlockRef(gctx, spec.ToBlock)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if spec.BlockHash != nil {
		if spec.FromBlock != nil || spec.ToBlock != nil {
			return nil, ErrInvalidFilter
		}
		out.BlockHash = spec.BlockHash.Hex()
	}
	if spec.FromBlock != nil {
		out.FromBlock = from.String()
	}
	if spec.ToBlock != nil {
		out.ToBlock = to.String()
	}
	out.Address = collapseAddresses(addrs)
	return out, nil
}

// normalizeTopics lowercases every topic and deduplicates and sorts each
// alternative set, so order of alternatives never affects the canonical form.
func normalizeTopics(topics [][]common.Hash) []topicSet {
	if len(topics) == 0 {
		return nil
	}
	out := make([]topicSet, len(topics))
	for i, alts := range topics {
		set := make([]string, 0, len(alts))
		for _, t := range alts {
			set = append(set, t.Hex())
		}
		sort.Strings(set)
		out[i] = dedupSorted(set)
	}
	return out
}

// collapseAddresses lowercases, sorts, and deduplicates the resolved address
// list. Zero addresses collapse to an omitted field.
func collapseAddresses(addrs []common.Address) addressSet {
	if len(addrs) == 0 {
		return nil
	}
	set := make([]string, 0, len(addrs))
	for _, a := range addrs {
		set = append(set, addressHex(a))
	}
	sort.Strings(set)
	return dedupSorted(set)
}
