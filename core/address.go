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

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Addressable is an opaque account source able to produce its own address,
// possibly through an asynchronous lookup. Resolution must be idempotent and
// side-effect free.
type Addressable interface {
	Address(ctx context.Context) (common.Address, error)
}

// NameResolver resolves human-readable account names to literal addresses.
type NameResolver interface {
	ResolveName(ctx context.Context, name string) (common.Address, error)
}

// AddressRef names an account either literally, by resolvable name, or through
// an opaque Addressable. Exactly one variant is active.
type AddressRef struct {
	addr   *common.Address
	name   string
	source Addressable
}

func Addr(a common.Address) *AddressRef { return &AddressRef{addr: &a} }

func Name(name string) *AddressRef { return &AddressRef{name: name} }

func AddrFrom(source Addressable) *AddressRef { return &AddressRef{source: source} }

// ParseAddressRef treats hex-address strings as literals and everything else
// as a name to be resolved.
func ParseAddressRef(s string) *AddressRef {
	if common.IsHexAddress(s) {
		return Addr(common.HexToAddress(s))
	}
	return Name(s)
}

// resolveAddress returns the literal address behind a reference. Only the name
// and Addressable variants can suspend; their failures propagate unchanged.
func (p *Provider) resolveAddress(ctx context.Context, ref *AddressRef) (common.Address, error) {
	switch {
	case ref == nil:
		return common.Address{}, fmt.Errorf("address reference is nil")
	case ref.addr != nil:
		return *ref.addr, nil
	case ref.source != nil:
		return ref.source.Address(ctx)
	}
	if p.resolver == nil {
		return common.Address{}, fmt.Errorf("cannot resolve name %q: no name resolver configured", ref.name)
	}
	return p.resolver.ResolveName(ctx, ref.name)
}

// resolveAddresses resolves every reference concurrently and preserves input
// order in the result.
func (p *Provider) resolveAddresses(ctx context.Context, refs []*AddressRef) ([]common.Address, error) {
	out := make([]common.Address, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			a, err := p.resolveAddress(gctx, ref)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
