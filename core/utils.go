package core

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// addressHex encodes an address as canonical lowercase hex.
func addressHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// dedupSorted removes adjacent duplicates from a sorted slice in place.
func dedupSorted(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i == 0 || in[i-1] != s {
			out = append(out, s)
		}
	}
	return out
}
