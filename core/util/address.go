package util

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ParseAddress normalizes a hex string into a checksummed address,
// rejecting strings that are not 20-byte hex.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("'%s' is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

// AddressesToStrings converts addresses to their checksummed hex form.
func AddressesToStrings(addrs []common.Address) []string {
	strs := make([]string, len(addrs))
	for i, a := range addrs {
		strs[i] = a.Hex()
	}
	return strs
}

// SortAddresses orders addresses by the numeric value of their bytes, the
// canonical ordering the manager contract expects for validator lists.
func SortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		a := new(big.Int).SetBytes(addrs[i].Bytes())
		b := new(big.Int).SetBytes(addrs[j].Bytes())
		return a.Cmp(b) < 0
	})
}

// DedupeAddresses returns the input with duplicates removed, preserving
// first occurrence order.
func DedupeAddresses(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// DiffAddresses produces a human-readable line diff between two address
// lists, in the style of difflib: removed entries prefixed "- ", added
// entries "+ ", unchanged "  ". Used to echo validator set changes for
// auditability before they are written on-chain.
func DiffAddresses(before, after []common.Address) []string {
	inBefore := make(map[common.Address]struct{}, len(before))
	for _, a := range before {
		inBefore[a] = struct{}{}
	}
	inAfter := make(map[common.Address]struct{}, len(after))
	for _, a := range after {
		inAfter[a] = struct{}{}
	}

	var lines []string
	for _, a := range before {
		if _, kept := inAfter[a]; kept {
			lines = append(lines, "  "+a.Hex())
		} else {
			lines = append(lines, "- "+a.Hex())
		}
	}
	for _, a := range after {
		if _, existed := inBefore[a]; !existed {
			lines = append(lines, "+ "+a.Hex())
		}
	}
	return lines
}
