// Package account defines the opaque identifiers used for wallets and
// deployed contracts.
package account

import (
	"fmt"
	"strings"
)

// Address identifies a wallet or a deployed contract. The zero value is the
// "no address" sentinel.
type Address string

// Zero is the empty address. Creation parameters use it to mean "deploy new".
const Zero Address = ""

// zeroHex is the conventional all-zero wallet accepted as the zero sentinel.
const zeroHex = "0x0000000000000000000000000000000000000000"

// Contract kinds used as address prefixes for deployed instances.
const (
	KindProject = "project"
	KindVault   = "vault"
	KindToken   = "token"
)

// Parse normalizes a textual address. Whitespace is trimmed, hex wallets are
// lowercased and the all-zero wallet maps to Zero.
func Parse(value string) (Address, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == zeroHex {
		return Zero, nil
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] <= 0x20 || trimmed[i] > 0x7e {
			return Zero, fmt.Errorf("address %q contains non-printable characters", value)
		}
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = "0x" + strings.ToLower(trimmed[2:])
		if trimmed == zeroHex {
			return Zero, nil
		}
	}
	return Address(trimmed), nil
}

// MustParse is Parse for fixtures; it panics on malformed input.
func MustParse(value string) Address {
	addr, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return addr
}

// Contract builds the address of a deployed contract of the given kind.
func Contract(kind, id string) Address {
	return Address(kind + ":" + id)
}

// IsZero reports whether a is the zero sentinel.
func (a Address) IsZero() bool {
	return a == Zero
}

// Kind returns the contract kind prefix, or "" for wallets.
func (a Address) Kind() string {
	kind, _, ok := strings.Cut(string(a), ":")
	if !ok {
		return ""
	}
	return kind
}

func (a Address) String() string {
	if a == Zero {
		return zeroHex
	}
	return string(a)
}
