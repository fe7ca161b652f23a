package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses
var ErrInvalidAddress = errors.New("invalid Ethereum address")

// NormalizeAddress validates an address and returns its EIP-55 checksummed form
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// ShortAddress abbreviates an address for tables, "Contract" for an empty recipient
func ShortAddress(address string) string {
	if address == "" {
		return "Contract"
	}
	if len(address) <= 10 {
		return address
	}
	return address[:10] + "..."
}
