package walletpnl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidWallet is returned for addresses that are not 0x-prefixed 20-byte hex.
var ErrInvalidWallet = errors.New("invalid wallet address")

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeWallet validates an EVM address and returns it lowercased.
func NormalizeWallet(wallet string) (string, error) {
	w := strings.TrimSpace(wallet)
	if !walletPattern.MatchString(w) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWallet, wallet)
	}
	return strings.ToLower(w), nil
}
