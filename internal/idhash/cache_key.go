package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// PnlCacheKey computes a deterministic cache key for a wallet PnL response.
// Formula: SHA256(lower(wallet)|start|end)
// Returns hex-encoded hash (64 characters).
func PnlCacheKey(wallet, start, end string) string {
	data := fmt.Sprintf("%s|%s|%s",
		strings.ToLower(wallet),
		start,
		end,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
