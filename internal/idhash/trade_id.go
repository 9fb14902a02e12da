package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|timestamp_ms|side)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	timestampMs int64,
	side string,
) string {
	data := fmt.Sprintf("%s|%d|%s",
		runID,
		timestampMs,
		side,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
