package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(ticker|strategy_id|start_ms|end_ms)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	ticker string,
	strategyID string,
	startMs int64,
	endMs int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		ticker,
		strategyID,
		startMs,
		endMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
