package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ComputeRunID computes a deterministic run identifier using SHA256.
// Formula: SHA256(groups|start|end|schema) truncated to 16 hex characters.
// Two builds over the same groups, window, and schema share a run ID, so
// rebuilt artifacts can be matched to their predecessors.
func ComputeRunID(groupIDs []string, start, end time.Time, columns []string) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		strings.Join(groupIDs, ","),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
		strings.Join(columns, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

// ComputeFileDigest computes the SHA256 of an artifact's contents.
// Returns hex-encoded hash (64 characters), recorded in the manifest so
// consumers can verify artifacts byte for byte.
func ComputeFileDigest(contents []byte) string {
	hash := sha256.Sum256(contents)
	return hex.EncodeToString(hash[:])
}
