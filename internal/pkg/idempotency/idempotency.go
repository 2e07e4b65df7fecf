// Package idempotency generates synthetic idempotency keys for seeding and
// load-test tooling; the ≤64-char bound itself is enforced once, in
// internal/pkg/validation, since that's where it's actually checked on the
// request path.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey derives a deterministic key for seeding and load-test tooling
// that needs reproducible reservations across runs — not used on the
// request path, where keys are caller-supplied.
func GenerateKey(walletID int, amount int, seq int) string {
	data := fmt.Sprintf("seed:%d:%d:%d", walletID, amount, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
