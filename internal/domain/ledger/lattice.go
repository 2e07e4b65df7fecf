// Package ledger holds the pure state-machine rules shared by the reserve,
// commit, reverse and sweep operations. It never touches storage itself —
// see internal/infrastructure/database/postgres for the transactional
// implementation that enforces these rules under row locks.
package ledger

import (
	"strconv"

	"creditmeter/internal/domain/models"
)

// CanCommit reports whether a commit transition is legal from status.
// Per the status lattice only PENDING may move to COMMITTED; calling commit
// on an already-terminal row is a no-op, not an error.
func CanCommit(status models.TxStatus) bool {
	return status == models.TxStatusPending
}

// CanReverse mirrors CanCommit for the PENDING -> REVERSED edge.
func CanReverse(status models.TxStatus) bool {
	return status == models.TxStatusPending
}

// RefundNote renders the note attached to the COMMITTED REFUND row emitted
// by a reversal, in the shape spec'd for C4: "refund of tx <id>: <reason>".
func RefundNote(txID int, reason string) string {
	return "refund of tx " + strconv.Itoa(txID) + ": " + reason
}
