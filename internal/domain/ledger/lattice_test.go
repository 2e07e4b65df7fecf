package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creditmeter/internal/domain/ledger"
	"creditmeter/internal/domain/models"
)

func TestCanCommit(t *testing.T) {
	assert.True(t, ledger.CanCommit(models.TxStatusPending))
	assert.False(t, ledger.CanCommit(models.TxStatusCommitted))
	assert.False(t, ledger.CanCommit(models.TxStatusReversed))
}

func TestCanReverse(t *testing.T) {
	assert.True(t, ledger.CanReverse(models.TxStatusPending))
	assert.False(t, ledger.CanReverse(models.TxStatusCommitted))
	assert.False(t, ledger.CanReverse(models.TxStatusReversed))
}

func TestRefundNote(t *testing.T) {
	assert.Equal(t, "refund of tx 42: stale", ledger.RefundNote(42, "stale"))
	assert.Equal(t, "refund of tx 7: non_2xx", ledger.RefundNote(7, "non_2xx"))
}
