package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creditmeter/internal/domain/models"
)

func TestTxType_Valid(t *testing.T) {
	assert.True(t, models.TxTypeDebit.Valid())
	assert.True(t, models.TxTypeCredit.Valid())
	assert.True(t, models.TxTypeRefund.Valid())
	assert.False(t, models.TxType("bogus").Valid())
}

func TestTxStatus_ValidAndTerminal(t *testing.T) {
	assert.True(t, models.TxStatusPending.Valid())
	assert.False(t, models.TxStatusPending.Terminal())

	assert.True(t, models.TxStatusCommitted.Terminal())
	assert.True(t, models.TxStatusReversed.Terminal())
	assert.False(t, models.TxStatus("bogus").Valid())
}

func TestCreditTransaction_Amount(t *testing.T) {
	debit := &models.CreditTransaction{Delta: -15}
	assert.Equal(t, 15, debit.Amount())

	credit := &models.CreditTransaction{Delta: 15}
	assert.Equal(t, 15, credit.Amount())

	zero := &models.CreditTransaction{Delta: 0}
	assert.Equal(t, 0, zero.Amount())
}
