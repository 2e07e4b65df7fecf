package charge_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditmeter/internal/domain/models"
	"creditmeter/test/integration/testenv"
)

func TestChargeOneCredit_SuccessfulRequestCommits(t *testing.T) {
	tc := testenv.NewTestContainer(t)
	walletID := testenv.CreateWallet(t, tc.Router, "charged-wallet")
	testenv.TopUp(t, tc.Router, walletID, 10)
	testenv.CreateAPIKey(t, tc, walletID, "key-success", "test key")

	resp := testenv.Charge(tc.Router, http.MethodPost, "/echo", "key-success")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, 9, testenv.GetBalance(t, tc.Router, walletID), "a successful call commits the reservation — balance stays debited")
}

func TestChargeOneCredit_FailedRequestReverses(t *testing.T) {
	tc := testenv.NewTestContainer(t)
	walletID := testenv.CreateWallet(t, tc.Router, "charged-wallet")
	testenv.TopUp(t, tc.Router, walletID, 10)
	testenv.CreateAPIKey(t, tc, walletID, "key-fail", "test key")

	resp := testenv.Charge(tc.Router, http.MethodPost, "/fail", "key-fail")
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	assert.Equal(t, 10, testenv.GetBalance(t, tc.Router, walletID), "a non-2xx response reverses the reservation — balance is restored")
}

func TestChargeOneCredit_MissingAPIKeyRejected(t *testing.T) {
	tc := testenv.NewTestContainer(t)

	req := testenv.Charge(tc.Router, http.MethodPost, "/echo", "")
	assert.Equal(t, http.StatusUnauthorized, req.Code)
}

func TestChargeOneCredit_InsufficientCreditsRejected(t *testing.T) {
	tc := testenv.NewTestContainer(t)
	walletID := testenv.CreateWallet(t, tc.Router, "broke-wallet")
	testenv.CreateAPIKey(t, tc, walletID, "key-broke", "test key")

	resp := testenv.Charge(tc.Router, http.MethodPost, "/echo", "key-broke")
	assert.Equal(t, http.StatusPaymentRequired, resp.Code)
	assert.Equal(t, 0, testenv.GetBalance(t, tc.Router, walletID))
}

func TestChargeOneCredit_PanicReversesReservation(t *testing.T) {
	tc := testenv.NewTestContainer(t)
	walletID := testenv.CreateWallet(t, tc.Router, "panicky-wallet")
	testenv.TopUp(t, tc.Router, walletID, 10)
	testenv.CreateAPIKey(t, tc, walletID, "key-panic", "test key")

	resp := testenv.Charge(tc.Router, http.MethodPost, "/panic", "key-panic")
	require.Equal(t, http.StatusInternalServerError, resp.Code, "gin.Recovery() must turn the re-panic into a 500")

	assert.Equal(t, 10, testenv.GetBalance(t, tc.Router, walletID), "a panicking handler must reverse the reservation, not leave it pending")

	txs, err := tc.Store.ListTransactions(context.Background(), walletID, 10)
	require.NoError(t, err)

	var sawReversed, sawRefund bool
	for _, row := range txs {
		if row.TxType == models.TxTypeDebit {
			sawReversed = row.TxStatus == models.TxStatusReversed
		}
		if row.TxType == models.TxTypeRefund {
			sawRefund = true
		}
	}
	assert.True(t, sawReversed, "the reservation must end up REVERSED after the panic")
	assert.True(t, sawRefund, "reversing after a panic must still write a refund row")
}
