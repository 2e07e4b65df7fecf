package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditmeter/internal/domain/models"
	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/apierr"
	"creditmeter/test/integration/testenv"
)

func TestReserveCommit_HappyPath(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "acme")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 100, "seed")
	require.NoError(t, err)

	tx, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 10, Note: "test-reserve"})
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusPending, tx.TxStatus)
	assert.Equal(t, models.TxTypeDebit, tx.TxType)

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, w.Balance)

	committed, err := store.Commit(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusCommitted, committed.TxStatus)

	w, err = store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, w.Balance, "commit must not touch the balance, only flip status")
}

func TestReserve_InsufficientCredits(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "poor")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 5, "seed")
	require.NoError(t, err)

	_, err = store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 10})
	require.Error(t, err)
	assert.True(t, apierr.IsInsufficientCredits(err))

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, w.Balance, "a failed reservation must not touch the balance")
}

func TestReverse_RestoresBalanceAndWritesRefund(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "acme")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 50, "seed")
	require.NoError(t, err)

	tx, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 20})
	require.NoError(t, err)

	reversed, err := store.Reverse(ctx, tx.ID, "handler-failed")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusReversed, reversed.TxStatus)

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, w.Balance, "reverse must restore the full reserved amount")

	txs, err := store.ListTransactions(ctx, wallet.ID, 10)
	require.NoError(t, err)

	var sawRefund bool
	for _, row := range txs {
		if row.TxType == models.TxTypeRefund {
			sawRefund = true
			assert.Equal(t, models.TxStatusCommitted, row.TxStatus)
			assert.Contains(t, row.Note, "handler-failed")
		}
	}
	assert.True(t, sawRefund, "reverse must insert a COMMITTED refund row")
}

func TestCommitThenReverse_FirstWriterWins(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "acme")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 30, "seed")
	require.NoError(t, err)

	tx, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 10})
	require.NoError(t, err)

	_, err = store.Commit(ctx, tx.ID)
	require.NoError(t, err)

	// Reverse on an already-committed row is a no-op: it must not restore
	// the balance or write a second refund row.
	reReversed, err := store.Reverse(ctx, tx.ID, "too-late")
	require.NoError(t, err)
	assert.Equal(t, models.TxStatusCommitted, reReversed.TxStatus)

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, w.Balance)
}

func TestReserve_DuplicateIdempotencyKeyReturnsExistingRow(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "acme")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 50, "seed")
	require.NoError(t, err)

	params := postgres.ReserveParams{WalletID: wallet.ID, Amount: 10, IdempotencyKey: "order-42"}

	first, err := store.Reserve(ctx, params)
	require.NoError(t, err)

	second, err := store.Reserve(ctx, params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, postgres.ErrDuplicateReservation))
	assert.Equal(t, first.ID, second.ID)

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, w.Balance, "the wallet must only be debited once across both calls")
}

func TestReserve_ConcurrentRaceOnlyOneWins(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "racer")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 10, "seed")
	require.NoError(t, err)

	const attempts = 5
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 10})
			results[i] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apierr.IsInsufficientCredits(err))
		}
	}
	assert.Equal(t, 1, succeeded, "only one concurrent reservation should succeed against a balance of 10")

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, w.Balance)
}

func TestReserve_ConcurrentSameIdempotencyKeyOnlyDebitsOnce(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "racer-key")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 50, "seed")
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	txs := make([]*models.CreditTransaction, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := store.Reserve(ctx, postgres.ReserveParams{
				WalletID:       wallet.ID,
				Amount:         10,
				IdempotencyKey: "shared-key",
			})
			txs[i] = tx
			errs[i] = err
		}(i)
	}
	wg.Wait()

	winnerID := 0
	duplicates := 0
	for i, err := range errs {
		require.NotNil(t, txs[i], "every caller, winner or loser, must get a reservation row back")
		if err == nil {
			winnerID = txs[i].ID
		} else {
			require.True(t, errors.Is(err, postgres.ErrDuplicateReservation))
			duplicates++
		}
	}
	assert.Equal(t, attempts-1, duplicates, "every caller but the winner must see ErrDuplicateReservation")
	for i, tx := range txs {
		assert.Equal(t, winnerID, tx.ID, "every caller must see the same reservation row, winner %d", i)
	}

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, w.Balance, "the shared idempotency key must debit the wallet exactly once")
}

func TestSweepStale_ReversesOldPendingReservations(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	wallet, err := store.CreateWallet(ctx, "sweepable")
	require.NoError(t, err)
	_, err = store.TopUp(ctx, wallet.ID, 30, "seed")
	require.NoError(t, err)

	stale, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 15})
	require.NoError(t, err)
	fresh, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 10})
	require.NoError(t, err)

	require.NoError(t, store.BackdateTransactions(ctx, []int{stale.ID}, time.Now().Add(-time.Hour)))

	reversed, err := store.SweepStale(ctx, 5*time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, reversed)

	w, err := store.GetWallet(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, w.Balance, "only the stale reservation's 15 credits should be restored")

	txs, err := store.ListTransactions(ctx, wallet.ID, 10)
	require.NoError(t, err)
	var freshStillPending bool
	for _, row := range txs {
		if row.ID == fresh.ID {
			freshStillPending = row.TxStatus == models.TxStatusPending
		}
	}
	assert.True(t, freshStillPending, "a reservation younger than the TTL must not be swept")
}

func TestSweepStale_ParallelSweepersAcrossManyWalletsSkipLockedRows(t *testing.T) {
	store := testenv.SetupIntegrationTest(t)
	ctx := context.Background()

	const walletCount = 6
	staleIDs := make([]int, 0, walletCount)
	wallets := make([]int, 0, walletCount)

	for i := 0; i < walletCount; i++ {
		wallet, err := store.CreateWallet(ctx, fmt.Sprintf("sweepable-%d", i))
		require.NoError(t, err)
		wallets = append(wallets, wallet.ID)

		_, err = store.TopUp(ctx, wallet.ID, 20, "seed")
		require.NoError(t, err)

		tx, err := store.Reserve(ctx, postgres.ReserveParams{WalletID: wallet.ID, Amount: 20})
		require.NoError(t, err)
		staleIDs = append(staleIDs, tx.ID)
	}

	require.NoError(t, store.BackdateTransactions(ctx, staleIDs, time.Now().Add(-time.Hour)))

	// Two sweepers racing over the same stale batch: FOR UPDATE SKIP LOCKED
	// means each row gets reversed exactly once, by whichever sweeper locks
	// it first, with no double refund and no row left behind.
	const sweepers = 2
	var wg sync.WaitGroup
	totals := make([]int, sweepers)
	for i := 0; i < sweepers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := store.SweepStale(ctx, 5*time.Minute, 100)
			require.NoError(t, err)
			totals[i] = n
		}(i)
	}
	wg.Wait()

	sum := totals[0] + totals[1]
	assert.Equal(t, walletCount, sum, "together the sweepers must reverse every stale reservation exactly once")

	for _, walletID := range wallets {
		w, err := store.GetWallet(ctx, walletID)
		require.NoError(t, err)
		assert.Equal(t, 20, w.Balance, "each wallet's stale reservation must be fully refunded")
	}
}
