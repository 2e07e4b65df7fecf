// Package postgres implements the transactional credit ledger (reserve,
// commit, reverse, sweep) against PostgreSQL via pgx. Every mutating
// operation runs inside a single transaction with explicit row locking —
// there is no application-level mutex standing in for the database's own
// concurrency control.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creditmeter/internal/domain/ledger"
	"creditmeter/internal/domain/models"
	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/config"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/pkg/metrics"
	"creditmeter/internal/pkg/validation"
)

var (
	// ErrDuplicateReservation signals that a reservation with the same
	// (wallet_id, idempotency_key) already exists. Not an application
	// error — callers should fetch and return the existing reservation.
	ErrDuplicateReservation = errors.New("reservation already exists for this idempotency key")

	ErrWalletNotFound = errors.New("wallet not found")
	ErrAPIKeyNotFound = errors.New("api key not found or inactive")
)

// Store implements the ledger against PostgreSQL using pgxpool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool per cfg and verifies connectivity.
func NewStore(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logging.Info("Postgres connection pool ready", map[string]interface{}{
		"max_conns": poolConfig.MaxConns,
		"min_conns": poolConfig.MinConns,
	})

	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Reset truncates all tables. Test-only.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE TABLE credit_transactions RESTART IDENTITY CASCADE;
		TRUNCATE TABLE api_keys RESTART IDENTITY CASCADE;
		TRUNCATE TABLE wallets RESTART IDENTITY CASCADE;
	`)
	return err
}

// CreateWallet inserts a new wallet with a zero balance.
func (s *Store) CreateWallet(ctx context.Context, name string) (*models.Wallet, error) {
	w := &models.Wallet{Name: name}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO wallets (name, balance, updated_at) VALUES ($1, 0, now())
		 RETURNING id, balance, updated_at`,
		name,
	).Scan(&w.ID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert wallet: %w", err)
	}
	return w, nil
}

func (s *Store) GetWallet(ctx context.Context, id int) (*models.Wallet, error) {
	w := &models.Wallet{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, balance, updated_at FROM wallets WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Balance, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// CreateAPIKey issues a new active key for wallet.
func (s *Store) CreateAPIKey(ctx context.Context, walletID int, key, label string) (*models.APIKey, error) {
	ak := &models.APIKey{WalletID: walletID, Key: key, Label: label, IsActive: true}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO api_keys (wallet_id, key, label, is_active) VALUES ($1, $2, $3, true)
		 RETURNING id`,
		walletID, key, label,
	).Scan(&ak.ID)
	if err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	return ak, nil
}

// ResolveAPIKey looks up the wallet an active API key charges against.
func (s *Store) ResolveAPIKey(ctx context.Context, key string) (*models.Wallet, error) {
	w := &models.Wallet{}
	err := s.pool.QueryRow(ctx, `
		SELECT w.id, w.name, w.balance, w.updated_at
		FROM api_keys ak
		JOIN wallets w ON w.id = ak.wallet_id
		WHERE ak.key = $1 AND ak.is_active
	`, key).Scan(&w.ID, &w.Name, &w.Balance, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}
	return w, nil
}

// TopUp credits a wallet administratively. Born COMMITTED — a top-up never
// needs a commit/reverse decision of its own.
func (s *Store) TopUp(ctx context.Context, walletID int, amount int, note string) (*models.CreditTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance int
	err = tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2 RETURNING balance`,
		amount, walletID,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credit wallet: %w", err)
	}

	row := &models.CreditTransaction{
		WalletID: walletID,
		Delta:    amount,
		TxType:   models.TxTypeCredit,
		TxStatus: models.TxStatusCommitted,
		Note:     note,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO credit_transactions (wallet_id, delta, tx_type, tx_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, created_at
	`, row.WalletID, row.Delta, row.TxType, row.TxStatus, row.Note).Scan(&row.ID, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert top-up row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit top-up: %w", err)
	}
	metrics.WalletBalanceHistogram.Observe(float64(newBalance))
	return row, nil
}

// ReserveParams bundles the inputs to Reserve.
type ReserveParams struct {
	WalletID       int
	Amount         int
	IdempotencyKey string // empty means no dedup
	RequestID      string
	Note           string
}

// Reserve performs the two-phase reservation per §4.2: validate the amount,
// then insert-with-conflict-arbitration on the idempotency key before ever
// touching the balance, then a conditional decrement that only succeeds if
// the wallet carries enough balance. Insert-first matters for the race: the
// losing side of a duplicate key must return the winner's row without ever
// attempting a decrement, so two concurrent callers sharing a key can never
// debit the wallet twice. On the happy path it returns a freshly inserted
// PENDING DEBIT row; on a duplicate key it returns the existing row and
// ErrDuplicateReservation so the caller can decide how to surface it.
func (s *Store) Reserve(ctx context.Context, p ReserveParams) (*models.CreditTransaction, error) {
	if err := validation.ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	if err := validation.ValidateIdempotencyKey(p.IdempotencyKey); err != nil {
		return nil, err
	}

	if p.IdempotencyKey != "" {
		// Fast path: avoid opening a transaction at all for the common case
		// of a key we've already seen settle. The insert below is still the
		// real guard against a concurrent race landing in this same window.
		existing, err := s.findByIdempotencyKey(ctx, p.WalletID, p.IdempotencyKey)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check idempotency: %w", err)
		}
		if err == nil {
			return existing, ErrDuplicateReservation
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var idempotencyKey, requestID *string
	if p.IdempotencyKey != "" {
		idempotencyKey = &p.IdempotencyKey
	}
	if p.RequestID != "" {
		requestID = &p.RequestID
	}

	row := &models.CreditTransaction{
		WalletID:       p.WalletID,
		Delta:          -p.Amount,
		TxType:         models.TxTypeDebit,
		TxStatus:       models.TxStatusPending,
		IdempotencyKey: idempotencyKey,
		RequestID:      requestID,
		Note:           p.Note,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO credit_transactions
			(wallet_id, delta, tx_type, tx_status, idempotency_key, request_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, created_at
	`, row.WalletID, row.Delta, row.TxType, row.TxStatus, row.IdempotencyKey, row.RequestID, row.Note,
	).Scan(&row.ID, &row.CreatedAt)

	if err != nil {
		// A racing reserve beat us to the same idempotency key between our
		// fast-path check above and this insert. The loser never reaches
		// the decrement below: the partial unique index is the real guard.
		if isUniqueViolation(err) {
			existing, findErr := s.findByIdempotencyKey(ctx, p.WalletID, p.IdempotencyKey)
			if findErr != nil {
				return nil, fmt.Errorf("recover from idempotency race: %w", findErr)
			}
			return existing, ErrDuplicateReservation
		}
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	// Conditional decrement: only succeeds if balance >= amount, so there is
	// no read-then-write window for a concurrent reservation to race into.
	// A failure here rolls back the insert too — no PENDING row is left
	// dangling for a reservation that never actually debited anything.
	var newBalance int
	err = tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance - $1, updated_at = now()
		 WHERE id = $2 AND balance >= $1
		 RETURNING balance`,
		p.Amount, p.WalletID,
	).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.GetWallet(ctx, p.WalletID); err != nil {
			return nil, err
		}
		return nil, apierr.NewInsufficientCredits()
	}
	if err != nil {
		return nil, fmt.Errorf("decrement wallet: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	metrics.WalletBalanceHistogram.Observe(float64(newBalance))
	return row, nil
}

func (s *Store) findByIdempotencyKey(ctx context.Context, walletID int, key string) (*models.CreditTransaction, error) {
	row := &models.CreditTransaction{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, wallet_id, delta, tx_type, tx_status, idempotency_key, request_id, note, created_at
		FROM credit_transactions
		WHERE wallet_id = $1 AND idempotency_key = $2
	`, walletID, key).Scan(
		&row.ID, &row.WalletID, &row.Delta, &row.TxType, &row.TxStatus,
		&row.IdempotencyKey, &row.RequestID, &row.Note, &row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Commit transitions a PENDING reservation to COMMITTED. Calling commit on
// an already-terminal row is a no-op: first writer wins, determined by the
// row lock this function takes before checking status.
func (s *Store) Commit(ctx context.Context, txID int) (*models.CreditTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row, err := lockTransaction(ctx, tx, txID)
	if err != nil {
		return nil, err
	}

	if !ledger.CanCommit(row.TxStatus) {
		return row, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE credit_transactions SET tx_status = $1 WHERE id = $2`,
		models.TxStatusCommitted, txID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark committed: %w", err)
	}
	row.TxStatus = models.TxStatusCommitted

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return row, nil
}

// Reverse transitions a PENDING reservation to REVERSED, restores the
// wallet balance, and inserts a COMMITTED REFUND row documenting why.
// Calling reverse on an already-terminal row is a no-op for the same
// first-writer-wins reason as Commit.
func (s *Store) Reverse(ctx context.Context, txID int, reason string) (*models.CreditTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row, err := lockTransaction(ctx, tx, txID)
	if err != nil {
		return nil, err
	}

	if !ledger.CanReverse(row.TxStatus) {
		return row, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE credit_transactions SET tx_status = $1 WHERE id = $2`,
		models.TxStatusReversed, txID,
	)
	if err != nil {
		return nil, fmt.Errorf("mark reversed: %w", err)
	}
	row.TxStatus = models.TxStatusReversed

	refundAmount := row.Amount()
	var newBalance int
	err = tx.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2 RETURNING balance`,
		refundAmount, row.WalletID,
	).Scan(&newBalance)
	if err != nil {
		return nil, fmt.Errorf("restore balance: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO credit_transactions (wallet_id, delta, tx_type, tx_status, request_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, row.WalletID, refundAmount, models.TxTypeRefund, models.TxStatusCommitted, row.RequestID, ledger.RefundNote(row.ID, reason))
	if err != nil {
		return nil, fmt.Errorf("insert refund row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reversal: %w", err)
	}
	metrics.WalletBalanceHistogram.Observe(float64(newBalance))
	return row, nil
}

func lockTransaction(ctx context.Context, tx pgx.Tx, txID int) (*models.CreditTransaction, error) {
	row := &models.CreditTransaction{}
	err := tx.QueryRow(ctx, `
		SELECT id, wallet_id, delta, tx_type, tx_status, idempotency_key, request_id, note, created_at
		FROM credit_transactions
		WHERE id = $1
		FOR UPDATE
	`, txID).Scan(
		&row.ID, &row.WalletID, &row.Delta, &row.TxType, &row.TxStatus,
		&row.IdempotencyKey, &row.RequestID, &row.Note, &row.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NewNotFound("transaction")
	}
	if err != nil {
		return nil, fmt.Errorf("lock transaction: %w", err)
	}
	return row, nil
}

// ListTransactions returns a wallet's ledger history, newest first.
func (s *Store) ListTransactions(ctx context.Context, walletID int, limit int) ([]*models.CreditTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, wallet_id, delta, tx_type, tx_status, idempotency_key, request_id, note, created_at
		FROM credit_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.CreditTransaction
	for rows.Next() {
		row := &models.CreditTransaction{}
		if err := rows.Scan(
			&row.ID, &row.WalletID, &row.Delta, &row.TxType, &row.TxStatus,
			&row.IdempotencyKey, &row.RequestID, &row.Note, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SweepStale reverses PENDING DEBIT reservations older than olderThan, in
// batches of at most chunkSize, using SKIP LOCKED so the sweeper can run
// concurrently with itself and with live commit/reverse traffic without
// blocking on rows another worker already holds. Returns the number of
// reservations reversed in this batch; callers loop until it returns 0.
func (s *Store) SweepStale(ctx context.Context, olderThan time.Duration, chunkSize int) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id FROM credit_transactions
		WHERE tx_status = $1 AND tx_type = $2 AND created_at < $3
		ORDER BY id
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	`, models.TxStatusPending, models.TxTypeDebit, cutoff, chunkSize)
	if err != nil {
		return 0, fmt.Errorf("select stale batch: %w", err)
	}

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stale id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, nil
	}

	for _, id := range ids {
		row, err := lockTransaction(ctx, tx, id)
		if err != nil {
			return 0, fmt.Errorf("lock stale row %d: %w", id, err)
		}
		if !ledger.CanReverse(row.TxStatus) {
			continue
		}

		if _, err := tx.Exec(ctx,
			`UPDATE credit_transactions SET tx_status = $1 WHERE id = $2`,
			models.TxStatusReversed, id,
		); err != nil {
			return 0, fmt.Errorf("mark stale reversed: %w", err)
		}

		refundAmount := row.Amount()
		if _, err := tx.Exec(ctx,
			`UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2`,
			refundAmount, row.WalletID,
		); err != nil {
			return 0, fmt.Errorf("restore stale balance: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO credit_transactions (wallet_id, delta, tx_type, tx_status, request_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, row.WalletID, refundAmount, models.TxTypeRefund, models.TxStatusCommitted, row.RequestID, ledger.RefundNote(row.ID, "stale")); err != nil {
			return 0, fmt.Errorf("insert stale refund row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit sweep batch: %w", err)
	}
	return len(ids), nil
}

// BackdateTransactions rewrites created_at for the given rows in one bulk
// update — used by seed tooling to manufacture stale reservations for
// exercising the sweeper without waiting out a real TTL.
func (s *Store) BackdateTransactions(ctx context.Context, ids []int, newCreatedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE credit_transactions SET created_at = $1 WHERE id = ANY($2)`,
		newCreatedAt, ids,
	)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
