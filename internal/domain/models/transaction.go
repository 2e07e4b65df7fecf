package models

import "time"

// TxType is set at insert and never mutated. Only DEBIT rows are ever
// PENDING; CREDIT and REFUND rows are born COMMITTED.
type TxType string

const (
	TxTypeDebit  TxType = "debit"
	TxTypeCredit TxType = "credit"
	TxTypeRefund TxType = "refund"
)

func (t TxType) Valid() bool {
	switch t {
	case TxTypeDebit, TxTypeCredit, TxTypeRefund:
		return true
	default:
		return false
	}
}

// TxStatus is the status lattice: PENDING --commit--> COMMITTED,
// PENDING --reverse--> REVERSED. Both terminal states are final.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusCommitted TxStatus = "committed"
	TxStatusReversed  TxStatus = "reversed"
)

func (s TxStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusCommitted, TxStatusReversed:
		return true
	default:
		return false
	}
}

func (s TxStatus) Terminal() bool {
	return s == TxStatusCommitted || s == TxStatusReversed
}

// CreditTransaction is a ledger row. Rows are append-first: only tx_status
// and note ever mutate, and only on the PENDING -> {COMMITTED,REVERSED} edge.
// The one exception is the seeding tool Store.BackdateTransactions, which
// rewrites created_at.
type CreditTransaction struct {
	ID             int       `json:"id"`
	WalletID       int       `json:"wallet_id"`
	Delta          int       `json:"delta"`
	TxType         TxType    `json:"tx_type"`
	TxStatus       TxStatus  `json:"tx_status"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
	RequestID      *string   `json:"request_id,omitempty"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"created_at"`
}

// Amount is the absolute value of Delta — the credit count the row moves.
func (t *CreditTransaction) Amount() int {
	if t.Delta < 0 {
		return -t.Delta
	}
	return t.Delta
}
