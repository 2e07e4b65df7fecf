package validation

import (
	"creditmeter/internal/pkg/apierr"
)

const (
	MaxIdempotencyKeyLen = 64
	MaxNoteLen           = 240
	MaxWalletNameLen     = 140
)

// ValidateAmount enforces §4.2 step 1: amount must be a strictly positive
// integer.
func ValidateAmount(amount int) error {
	if amount <= 0 {
		return apierr.NewInvalidAmount("amount must be greater than zero")
	}
	return nil
}

// ValidateIdempotencyKey enforces the ≤64-char bound from §3. An absent key
// (empty string) is always valid — idempotency is optional.
func ValidateIdempotencyKey(key string) error {
	if key == "" {
		return nil
	}
	if len(key) > MaxIdempotencyKeyLen {
		return apierr.NewValidation("idempotency key exceeds 64 characters")
	}
	return nil
}

func ValidateWalletName(name string) error {
	if name == "" {
		return apierr.NewValidation("wallet name is required")
	}
	if len(name) > MaxWalletNameLen {
		return apierr.NewValidation("wallet name exceeds 140 characters")
	}
	return nil
}
