package apierr_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"creditmeter/internal/pkg/apierr"
)

func TestInsufficientCredits_StatusAndPredicate(t *testing.T) {
	err := apierr.NewInsufficientCredits()
	assert.Equal(t, http.StatusPaymentRequired, err.Status)
	assert.True(t, apierr.IsInsufficientCredits(err))
	assert.False(t, apierr.IsInsufficientCredits(apierr.NewNotFound("wallet")))
}

func TestNotFound_MessageIncludesResource(t *testing.T) {
	err := apierr.NewNotFound("wallet")
	assert.Equal(t, "wallet not found", err.Message)
	assert.True(t, apierr.IsNotFound(err))
}

func TestInvalidAmount_Predicate(t *testing.T) {
	err := apierr.NewInvalidAmount("amount must be greater than zero")
	assert.True(t, apierr.IsInvalidAmount(err))
	assert.False(t, apierr.IsInvalidAmount(apierr.NewValidation("bad name")))
}

func TestAPIError_ImplementsError(t *testing.T) {
	var err error = apierr.NewConflict("duplicate")
	assert.Equal(t, "duplicate", err.Error())
}
