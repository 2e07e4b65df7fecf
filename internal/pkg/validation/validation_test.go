package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/validation"
)

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, validation.ValidateAmount(1))
	assert.NoError(t, validation.ValidateAmount(1000))

	err := validation.ValidateAmount(0)
	assert.True(t, apierr.IsInvalidAmount(err))

	err = validation.ValidateAmount(-5)
	assert.True(t, apierr.IsInvalidAmount(err))
}

func TestValidateIdempotencyKey(t *testing.T) {
	assert.NoError(t, validation.ValidateIdempotencyKey(""))
	assert.NoError(t, validation.ValidateIdempotencyKey("order-42"))

	tooLong := strings.Repeat("a", validation.MaxIdempotencyKeyLen+1)
	assert.Error(t, validation.ValidateIdempotencyKey(tooLong))

	exactly64 := strings.Repeat("a", validation.MaxIdempotencyKeyLen)
	assert.NoError(t, validation.ValidateIdempotencyKey(exactly64))
}

func TestValidateWalletName(t *testing.T) {
	assert.Error(t, validation.ValidateWalletName(""))
	assert.NoError(t, validation.ValidateWalletName("acme"))

	tooLong := strings.Repeat("a", validation.MaxWalletNameLen+1)
	assert.Error(t, validation.ValidateWalletName(tooLong))
}
