package idempotency_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"creditmeter/internal/pkg/idempotency"
)

func TestGenerateKey_DeterministicAndDistinct(t *testing.T) {
	a := idempotency.GenerateKey(1, 10, 0)
	b := idempotency.GenerateKey(1, 10, 0)
	assert.Equal(t, a, b, "same inputs must produce the same key")

	c := idempotency.GenerateKey(1, 10, 1)
	assert.NotEqual(t, a, c, "different sequence numbers must diverge")
}
