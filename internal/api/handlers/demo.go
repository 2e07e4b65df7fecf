package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Echo is a minimal charge-protected endpoint: every call to it costs one
// credit via the ChargeOneCredit middleware ahead of it in the chain. It
// exists to exercise and demonstrate the reserve/commit/reverse wiring end
// to end without any business logic of its own.
func Echo(c *gin.Context) {
	var body map[string]interface{}
	_ = c.ShouldBindJSON(&body)

	reservation, _ := GetReservation(c)
	wallet, _ := GetWallet(c)

	c.JSON(http.StatusOK, gin.H{
		"echo":           body,
		"wallet_id":      wallet.ID,
		"reservation_id": reservation.ID,
	})
}

// Fail always returns a 500 — used to exercise the reverse-on-non-2xx path
// from integration tests without relying on a real failure condition.
func Fail(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "forced failure"})
}

// Panic always panics — used to exercise ChargeOneCredit's reverse-on-panic
// path, which must leave the reservation REVERSED (with a refund row)
// rather than stuck PENDING, even though the handler itself never returns.
func Panic(c *gin.Context) {
	panic("forced panic")
}
