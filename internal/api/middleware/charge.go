package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/api/handlers"
	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/pkg/metrics"
)

// ChargeOneCredit reserves defaultAmount credits (the configured
// Ledger.DefaultReserveAmount) before the wrapped handler runs, commits on a
// 2xx/3xx response, and reverses otherwise — including on a panic, where
// the reversal runs from a deferred recover so a crashing handler still
// leaves the reservation in a terminal state instead of PENDING until the
// sweeper eventually catches it.
//
// Ported from the original charge_one_credit view decorator; gin's
// handler chain plays the role of the wrapped view function.
func ChargeOneCredit(store *postgres.Store, defaultAmount int) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet, ok := handlers.GetWallet(c)
		if !ok {
			apiErr := apierr.NewAPIKeyRequired()
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
			return
		}

		idemKey := c.GetHeader("Idempotency-Key")
		requestID := GetRequestID(c)

		tx, err := store.Reserve(c.Request.Context(), postgres.ReserveParams{
			WalletID:       wallet.ID,
			Amount:         defaultAmount,
			IdempotencyKey: idemKey,
			RequestID:      requestID,
			Note:           "api-request",
		})
		if err != nil && !errors.Is(err, postgres.ErrDuplicateReservation) {
			if apierr.IsInsufficientCredits(err) {
				metrics.ReservationsTotal.WithLabelValues("insufficient_credits").Inc()
				apiErr := err.(apierr.APIError)
				c.AbortWithStatusJSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("reservation failed", err, map[string]interface{}{"wallet_id": wallet.ID})
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierr.NewTransientStorage("could not reserve credit"))
			return
		}
		if errors.Is(err, postgres.ErrDuplicateReservation) {
			metrics.ReservationsTotal.WithLabelValues("duplicate").Inc()
		} else {
			metrics.ReservationsTotal.WithLabelValues("ok").Inc()
		}

		handlers.SetReservation(c, tx)

		defer func() {
			if r := recover(); r != nil {
				reverseQuiet(c, store, tx.ID, "exception", "exception")
				panic(r)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 400 {
			if _, err := store.Commit(c.Request.Context(), tx.ID); err != nil {
				logging.Error("commit failed", err, map[string]interface{}{"tx_id": tx.ID})
				metrics.CommitsTotal.WithLabelValues("error").Inc()
				return
			}
			metrics.CommitsTotal.WithLabelValues("ok").Inc()
			return
		}

		reverseQuiet(c, store, tx.ID, "non_2xx", httpReasonNote(status))
	}
}

// reverseQuiet reverses tx, labeling the metric with a bounded reason
// ("exception" or "non_2xx") while the refund row's note gets the precise
// detail (e.g. "http 500").
func reverseQuiet(c *gin.Context, store *postgres.Store, txID int, metricReason, note string) {
	if _, err := store.Reverse(c.Request.Context(), txID, note); err != nil {
		logging.Error("reverse failed", err, map[string]interface{}{"tx_id": txID, "reason": note})
		metrics.ReversalsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.ReversalsTotal.WithLabelValues(metricReason).Inc()
}

func httpReasonNote(status int) string {
	return "http " + strconv.Itoa(status)
}
