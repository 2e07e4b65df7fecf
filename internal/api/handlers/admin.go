package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/pkg/metrics"
	"creditmeter/internal/pkg/validation"
)

// MakeTopUpHandler credits a wallet administratively — the operator path
// for restocking credits outside of the request-charging flow, grounded on
// the original top_up service.
func MakeTopUpHandler(container HandlerDependencies) gin.HandlerFunc {
	store := container.GetStore()

	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidation("invalid wallet id")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		var req struct {
			Amount int    `json:"amount"`
			Note   string `json:"note"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := apierr.NewValidation("invalid request body")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if err := validation.ValidateAmount(req.Amount); err != nil {
			apiErr := err.(apierr.APIError)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		tx, err := store.TopUp(c.Request.Context(), id, req.Amount, req.Note)
		if err != nil {
			logging.Error("top-up failed", err, map[string]interface{}{"wallet_id": id, "amount": req.Amount})
			apiErr := apierr.NewTransientStorage("could not apply top-up")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		metrics.TopUpsTotal.Inc()
		logging.Info("wallet topped up", map[string]interface{}{"wallet_id": id, "amount": req.Amount})
		c.JSON(http.StatusCreated, tx)
	}
}
