package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/pkg/validation"
)

// MakeCreateWalletHandler provisions a new wallet with a zero balance.
func MakeCreateWalletHandler(container HandlerDependencies) gin.HandlerFunc {
	store := container.GetStore()

	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := apierr.NewValidation("invalid request body")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if err := validation.ValidateWalletName(req.Name); err != nil {
			apiErr := err.(apierr.APIError)
			c.JSON(apiErr.Status, apiErr)
			return
		}

		wallet, err := store.CreateWallet(c.Request.Context(), req.Name)
		if err != nil {
			logging.Error("failed to create wallet", err, map[string]interface{}{"name": req.Name})
			apiErr := apierr.NewTransientStorage("could not create wallet")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		logging.Info("wallet created", map[string]interface{}{"wallet_id": wallet.ID, "name": wallet.Name})
		c.JSON(http.StatusCreated, wallet)
	}
}

// MakeGetWalletHandler returns a wallet's current balance.
func MakeGetWalletHandler(container HandlerDependencies) gin.HandlerFunc {
	store := container.GetStore()

	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidation("invalid wallet id")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		wallet, err := store.GetWallet(c.Request.Context(), id)
		if errors.Is(err, postgres.ErrWalletNotFound) {
			apiErr := apierr.NewNotFound("wallet")
			c.JSON(apiErr.Status, apiErr)
			return
		}
		if err != nil {
			logging.Error("failed to get wallet", err, map[string]interface{}{"wallet_id": id})
			apiErr := apierr.NewTransientStorage("could not load wallet")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, wallet)
	}
}

// MakeListTransactionsHandler returns a wallet's ledger history.
func MakeListTransactionsHandler(container HandlerDependencies) gin.HandlerFunc {
	store := container.GetStore()

	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			apiErr := apierr.NewValidation("invalid wallet id")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		limit := 50
		if l := c.Query("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		txs, err := store.ListTransactions(c.Request.Context(), id, limit)
		if err != nil {
			logging.Error("failed to list transactions", err, map[string]interface{}{"wallet_id": id})
			apiErr := apierr.NewTransientStorage("could not load transactions")
			c.JSON(apiErr.Status, apiErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"transactions": txs})
	}
}
