package handlers

import (
	"github.com/gin-gonic/gin"

	"creditmeter/internal/domain/models"
)

const (
	walletKey      = "wallet"
	reservationKey = "reservation"
)

// SetWallet stashes the wallet the auth middleware resolved from the
// request's API key, for downstream handlers and the charge middleware.
func SetWallet(c *gin.Context, wallet *models.Wallet) {
	c.Set(walletKey, wallet)
}

func GetWallet(c *gin.Context) (*models.Wallet, bool) {
	v, exists := c.Get(walletKey)
	if !exists {
		return nil, false
	}
	wallet, ok := v.(*models.Wallet)
	return wallet, ok
}

// SetReservation stashes the PENDING reservation the charge middleware
// created, so the handler (or a post-handler hook) never needs to thread
// the transaction ID through by hand.
func SetReservation(c *gin.Context, tx *models.CreditTransaction) {
	c.Set(reservationKey, tx)
}

func GetReservation(c *gin.Context) (*models.CreditTransaction, bool) {
	v, exists := c.Get(reservationKey)
	if !exists {
		return nil, false
	}
	tx, ok := v.(*models.CreditTransaction)
	return tx, ok
}
