package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/api/handlers"
	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/pkg/apierr"
	"creditmeter/internal/pkg/logging"
)

const APIKeyHeader = "X-API-Key"

// APIKeyAuth resolves the inbound X-API-Key to the wallet it charges
// against, the stand-in auth layer the original middleware.ApiKeyMiddleware
// played: no session, no user model, just a key that maps 1:1 to a wallet.
func APIKeyAuth(store *postgres.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			apiErr := apierr.NewAPIKeyRequired()
			c.AbortWithStatusJSON(apiErr.Status, apiErr)
			return
		}

		wallet, err := store.ResolveAPIKey(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, postgres.ErrAPIKeyNotFound) {
				apiErr := apierr.NewAPIKeyRequired()
				c.AbortWithStatusJSON(apiErr.Status, apiErr)
				return
			}
			logging.Error("failed to resolve api key", err, nil)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierr.NewTransientStorage("could not resolve API key"))
			return
		}

		handlers.SetWallet(c, wallet)
		c.Next()
	}
}
