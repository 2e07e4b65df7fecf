package testenv

import (
	"testing"

	"github.com/gin-gonic/gin"

	"creditmeter/internal/api/routes"
	"creditmeter/internal/infrastructure/database/postgres"
)

// TestContainer is a lightweight stand-in for components.Container: it wires
// just enough — store, router — for handlers to run against a real Postgres
// testcontainer without pulling in the scheduler or Kafka wiring.
type TestContainer struct {
	Store  *postgres.Store
	Router *gin.Engine
}

func (tc *TestContainer) GetStore() *postgres.Store {
	return tc.Store
}

// DefaultReserveAmount is the credits-per-request ChargeOneCredit reserves
// in the test harness, matching production's default of 1.
const DefaultReserveAmount = 1

// NewTestContainer starts (or reuses) the shared testcontainer, truncates
// its tables, and builds a fresh router bound to it. gin.Recovery() is
// installed so a handler that panics (exercising ChargeOneCredit's
// reverse-on-panic path) still completes the HTTP response instead of
// crashing the test binary, the same as the production container's
// gin.Default() chain.
func NewTestContainer(t *testing.T) *TestContainer {
	gin.SetMode(gin.TestMode)

	store := SetupIntegrationTest(t)

	tc := &TestContainer{Store: store}
	router := gin.New()
	router.Use(gin.Recovery())
	routes.RegisterRoutes(router, tc, store, DefaultReserveAmount)
	tc.Router = router

	return tc
}
