package handlers

import (
	"creditmeter/internal/infrastructure/database/postgres"
)

// HandlerDependencies breaks the circular dependency between handlers and
// the components package that wires the container together.
type HandlerDependencies interface {
	GetStore() *postgres.Store
}
