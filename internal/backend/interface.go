// Package backend opens the ledger store and the optional event broker
// selected by configuration.
package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/services"
	"ledger/internal/store"
)

// Backend is what the binaries need to run the ledger.
type Backend struct {
	Store  store.Store
	Reader store.Reader

	// Both nil when no broker is configured or it could not be reached.
	Publisher services.Publisher
	AMQP      *amqp.Client
}

// CleanupFunc closes everything a Backend holds, newest first.
type CleanupFunc func() error

type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
