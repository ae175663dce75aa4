package backend

import (
	"errors"
	"fmt"

	"ledger/internal/config"
)

// BackendType selects where the ledger keeps its rows.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid reports whether bt names a store this package can open.
func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// Shared reports whether separate processes see the same rows. Only a shared
// store can back the reconcile worker.
func (bt BackendType) Shared() bool { return bt == SQLiteBackend }

var (
	ErrNoAppConfig    = errors.New("backend: no application config")
	ErrNoSQLitePath   = errors.New("backend: sqlite store needs a database path")
	ErrAMQPIncomplete = errors.New("backend: broker url set without exchange and queue")
)

// Config is the subset of the application config that picks and opens a store.
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	// An empty AMQPURL disables ledger events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, ErrNoAppConfig
	}
	c := Config{
		Type:         BackendType(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
		AMQPQueue:    app.AMQPQueue,
	}
	if !c.Type.IsValid() {
		return Config{}, fmt.Errorf("backend: unknown store %q", app.DataBackend)
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("backend: unknown store %q", c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return ErrNoSQLitePath
	case c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == ""):
		return ErrAMQPIncomplete
	}
	return nil
}
