package backend

import (
	"errors"
	"fmt"
	"strings"

	"tazzio/internal/config"
)

// FromAppConfig maps the process configuration onto a backend Config. Only
// the settings of the selected backend are carried over.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("nil app config")
	}
	c := Config{Type: BackendType(app.DataBackend), SessionTTL: app.SessionTTL}
	switch c.Type {
	case SQLiteBackend:
		c.SQLiteDBPath = app.SQLiteDBPath
	case PostgresBackend:
		c.DatabaseURL = app.DatabaseURL
	case MemoryBackend:
	default:
		return Config{}, fmt.Errorf("unknown data backend %q, want one of %s", app.DataBackend, strings.Join(typeNames(), ", "))
	}
	if app.AMQPURL != "" {
		c.AMQPURL, c.AMQPExchange, c.AMQPQueue = app.AMQPURL, app.AMQPExchange, app.AMQPQueue
	}
	return c, c.Validate()
}

// Validate reports every missing setting of the selected backend at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type %q", c.Type))
	}
	if c.Type == SQLiteBackend && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errs = append(errs, errors.New("sqlite backend needs a database path"))
	}
	if c.Type == PostgresBackend && strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("postgres backend needs a database URL"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when an AMQP URL is set"))
	}
	return errors.Join(errs...)
}

func typeNames() []string {
	out := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		out[i] = t.String()
	}
	return out
}
