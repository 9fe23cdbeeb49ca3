package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// Pinger interface for stores that support ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker checks any store that can be pinged, such as the ClickHouse
// sample store.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker creates a checker reported under name.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p}
}

// Name returns the checker name.
func (c *PingChecker) Name() string {
	return c.name
}

// Check pings the store.
func (c *PingChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("%s not configured", c.name)
	}
	return c.pinger.Ping(ctx)
}

// ConnectedChecker reports a long-lived client connection, such as the
// MQTT subscriber.
type ConnectedChecker struct {
	name        string
	isConnected func() bool
}

// NewConnectedChecker creates a checker reported under name.
func NewConnectedChecker(name string, isConnected func() bool) *ConnectedChecker {
	return &ConnectedChecker{name: name, isConnected: isConnected}
}

// Name returns the checker name.
func (c *ConnectedChecker) Name() string {
	return c.name
}

// Check fails while the client is disconnected.
func (c *ConnectedChecker) Check(ctx context.Context) error {
	if c.isConnected == nil || !c.isConnected() {
		return fmt.Errorf("%s not connected", c.name)
	}
	return nil
}
