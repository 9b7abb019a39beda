package health

import (
	"context"
	"errors"
)

// Pinger is implemented by backends that can verify connectivity, such as
// the message stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a Pinger as unhealthy when Ping fails.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker creates a checker named name over pinger.
func NewPingChecker(name string, pinger Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: pinger}
}

// Name returns the checker name.
func (c *PingChecker) Name() string { return c.name }

// Check pings the backend.
func (c *PingChecker) Check(ctx context.Context) Result {
	if c.pinger == nil {
		return Unhealthy(c.name+" not configured", errors.New("health: nil pinger"))
	}
	if err := c.pinger.Ping(ctx); err != nil {
		return Unhealthy(c.name+" unreachable", err)
	}
	return Healthy(c.name + " reachable")
}
