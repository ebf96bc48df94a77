package relay

import (
	"context"
	"time"
)

// SetSleep replaces the inter-attempt wait.
func (inv *Invoker) SetSleep(f func(context.Context, time.Duration) error) {
	inv.sleep = f
}
