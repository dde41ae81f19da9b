// Package netcheck tells whether the network is reachable before the
// refresh pipeline starts.
package netcheck

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Check dials address over TCP and closes the connection right away. A nil
// error means the network is reachable.
func Check(ctx context.Context, address string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("network unreachable (%s): %w", address, err)
	}
	return conn.Close()
}
