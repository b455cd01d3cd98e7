package preview

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Probe reports whether something accepts TCP connections on host:port
// within timeout.
func Probe(ctx context.Context, host string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
