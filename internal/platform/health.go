package platform

import (
	"context"
	"fmt"
	"net"
	"time"

	"steward/internal/api"
)

// probeTCP reports healthy when something accepts a connection on the local
// port within a short deadline. It is a liveness signal, not an application
// health check.
func probeTCP(ctx context.Context, port int) api.HealthStatus {
	if port <= 0 {
		return api.HealthUnknown
	}

	dialer := net.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return api.HealthUnhealthy
	}
	conn.Close()
	return api.HealthHealthy
}
