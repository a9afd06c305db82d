package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// BinaryCheck verifies that a binary is on PATH.
func BinaryCheck(name string) Status {
	if name == "" {
		return Unhealthy("binary name cannot be empty", nil)
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("binary '%s' not found in PATH", name),
			map[string]any{
				"binary": name,
				"error":  err.Error(),
			},
		)
	}

	return Healthy(fmt.Sprintf("binary '%s' found at %s", name, path))
}

// ToolsCheck reports which agent tools are installed. Agents can still run
// with some tools missing, so absent tools degrade rather than fail.
func ToolsCheck(names ...string) Status {
	var missing []string
	for _, name := range names {
		if BinaryCheck(name).IsUnhealthy() {
			missing = append(missing, name)
		}
	}

	switch {
	case len(names) == 0:
		return Healthy("no tools required")
	case len(missing) == len(names):
		return Unhealthy("no agent tools installed", map[string]any{"missing": missing})
	case len(missing) > 0:
		return Degraded(
			fmt.Sprintf("%d of %d tool(s) missing", len(missing), len(names)),
			map[string]any{"missing": missing},
		)
	}
	return Healthy(fmt.Sprintf("all %d tool(s) installed", len(names)))
}

// TCPCheck verifies that address accepts TCP connections.
func TCPCheck(ctx context.Context, address string) Status {
	if address == "" {
		return Unhealthy("address cannot be empty", nil)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultDialTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("failed to connect to %s", address),
			map[string]any{
				"address": address,
				"error":   err.Error(),
			},
		)
	}
	conn.Close()

	return Healthy(fmt.Sprintf("successfully connected to %s", address))
}

// WritableDirCheck verifies that dir exists, or can be created, and accepts
// new files.
func WritableDirCheck(dir string) Status {
	if dir == "" {
		return Unhealthy("path cannot be empty", nil)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Unhealthy(
			fmt.Sprintf("cannot create directory '%s'", dir),
			map[string]any{"path": dir, "error": err.Error()},
		)
	}

	f, err := os.CreateTemp(dir, ".stingbot-probe-*")
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("directory '%s' is not writable", dir),
			map[string]any{"path": dir, "error": err.Error()},
		)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return Healthy(fmt.Sprintf("directory '%s' is writable", filepath.Clean(dir)))
}

// RedisCheck pings a Redis server.
func RedisCheck(ctx context.Context, client redis.Cmdable) Status {
	if client == nil {
		return Unhealthy("redis client is nil", nil)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return Unhealthy("redis ping failed", map[string]any{"error": err.Error()})
	}
	return Healthy("redis is reachable")
}

// Combine folds checks into one status: any unhealthy check makes the
// result unhealthy, otherwise any degraded check makes it degraded.
func Combine(checks ...Status) Status {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	var healthy int

	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		case StatusHealthy:
			healthy++
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthy)),
			map[string]any{
				"total":         len(checks),
				"unhealthy":     len(unhealthy),
				"degraded":      len(degraded),
				"healthy":       healthy,
				"failed_checks": unhealthy,
			},
		)
	}

	if len(degraded) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degraded)),
			map[string]any{
				"total":           len(checks),
				"degraded":        len(degraded),
				"healthy":         healthy,
				"degraded_checks": degraded,
			},
		)
	}

	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
