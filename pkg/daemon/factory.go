package daemon

import (
	"net"
	"os"
	"time"

	"github.com/grovetools/proctrack/config"
	"github.com/grovetools/proctrack/errors"
	"github.com/grovetools/proctrack/pkg/paths"
)

// New returns a Client that will use the daemon if available,
// otherwise falls back to LocalClient configured from cfg.
//
// This implements the "transparent daemon" pattern: callers don't need
// to know whether the daemon is running or not. The same API works
// in both modes.
func New(cfg *config.Config) Client {
	if client, err := Connect(); err == nil {
		return client
	}
	return NewLocalClient(cfg)
}

// Connect returns a RemoteClient, or DAEMON_NOT_RUNNING when the socket
// does not accept connections. Use this where the daemon is required.
func Connect() (*RemoteClient, error) {
	socketPath := paths.SocketPath()
	if _, err := os.Stat(socketPath); err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn, err := net.DialTimeout("unix", socketPath, 100*time.Millisecond)
	if err != nil {
		return nil, errors.DaemonNotRunning(socketPath)
	}
	conn.Close()
	return NewRemoteClient(socketPath)
}
