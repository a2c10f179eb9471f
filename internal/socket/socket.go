// Package socket opens and dials the Unix socket ceprd serves its API on.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

var (
	// ErrAddressInUse is returned when another process already serves the socket.
	ErrAddressInUse = errors.New("address already in use")
	// ErrNotRunning is returned when ceprd cannot be reached.
	ErrNotRunning = errors.New("ceprd not running")
)

// Config controls how long Dial waits for the daemon and how the socket
// file is created.
type Config struct {
	// WaitTimeout bounds how long Dial keeps retrying.
	WaitTimeout time.Duration
	// RetryInterval is the pause between dial attempts.
	RetryInterval time.Duration
	// Grace is how long after New Dial retries without asking the
	// ProcessChecker, covering a daemon started just before the client.
	Grace time.Duration
	// Permissions of the socket file.
	Permissions os.FileMode
	// ProcessName is the daemon executable looked for between attempts.
	ProcessName string
}

// DefaultConfig returns the settings used by the cepr binaries.
func DefaultConfig() *Config {
	return &Config{
		WaitTimeout:   5 * time.Second,
		RetryInterval: 250 * time.Millisecond,
		Grace:         2 * time.Second,
		Permissions:   defaultPermissions(),
		ProcessName:   "ceprd",
	}
}

// Socket dials and listens on ceprd's Unix socket.
type Socket struct {
	config  *Config
	procs   ProcessChecker
	created time.Time
}

// New returns a Socket. A nil cfg means DefaultConfig(); a nil checker
// means DefaultProcessChecker.
func New(cfg *Config, checker ProcessChecker) *Socket {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if checker == nil {
		checker = &DefaultProcessChecker{}
	}
	return &Socket{
		config:  cfg,
		procs:   checker,
		created: time.Now(),
	}
}

// Listen creates a listener at path with the default configuration.
func Listen(path string) (net.Listener, error) {
	return New(nil, nil).Listen(path)
}

// Dial connects to path, retrying while the daemon may still be coming
// up. It gives up with ErrNotRunning once WaitTimeout passes, or as
// soon as no daemon process exists after the grace period.
func (s *Socket) Dial(ctx context.Context, path string) (net.Conn, error) {
	deadline := time.Now().Add(s.config.WaitTimeout)
	var d net.Dialer

	for {
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !s.shouldRetry(deadline) {
			return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}

		t := time.NewTimer(s.config.RetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// DialFunc adapts Dial to http.Transport.DialContext; the network and
// address the transport asks for are ignored in favor of path.
func (s *Socket) DialFunc(path string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, _, _ string) (net.Conn, error) {
		return s.Dial(ctx, path)
	}
}

// Listen creates the socket directory if needed, removes a stale socket
// file and listens on path. A live socket yields ErrAddressInUse. The
// file is unlinked when the listener closes.
func (s *Socket) Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("creating socket listener: %w", err)
	}
	if err := os.Chmod(path, s.config.Permissions); err != nil {
		l.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	return l, nil
}

func (s *Socket) shouldRetry(deadline time.Time) bool {
	if time.Now().After(deadline) {
		return false
	}
	if time.Since(s.created) < s.config.Grace {
		return true
	}
	return s.procs.IsRunning(s.config.ProcessName)
}

func removeStale(path string) error {
	conn, err := net.Dial("unix", path)
	if err == nil {
		_ = conn.Close()
		return ErrAddressInUse
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}

// Any local user may query addresses, so the socket is world writable
// where the platform honors socket file modes.
func defaultPermissions() os.FileMode {
	switch runtime.GOOS {
	case "linux", "darwin", "freebsd":
		return 0o666
	default:
		return 0o600
	}
}
