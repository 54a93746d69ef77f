package base

import (
	"context"
	"net"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

const (
	// maxRegisterRequest limits the bytes accepted on a single register connection
	maxRegisterRequest = 64 * 1024
	// registerTimeout limits how long a register connection may stay open
	registerTimeout = 5 * time.Second
)

// IConnector defines the protocol specific socket operations
type IConnector interface {
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// Listen creates a listener bound to address
	Listen(address string) (net.Listener, error)

	// Dial connects to a listener bound to address
	Dial(ctx context.Context, address string) (net.Conn, error)
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// acceptContext accepts a single connection on l. The accept is aborted when ctx is
// done, provided the listener supports deadlines.
func acceptContext(ctx context.Context, l net.Listener) (net.Conn, error) {
	d, ok := l.(deadliner)
	if !ok {
		return l.Accept()
	}

	stop := context.AfterFunc(ctx, func() {
		_ = d.SetDeadline(time.Unix(1, 0))
	})
	conn, err := l.Accept()
	if !stop() {
		_ = d.SetDeadline(time.Time{})
	}
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return conn, err
}
