package transport

import (
	"context"
	"io"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport is the server side of a channel transport.
// The server owns the register channel, every client owns its request, response
// and notification channels. A session is set up by opening the client channels
// in this order: response (write), request (read), notification (write).
type IServerTransport interface {
	// GetName returns the name of the transport (e.g. "fifo", "unix")
	GetName() string

	// Listen creates the register channel at endpoint and returns a reader
	// delivering the requests of all clients. Every request written by a client
	// with a single Write is delivered without interleaving.
	// Closing the reader removes the register channel.
	Listen(endpoint string) (io.ReadCloser, error)

	// OpenReader opens the client channel at path for reading.
	// Blocks until the client opened the other end or ctx is done.
	OpenReader(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWriter opens the client channel at path for writing.
	// Blocks until the client opened the other end or ctx is done.
	OpenWriter(ctx context.Context, path string) (io.WriteCloser, error)
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the client side of a channel transport.
// A client opens its channels in the same order as the server: response (read),
// request (write), notification (read).
type IClientTransport interface {
	// GetName returns the name of the transport (e.g. "fifo", "unix")
	GetName() string

	// Create creates the client channel at path. It returns the name the server
	// must use to open the channel, which is path itself for file based transports.
	Create(path string) (string, error)

	// Dial opens the register channel of the server at endpoint for writing
	Dial(endpoint string) (io.WriteCloser, error)

	// OpenReader opens a channel created with Create for reading.
	// Blocks until the server opened the other end or ctx is done.
	OpenReader(ctx context.Context, name string) (io.ReadCloser, error)

	// OpenWriter opens a channel created with Create for writing.
	// Blocks until the server opened the other end or ctx is done.
	OpenWriter(ctx context.Context, name string) (io.WriteCloser, error)

	// Remove deletes a channel created with Create
	Remove(name string) error
}
