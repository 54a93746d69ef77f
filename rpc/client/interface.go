package client

import (
	"context"

	"github.com/ValentinKolb/sKV/lib/db"
)

// IClient is a connection of a single client to an sKV server.
// Requests are answered strictly in order, a client can be used from multiple
// goroutines but the requests are serialized.
type IClient interface {
	// ID returns the client id used in the channel names
	ID() string

	// Connect creates the client channels, registers at the server and waits until
	// the server admitted the session. Blocks while the server has no free session
	// slot, until ctx is done.
	Connect(ctx context.Context) error

	// Subscribe subscribes to key and returns the status of the server (see the
	// common.StatusSubscribe* constants). The client side limit of subscriptions is
	// checked before the request is sent; exceeding it returns
	// common.StatusSubscribeCapacity and store.ErrCapacityExceeded.
	Subscribe(key string) (status byte, err error)

	// Unsubscribe removes the subscription on key and returns the status of the
	// server (see the common.StatusUnsubscribe* constants).
	Unsubscribe(key string) (status byte, err error)

	// Notifications returns the changes of all subscribed keys. The channel is
	// closed when the session ended, either by Disconnect or by the server.
	Notifications() <-chan db.Change

	// Disconnect ends the session and removes the client channels.
	Disconnect() error

	// Close removes the client channels without a Disconnect request. The server
	// closes the session when it sees the request channel end.
	Close() error
}
