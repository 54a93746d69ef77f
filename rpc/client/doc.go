// Package client implements the client side of the sKV protocol.
// A client owns three channels (request, response, notification) that it announces
// to the server with a Connect request on the register channel.
//
// The package focuses on:
//   - Session setup in the same channel order as the server, so blocking opens pair up
//   - Strictly ordered request/response pairs on a single session
//   - Streaming notifications of subscribed keys on a Go channel
//   - A client side subscription limit mirroring the limit of the server
//
// Key Components:
//
//   - IClient: Interface of a connection to a server.
//
//   - NewRPCClient: Factory function creating an unconnected client for the given
//     transport and codec. Both must match the server.
//
// Usage Example:
//
//	c := client.NewRPCClient(config, fifo.NewFifoClientTransport(), codec)
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Disconnect()
//
//	status, err := c.Subscribe("key")
//	for change := range c.Notifications() {
//		fmt.Println(change.Key, change.Value, change.Deleted)
//	}
//
// Thread Safety:
//
//	All methods are thread-safe. Requests are serialized, the notification channel
//	is fed by a dedicated goroutine.
package client
