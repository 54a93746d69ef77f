// Package rpc provides the client server layer of the key-value store. Clients
// announce themselves on a register channel and then talk to the server over
// three channels of their own: requests, responses and notifications.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Channel abstractions with pluggable implementations
//     (named pipes, Unix sockets, TCP and an in-memory hub for tests).
//
//   - serializer: Wire codecs (fixed width, Binary, JSON) for writing and
//     reading Message values on the channels.
//
//   - client: RPC client that connects a session, manages its subscriptions
//     and streams the notifications of the server.
//
//   - server: RPC server that admits sessions through a bounded pool, runs the
//     session state machine and forwards change notifications to subscribers.
package rpc
