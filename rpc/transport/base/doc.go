// Package base provides a socket based channel transport independent of the specific
// network protocol (Unix sockets, TCP). Protocol specifics are injected through an
// IConnector.
//
// Every client channel is a listener owned by the client. The server dials it when
// it opens the channel, the client accepts exactly one connection on it. The register
// channel is a listener owned by the server; every connection on it carries the
// requests a client writes before closing the connection.
//
// Key Components:
//
//   - IConnector: Protocol specific listen and dial operations.
//
//   - serverTransport: Implements transport.IServerTransport. Merges all register
//     connections into a single request stream.
//
//   - clientTransport: Implements transport.IClientTransport. Keeps the listeners of
//     all created channels until they are removed.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Requests of different register
//	connections are forwarded one at a time, so they never interleave.
package base
