// Package tcp implements the channel transport using TCP sockets.
//
// The register endpoint is a host:port address. Client channels that are not given
// as a host:port address are bound to an ephemeral loopback port; the resolved
// address is what the client announces in its Connect request.
//
// This package extends the base transport layer with a TCP connector.
package tcp
