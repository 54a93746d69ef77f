// Package testing provides a shared test suite for channel transports.
// Every implementation of transport.IServerTransport and transport.IClientTransport
// should pass RunTransportTests.
package testing
