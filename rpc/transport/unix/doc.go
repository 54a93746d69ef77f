// Package unix implements the channel transport using Unix domain sockets.
// Every channel path is a socket file. Stale socket files are removed before a
// listener is created.
//
// This package extends the base transport layer with a Unix socket connector.
package unix
