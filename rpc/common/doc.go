// Package common provides core data structures and utilities shared by the
// server, the client and the transports. It defines the protocol messages, the
// configuration structures and the logging setup.
//
// The package focuses on:
//   - Message protocol definition for the client server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: Core data structure for requests, responses and notifications.
//     The request opcodes are Connect (1), Disconnect (2), Subscribe (3) and
//     Unsubscribe (4). Every response carries the opcode of its request and a
//     status byte. Notifications carry an explicit tag (updated or deleted), so a
//     value can never be mistaken for a deletion marker.
//
//   - ServerConfig: Configuration of the server process and the batch runner,
//     including all capacity limits.
//
//   - ClientConfig: Configuration of the interactive client.
//
//   - Logger: Custom logging implementation that plugs into the logger factory of
//     github.com/lni/dragonboat/v4/logger and provides consistent formatting
//     across all packages.
package common
