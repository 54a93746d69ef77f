// Package transport defines the channel abstraction between the sKV server and its
// clients. A channel is a one-directional byte stream identified by a path.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - A fixed open order per session, so blocking opens on both sides pair up
//   - Enabling multiple transport implementations (named pipes, Unix and TCP sockets,
//     in-memory pipes for tests)
//
// Key Components:
//
//   - IServerTransport: Creates the register channel every client writes its
//     Connect request to, and opens the channels announced by a client.
//
//   - IClientTransport: Creates the three channels of a client, dials the register
//     channel and opens the client ends of its channels.
//
// Session Setup:
//
//	client                              server
//	Create(req, resp, notif)
//	Dial(register) + Connect  ───────►  Listen(register) reads Connect
//	OpenReader(resp)          ◄──────►  OpenWriter(resp), send ack
//	OpenWriter(req)           ◄──────►  OpenReader(req)
//	OpenReader(notif)         ◄──────►  OpenWriter(notif)
package transport
