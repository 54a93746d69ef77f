// Package server implements the sKV server side of the client protocol.
// It accepts clients on a register channel, admits a bounded number of sessions and
// translates the requests of every session into store calls.
//
// The package focuses on:
//   - A bounded admission pipeline between the register reader and the session workers
//   - One session per client with a strict life cycle: Idle, Connecting, Active, Closed
//   - Notification delivery that never blocks the writers of the store
//   - A broadcast disconnect of all live sessions
//
// Key Components:
//
//   - Server: Owns the register channel, the worker pool (config.Sessions workers) and
//     the registry of live sessions. Created with NewRPCServer.
//
//   - admission: Counting semaphore of free session slots plus a bounded queue of
//     admitted Connect requests. A slot is released when its session ended.
//
//   - session: Serves the requests of one client in order. Acts as the notification
//     sink of its subscriptions through a bounded outbox drained by a writer goroutine;
//     a full outbox drops the notification.
//
//   - IRPCServerAdapter: Translates Subscribe and Unsubscribe requests into store calls
//     and maps the results to status codes.
//
// Protocol:
//
//	register:  Connect{req, resp, notif}    (no response on the register channel)
//	resp:      {Connect, 0}                 (ack, sent before the other channels are opened)
//	req/resp:  Subscribe{key}   -> {Subscribe, 0|1|2|3}
//	           Unsubscribe{key} -> {Unsubscribe, 0|1}
//	           Disconnect       -> {Disconnect, 0}, then the session is closed
//	notif:     Updated{key, value} | Deleted{key}
//
// Errors:
//
//   - A malformed or unexpected request on the register channel is a protocol violation
//     and only rejects that connection attempt. Reading resumes right after the bytes
//     the codec consumed, see acceptLoop for the resync behaviour of each codec.
//   - A failing client channel (ChannelFailure) or a protocol violation on an active
//     session closes that session only.
//   - EOF on the request channel closes the session without an ack.
//   - DisconnectAll only closes the sessions. Each worker drops the subscriptions of
//     its session after the request in flight was handled.
//
// Thread Safety:
//
//	Serve must be called only once. DisconnectAll and ActiveSessions can be called
//	concurrently at any time.
package server
