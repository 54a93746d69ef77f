// Package fifo implements the channel transport using named pipes (FIFOs).
// It is the default transport of sKV.
//
// Every channel is a fifo in the file system. Opening one end of a fifo blocks until
// the other end is opened, which is why both sides of a session open the channels
// of a client in the same order.
//
// Key Components:
//
//   - Listen: Creates the register fifo and opens it read-write. Since every client
//     writes its Connect request with a single Write (well below PIPE_BUF), requests
//     of concurrent clients never interleave.
//
//   - OpenWriter: Polls a non-blocking open until a reader exists, so it can be
//     canceled through its context.
//
//   - OpenReader: Opens the read end in a helper goroutine. On cancellation the
//     pending open is released by opening and closing the write end.
package fifo
