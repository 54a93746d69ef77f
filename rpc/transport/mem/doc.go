// Package mem implements the channel transport with in-memory pipes (io.Pipe).
// It is used to run a server and its clients in a single process, mostly in tests.
//
// Writes on a channel block until the other end has read the data, which matches
// the behavior of a named pipe with a full buffer. Opening a channel never blocks.
package mem
