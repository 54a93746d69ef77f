// Package serializer provides the wire codecs of the client server protocol.
// It defines a common interface and multiple implementations for writing and
// reading requests, responses and notifications on byte streams.
//
// The package focuses on:
//   - Providing a consistent interface for different wire formats
//   - Atomic message writes: every message is emitted with a single Write call,
//     so clients sharing the register channel never interleave their requests
//   - Detecting malformed input as a protocol violation
//
// Key Components:
//
//   - ICodec: Core interface that all codecs must satisfy.
//
//   - fixedCodecImpl: The default fixed-width format. An opcode byte followed by
//     NUL padded fields whose width is derived from the configured maximum string
//     and path lengths. Needs no framing since every message has a known size.
//
//   - IRPCSerializer + framedCodecImpl: Self-describing serializers whose output is
//     carried in length-prefixed frames (4 bytes big endian length + payload).
//
//   - binarySerializerImpl: Custom binary format. Uses a flag-based approach to encode
//     only present fields, resulting in compact serialized data with minimal overhead.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     or interoperability with other systems, but with lower performance.
//
// Thread Safety:
//
//	All codecs are stateless and safe for concurrent use across multiple goroutines
//	without additional synchronization.
//
// Usage:
//
//	codec, err := serializer.NewCodec("fixed", maxStringLength, maxPathLength)
//	err = codec.WriteRequest(w, common.NewSubscribeRequest("key"))
//	var resp common.Message
//	err = codec.ReadResponse(r, &resp)
package serializer
