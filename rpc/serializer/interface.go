package serializer

import (
	"io"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// IRPCSerializer is the interface for all self-describing Message serializers.
// Serialized messages are carried inside length-prefixed frames (see NewFramedCodec).
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}

// ICodec reads and writes protocol messages on byte streams.
// The direction of a message selects its layout: requests go from client to server,
// responses back on the response channel and notifications on the notification channel.
//
// Every Write method must emit the whole message with a single Write call on w, so
// that messages of concurrent writers on a shared channel never interleave.
//
// Read methods return io.EOF if the stream ended cleanly before a message started and
// a store.ErrProtocolViolation error for malformed or unexpected messages.
type ICodec interface {
	// GetName returns the name of the codec
	GetName() string

	WriteRequest(w io.Writer, msg *common.Message) error
	ReadRequest(r io.Reader, msg *common.Message) error

	WriteResponse(w io.Writer, msg *common.Message) error
	ReadResponse(r io.Reader, msg *common.Message) error

	WriteNotification(w io.Writer, msg *common.Message) error
	ReadNotification(r io.Reader, msg *common.Message) error
}
