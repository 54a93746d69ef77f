package serializer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// maxFrameSize bounds the payload of a single frame
const maxFrameSize = 1 << 20

// writeFrame writes a frame with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
// Header and payload are written with a single Write call.
func writeFrame(w io.Writer, data []byte) error {
	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(data)))
	copy(frame[4:], data)
	_, err := w.Write(frame)
	return err
}

// readFrame reads one frame and returns its payload
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	contentLength := binary.BigEndian.Uint32(header[:])
	if contentLength > maxFrameSize {
		return nil, protocolError("frame of %d bytes exceeds the maximum of %d", contentLength, maxFrameSize)
	}
	if contentLength == 0 {
		return []byte{}, nil
	}

	data := make([]byte, contentLength)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, truncated(err)
	}
	return data, nil
}

// --------------------------------------------------------------------------
// Framed Codec (for self-describing serializers)
// --------------------------------------------------------------------------

// NewFramedCodec creates a codec carrying every message serialized by s inside a
// length-prefixed frame.
func NewFramedCodec(name string, s IRPCSerializer) ICodec {
	return &framedCodecImpl{name: name, serializer: s}
}

type framedCodecImpl struct {
	name       string
	serializer IRPCSerializer
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ICodec)
// --------------------------------------------------------------------------

func (c *framedCodecImpl) GetName() string {
	return c.name
}

func (c *framedCodecImpl) WriteRequest(w io.Writer, msg *common.Message) error {
	if !msg.MsgType.IsRequest() {
		return fmt.Errorf("message of type %s is not a request", msg.MsgType)
	}
	return c.write(w, msg)
}

func (c *framedCodecImpl) ReadRequest(r io.Reader, msg *common.Message) error {
	if err := c.read(r, msg); err != nil {
		return err
	}
	if !msg.MsgType.IsRequest() {
		return protocolError("unexpected request opcode %d", msg.MsgType)
	}
	return nil
}

func (c *framedCodecImpl) WriteResponse(w io.Writer, msg *common.Message) error {
	return c.write(w, &common.Message{MsgType: msg.MsgType, Status: msg.Status})
}

func (c *framedCodecImpl) ReadResponse(r io.Reader, msg *common.Message) error {
	if err := c.read(r, msg); err != nil {
		return err
	}
	if !msg.MsgType.IsRequest() {
		return protocolError("unexpected response opcode %d", msg.MsgType)
	}
	return nil
}

func (c *framedCodecImpl) WriteNotification(w io.Writer, msg *common.Message) error {
	if !msg.MsgType.IsNotification() {
		return fmt.Errorf("message of type %s is not a notification", msg.MsgType)
	}
	return c.write(w, msg)
}

func (c *framedCodecImpl) ReadNotification(r io.Reader, msg *common.Message) error {
	if err := c.read(r, msg); err != nil {
		return err
	}
	if !msg.MsgType.IsNotification() {
		return protocolError("unexpected notification tag %d", msg.MsgType)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (c *framedCodecImpl) write(w io.Writer, msg *common.Message) error {
	data, err := c.serializer.Serialize(*msg)
	if err != nil {
		return err
	}
	return writeFrame(w, data)
}

func (c *framedCodecImpl) read(r io.Reader, msg *common.Message) error {
	data, err := readFrame(r)
	if err != nil {
		return err
	}
	*msg = common.Message{}
	if err := c.serializer.Deserialize(data, msg); err != nil {
		return protocolError("%v", err)
	}
	return nil
}

func protocolError(format string, args ...interface{}) error {
	return store.NewError(store.RetCProtocolViolation, fmt.Sprintf(format, args...))
}

// truncated converts an EOF in the middle of a message into io.ErrUnexpectedEOF
func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
