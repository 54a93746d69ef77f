package serializer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewFixedCodec creates the default wire format: an opcode byte
// followed by fixed-width, NUL padded fields.
//
//	Connect       opcode | req path | resp path | notif path   (each pathWidth bytes)
//	Disconnect    opcode
//	(Un)Subscribe opcode | key                                  (maxStringLength+1 bytes)
//	Response      opcode | status
//	Notification  tag    | key | value                          (each maxStringLength+1 bytes)
//
// Keys and values longer than maxStringLength are truncated. Paths longer than
// pathWidth are rejected.
func NewFixedCodec(maxStringLength, pathWidth int) ICodec {
	return &fixedCodecImpl{
		keyWidth:  maxStringLength + 1,
		pathWidth: pathWidth,
	}
}

type fixedCodecImpl struct {
	keyWidth  int
	pathWidth int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ICodec)
// --------------------------------------------------------------------------

func (c *fixedCodecImpl) GetName() string {
	return "fixed"
}

func (c *fixedCodecImpl) WriteRequest(w io.Writer, msg *common.Message) error {
	var buf []byte
	switch msg.MsgType {
	case common.MsgTConnect:
		buf = make([]byte, 1+3*c.pathWidth)
		for i, p := range []string{msg.ReqPath, msg.RespPath, msg.NotifPath} {
			if len(p) > c.pathWidth {
				return fmt.Errorf("path %q exceeds the maximum length of %d", p, c.pathWidth)
			}
			copy(buf[1+i*c.pathWidth:], p)
		}
	case common.MsgTDisconnect:
		buf = make([]byte, 1)
	case common.MsgTSubscribe, common.MsgTUnsubscribe:
		buf = make([]byte, 1+c.keyWidth)
		c.putString(buf[1:], msg.Key)
	default:
		return fmt.Errorf("message of type %s is not a request", msg.MsgType)
	}
	buf[0] = byte(msg.MsgType)
	_, err := w.Write(buf)
	return err
}

func (c *fixedCodecImpl) ReadRequest(r io.Reader, msg *common.Message) error {
	var op [1]byte
	if _, err := io.ReadFull(r, op[:]); err != nil {
		return err
	}

	*msg = common.Message{MsgType: common.MessageType(op[0])}
	switch msg.MsgType {
	case common.MsgTConnect:
		buf := make([]byte, 3*c.pathWidth)
		if _, err := io.ReadFull(r, buf); err != nil {
			return truncated(err)
		}
		msg.ReqPath = cString(buf[:c.pathWidth])
		msg.RespPath = cString(buf[c.pathWidth : 2*c.pathWidth])
		msg.NotifPath = cString(buf[2*c.pathWidth:])
	case common.MsgTDisconnect:
	case common.MsgTSubscribe, common.MsgTUnsubscribe:
		buf := make([]byte, c.keyWidth)
		if _, err := io.ReadFull(r, buf); err != nil {
			return truncated(err)
		}
		msg.Key = cString(buf)
	default:
		return protocolError("unexpected request opcode %d", op[0])
	}
	return nil
}

func (c *fixedCodecImpl) WriteResponse(w io.Writer, msg *common.Message) error {
	_, err := w.Write([]byte{byte(msg.MsgType), msg.Status})
	return err
}

func (c *fixedCodecImpl) ReadResponse(r io.Reader, msg *common.Message) error {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	*msg = common.Message{MsgType: common.MessageType(buf[0]), Status: buf[1]}
	if !msg.MsgType.IsRequest() {
		return protocolError("unexpected response opcode %d", buf[0])
	}
	return nil
}

func (c *fixedCodecImpl) WriteNotification(w io.Writer, msg *common.Message) error {
	if !msg.MsgType.IsNotification() {
		return fmt.Errorf("message of type %s is not a notification", msg.MsgType)
	}
	buf := make([]byte, 1+2*c.keyWidth)
	buf[0] = byte(msg.MsgType)
	c.putString(buf[1:1+c.keyWidth], msg.Key)
	c.putString(buf[1+c.keyWidth:], msg.Value)
	_, err := w.Write(buf)
	return err
}

func (c *fixedCodecImpl) ReadNotification(r io.Reader, msg *common.Message) error {
	buf := make([]byte, 1+2*c.keyWidth)
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		return truncated(err)
	}
	*msg = common.Message{
		MsgType: common.MessageType(buf[0]),
		Key:     cString(buf[1 : 1+c.keyWidth]),
		Value:   cString(buf[1+c.keyWidth:]),
	}
	if !msg.MsgType.IsNotification() {
		return protocolError("unexpected notification tag %d", buf[0])
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// putString copies s into dst, truncated so that at least one NUL byte remains
func (c *fixedCodecImpl) putString(dst []byte, s string) {
	if len(s) > len(dst)-1 {
		s = s[:len(dst)-1]
	}
	copy(dst, s)
}

// cString returns the content of b up to the first NUL byte
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
