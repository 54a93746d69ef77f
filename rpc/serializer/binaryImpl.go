package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a compact binary format
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// NewBinaryCodec creates a codec carrying binary serialized messages in length-prefixed frames
func NewBinaryCodec() ICodec {
	return NewFramedCodec("binary", NewBinarySerializer())
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
// - 1 byte: message type
// - 1 byte: flags (which optional fields follow)
// - per present string field: 4 bytes length (uint32, big endian) + data
// - 1 byte: status, if present
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey       byte = 1 << 0
	hasValue     byte = 1 << 1
	hasStatus    byte = 1 << 2
	hasReqPath   byte = 1 << 3
	hasRespPath  byte = 1 << 4
	hasNotifPath byte = 1 << 5
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte = 0

	appendString := func(flag byte, s string) {
		if s == "" {
			return
		}
		flags |= flag
		result = binary.BigEndian.AppendUint32(result, uint32(len(s)))
		result = append(result, s...)
	}

	appendString(hasKey, msg.Key)
	appendString(hasValue, msg.Value)

	if msg.Status != 0 {
		flags |= hasStatus
		result = append(result, msg.Status)
	}

	appendString(hasReqPath, msg.ReqPath)
	appendString(hasRespPath, msg.RespPath)
	appendString(hasNotifPath, msg.NotifPath)

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	pos := 2

	readString := func(flag byte, name string, dst *string) error {
		if flags&flag == 0 {
			*dst = ""
			return nil
		}
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for %s length", name)
		}
		n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		pos += 4
		if n < 0 || pos+n > len(data) {
			return fmt.Errorf("data too short for %s data", name)
		}
		*dst = string(data[pos : pos+n])
		pos += n
		return nil
	}

	if err := readString(hasKey, "key", &msg.Key); err != nil {
		return err
	}
	if err := readString(hasValue, "value", &msg.Value); err != nil {
		return err
	}

	if flags&hasStatus != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for status")
		}
		msg.Status = data[pos]
		pos++
	} else {
		msg.Status = 0
	}

	if err := readString(hasReqPath, "request path", &msg.ReqPath); err != nil {
		return err
	}
	if err := readString(hasRespPath, "response path", &msg.RespPath); err != nil {
		return err
	}
	if err := readString(hasNotifPath, "notification path", &msg.NotifPath); err != nil {
		return err
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes returns the exact number of bytes of the serialized message
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := 2 // MsgType + flags

	for _, s := range []string{msg.Key, msg.Value, msg.ReqPath, msg.RespPath, msg.NotifPath} {
		if s != "" {
			size += 4 + len(s)
		}
	}
	if msg.Status != 0 {
		size++
	}
	return size
}
