package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/sKV/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for requests, responses and notifications.
// Which fields are used depends on the type and the direction of the message.
type Message struct {
	// Type of message (the opcode of requests and responses, the tag of notifications)
	MsgType MessageType `json:"msg_type"`

	// Key and value fields
	Key   string `json:"key,omitempty"`   // Used for: Subscribe, Unsubscribe, notifications
	Value string `json:"value,omitempty"` // Used for: update notifications

	// Response only fields
	Status byte `json:"status,omitempty"` // Result code of the operation

	// Connect request fields, the locations of the client's channels
	ReqPath   string `json:"req_path,omitempty"`
	RespPath  string `json:"resp_path,omitempty"`
	NotifPath string `json:"notif_path,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewConnectRequest creates a new Connect request carrying the client's channel locations
func NewConnectRequest(reqPath, respPath, notifPath string) *Message {
	return &Message{
		MsgType:   MsgTConnect,
		ReqPath:   reqPath,
		RespPath:  respPath,
		NotifPath: notifPath,
	}
}

// NewDisconnectRequest creates a new Disconnect request
func NewDisconnectRequest() *Message {
	return &Message{MsgType: MsgTDisconnect}
}

// NewSubscribeRequest creates a new Subscribe request
func NewSubscribeRequest(key string) *Message {
	return &Message{MsgType: MsgTSubscribe, Key: key}
}

// NewUnsubscribeRequest creates a new Unsubscribe request
func NewUnsubscribeRequest(key string) *Message {
	return &Message{MsgType: MsgTUnsubscribe, Key: key}
}

// NewResponse creates the response to a request of type t
func NewResponse(t MessageType, status byte) *Message {
	return &Message{MsgType: t, Status: status}
}

// NewNotification creates the notification for a change of a key
func NewNotification(change db.Change) *Message {
	if change.Deleted {
		return &Message{MsgType: MsgTKVDeleted, Key: change.Key}
	}
	return &Message{MsgType: MsgTKVUpdated, Key: change.Key, Value: change.Value}
}

// ToChange converts a notification back into the change it describes
func (m *Message) ToChange() (db.Change, error) {
	switch m.MsgType {
	case MsgTKVUpdated:
		return db.Change{Key: m.Key, Value: m.Value}, nil
	case MsgTKVDeleted:
		return db.Change{Key: m.Key, Deleted: true}, nil
	default:
		return db.Change{}, fmt.Errorf("message of type %s is not a notification", m.MsgType)
	}
}

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

const (
	StatusOK byte = 0 // Connect, Disconnect

	StatusSubscribeMissing  byte = 0 // the key did not exist, the subscription was recorded anyway
	StatusSubscribeExisted  byte = 1 // the key existed
	StatusSubscribeCapacity byte = 2 // the subscription limit is reached
	StatusSubscribeError    byte = 3 // any other failure

	StatusUnsubscribeRemoved byte = 0 // the subscription existed and was removed
	StatusUnsubscribeMissing byte = 1 // there was no such subscription
)

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in the client server protocol.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTConnect:
		return "connect"
	case MsgTDisconnect:
		return "disconnect"
	case MsgTSubscribe:
		return "subscribe"
	case MsgTUnsubscribe:
		return "unsubscribe"
	case MsgTKVUpdated:
		return "updated"
	case MsgTKVDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// IsRequest reports whether t is a valid request opcode
func (t MessageType) IsRequest() bool {
	return t >= MsgTConnect && t <= MsgTUnsubscribe
}

// IsNotification reports whether t is a notification tag
func (t MessageType) IsNotification() bool {
	return t == MsgTKVUpdated || t == MsgTKVDeleted
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "connect":
		*t = MsgTConnect
	case "disconnect":
		*t = MsgTDisconnect
	case "subscribe":
		*t = MsgTSubscribe
	case "unsubscribe":
		*t = MsgTUnsubscribe
	case "updated":
		*t = MsgTKVUpdated
	case "deleted":
		*t = MsgTKVDeleted
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota

	// Requests (the values are the opcodes on the wire)

	MsgTConnect     // 1: Open a session
	MsgTDisconnect  // 2: Close the session
	MsgTSubscribe   // 3: Subscribe to a key
	MsgTUnsubscribe // 4: Unsubscribe from a key

	// Notifications

	MsgTKVUpdated // The key was written, Value holds the new value
	MsgTKVDeleted // The key was deleted
)
