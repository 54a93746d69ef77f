package store

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/notify"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// The store passes its notifier, which the db must call on every change of a subscribed key.
type DBFactory func(notifier db.INotifier) db.KVDB

// IStore is the context object shared by every component working on the table.
// It is created once per process and passed by reference, there is no global state.
//
// All operations fail with ErrNotInitialized after Close was called.
// Missing keys are never an error, they are reported per key in the results.
type IStore interface {
	// Write inserts or updates all pairs of the batch.
	Write(pairs []db.Pair) (err error)
	// Read returns the value of every key of the batch, in sorted key order.
	Read(keys []string) (results []db.ReadResult, err error)
	// Delete removes all keys of the batch and reports per key whether it existed.
	Delete(keys []string) (results []db.DeleteResult, err error)
	// Show writes every pair as "(key, value)\n" to w. The view is point-in-time.
	Show(w io.Writer) (err error)
	// Backup starts a backup named name in the background. It may block while the
	// maximum number of backups is in flight.
	Backup(name string) (err error)
	// WaitBackups blocks until all started backups finished and returns their errors.
	WaitBackups() (err error)

	// RegisterSubscriber registers sink and returns the handle used for subscriptions.
	RegisterSubscriber(sink notify.ISink) (id db.SubscriberID, err error)
	// Subscribe subscribes id to key. existed reports whether the key existed at the
	// time of the call, the subscription is recorded either way. ErrCapacityExceeded is
	// returned, without any state change, if id holds the maximum number of subscriptions.
	Subscribe(id db.SubscriberID, key string) (existed bool, err error)
	// Unsubscribe removes the subscription of id on key and reports whether it existed.
	Unsubscribe(id db.SubscriberID, key string) (removed bool, err error)
	// DropSubscriber removes all subscriptions of id and invalidates the handle.
	DropSubscriber(id db.SubscriberID) (err error)

	// GetDBInfo returns metadata about the database underlying the store.
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close waits for outstanding backups and releases the table.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, store.ErrCapacityExceeded) works for every message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new KVStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

var (
	ErrNotInitialized    = NewError(RetCNotInitialized, "store is not initialized")
	ErrKeyNotFound       = NewError(RetCKeyNotFound, "key not found")
	ErrCapacityExceeded  = NewError(RetCCapacityExceeded, "capacity exceeded")
	ErrChannelFailure    = NewError(RetCChannelFailure, "channel failure")
	ErrProtocolViolation = NewError(RetCProtocolViolation, "protocol violation")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: Command executed successfully.
	RetCInternalError                    // 1: Command failed due to an internal error.
	RetCInvalidOperation                 // 2: Invalid operation.
	RetCNotInitialized                   // 3: The store was used outside of its lifetime.
	RetCKeyNotFound                      // 4: A key does not exist.
	RetCCapacityExceeded                 // 5: A configured limit would be exceeded.
	RetCChannelFailure                   // 6: A channel broke or was closed unexpectedly.
	RetCProtocolViolation                // 7: A malformed or unexpected message was received.
)

// String returns the name of the return code
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotInitialized:
		return "NotInitialized"
	case RetCKeyNotFound:
		return "KeyNotFound"
	case RetCCapacityExceeded:
		return "CapacityExceeded"
	case RetCChannelFailure:
		return "ChannelFailure"
	case RetCProtocolViolation:
		return "ProtocolViolation"
	default:
		return "Unknown"
	}
}
