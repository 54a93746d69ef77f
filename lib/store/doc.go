// Package store provides the process wide context object (IStore) every component
// works on, together with the error taxonomy of the system.
// It is the layer between the callers (job executor, session workers) and the
// lower-level db.KVDB table, adding lifecycle checks, capacity limits,
// subscription bookkeeping and backups.
//
// The package focuses on:
//   - A unified interface (IStore) replacing process wide singletons
//   - Pluggable table implementations through the DBFactory pattern
//   - Typed errors that can be matched with errors.Is
//
// Key Components:
//
//   - IStore Interface: Batch operations (Write, Read, Delete), Show and Backup,
//     plus the subscriber lifecycle (RegisterSubscriber, Subscribe, Unsubscribe,
//     DropSubscriber). Every call site receives the store explicitly.
//
//   - Error System: A structured error type with return codes. The sentinels
//     ErrNotInitialized, ErrKeyNotFound, ErrCapacityExceeded, ErrChannelFailure and
//     ErrProtocolViolation match every Error with the same code:
//
//     if errors.Is(err, store.ErrCapacityExceeded) { ... }
//
//   - DBFactory: A function type that creates the underlying db.KVDB and wires the
//     store's notifier into it.
//
// Implementations:
//
//	- Local Store (lstore): The in-memory, single process implementation.
//	  Available in the "github.com/ValentinKolb/sKV/lib/store/lstore" package.
package store
