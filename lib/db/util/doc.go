// Package util provides helper functions for
// table implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - functions: The first-character bucket hash plus the sorting helpers every batch
//     operation needs before it may acquire bucket locks
//
// The sorting helpers always return copies, the caller's slices are never reordered.
package util
