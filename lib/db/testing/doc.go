// Package testing provides standardised tests and benchmarks for
// table implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A test suite for the batch, snapshot and subscription contract,
//     including concurrency tests for deadlock freedom and atomic batch visibility
//   - benchmark: Performance tests for the common batch operations
//   - RecordingNotifier: A db.INotifier that records deliveries for assertions
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(notifier db.INotifier) db.KVDB {
//		return NewMyTable(notifier)
//	}
//
//	// Running the standard test suite
//	dbtesting.RunKVDBTests(t, "MyTable", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunKVDBBenchmarks(b, "MyTable", factory)
package testing
