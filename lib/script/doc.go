// Package script parses the line based command languages of the batch job files
// and of the interactive client.
//
// Batch files (LangBatch):
//
//	WRITE [(a,1)(b,2)]
//	READ [a,b]
//	DELETE [a]
//	SHOW
//	WAIT 500
//	BACKUP
//
// Client input (LangClient):
//
//	SUBSCRIBE [a]
//	UNSUBSCRIBE [a]
//	DELAY 500
//	DISCONNECT
//
// HELP is valid in both languages. Lines starting with '#' and blank lines are
// skipped. Every malformed line yields ErrInvalidCommand, a list longer than the
// configured batch limit yields a store.ErrCapacityExceeded error.
package script
