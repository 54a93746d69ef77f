// Package jobs executes batch job files against a store.
//
// A job file (*.job) contains one command per line (see package script). The
// Executor runs the commands of a single file in order and writes their output
// to a file with the extension .out:
//
//	READ   -> [(a,1)(z,KVSERROR)]
//	DELETE -> [(z,KVSMISSING)]   (only the keys that did not exist, nothing otherwise)
//	SHOW   -> (a, 1)             (one line per pair)
//	WAIT   -> Waiting...
//	HELP   -> usage text
//
// BACKUP starts a background backup named <job>-<n>.bck, n counting from 1 per file.
//
// The Runner processes all job files of a directory with at most max-threads files
// in parallel. In watch mode it keeps running and picks up job files created later.
package jobs
