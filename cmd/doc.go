// Package cmd implements the command-line interface of sKV.
// It provides a hierarchical command structure with operations for running the
// server, processing job files and interacting with the server as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server, optionally processing a job directory at the same time
//   - run: Processes all job files of a directory without a server
//   - client: Interactive client, reads SUBSCRIBE/UNSUBSCRIBE/DELAY/DISCONNECT commands
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set via an environment variable SKV_<FLAG> (e.g.
// SKV_MAX_THREADS=8), .env and .env.local files are loaded on startup.
//
// See skv -help for a list of all commands.
package cmd
