// Package daemon hosts the long-running translation service: it owns the
// engine supervisor, the relay coordinator, the job history store, and the
// loopback HTTP API, and enforces single-instance execution with a file lock.
package daemon
