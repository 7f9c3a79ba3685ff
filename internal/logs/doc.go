// Package logs reads daemon log files directly from disk. The CLI falls
// back to it when the daemon is not running and the in-memory log stream
// is unreachable.
package logs
