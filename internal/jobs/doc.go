// Package jobs persists translation job history in SQLite.
//
// The store records every submitted job, tracks its lifecycle through the
// submitted, streaming, completed, and failed statuses, and keeps the final
// output path or failure message for later inspection from the CLI.
package jobs
