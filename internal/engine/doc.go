// Package engine supervises the external translation worker process and
// speaks its HTTP API.
//
// The Supervisor owns the worker handle exclusively: it resolves a launch
// candidate (packaged binary, virtualenv interpreter, or system interpreter
// with module arguments), spawns the process, parses the newline-delimited
// JSON handshake on stdout to learn the listen port, forwards stderr to the
// diagnostic log, and respawns the worker when it exits unexpectedly.
// Concurrent ensure-ready calls share a single in-flight launch; at most one
// worker process exists at a time.
//
// The Client wraps the worker's loopback HTTP surface: job submission, the
// SSE progress stream, and the result endpoint.
package engine
