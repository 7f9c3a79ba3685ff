// Package jsonline decodes newline-delimited JSON from byte streams.
//
// The engine process speaks two line-oriented channels: the stdout handshake
// (bare JSON objects per line) and the SSE event stream (lines carrying a
// "data:" prefix before the JSON payload). Both are framed the same way:
// buffer bytes, split on newline, speculatively decode each complete line,
// and silently drop anything that is blank or fails to parse. Only transport
// errors from the underlying reader are reported.
package jsonline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// maxLineBytes bounds a single frame; result payloads travel over the result
// endpoint, not the stream, so frames stay small.
const maxLineBytes = 1 << 20

// Decoder reads a stream line by line and yields decoded JSON payloads.
type Decoder struct {
	scanner *bufio.Scanner
	prefix  []byte
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithPrefix restricts decoding to lines that start with the given marker;
// the marker is stripped before the JSON parse. Lines without the marker are
// ignored.
func WithPrefix(prefix string) Option {
	return func(d *Decoder) {
		d.prefix = []byte(prefix)
	}
}

// NewDecoder wraps the reader in a line-buffering JSON decoder.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	d := &Decoder{scanner: scanner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next well-formed JSON payload from the stream. Blank and
// malformed lines are skipped. It returns io.EOF when the stream ends and the
// underlying read error when the transport fails.
func (d *Decoder) Next() (json.RawMessage, error) {
	for d.scanner.Scan() {
		line := d.scanner.Bytes()
		if len(d.prefix) > 0 {
			if !bytes.HasPrefix(line, d.prefix) {
				continue
			}
			line = line[len(d.prefix):]
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		payload := make(json.RawMessage, len(line))
		copy(payload, line)
		return payload, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Each invokes fn for every well-formed payload until the stream ends or fn
// returns false. The return value mirrors Next: nil on clean EOF, the
// transport error otherwise.
func (d *Decoder) Each(fn func(json.RawMessage) bool) error {
	for {
		payload, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(payload) {
			return nil
		}
	}
}
