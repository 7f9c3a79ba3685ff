package jsonline

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestNextSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"plain text",
		"{truncated",
		"",
		`{"type":"ready","port":8123}`,
	}, "\n")

	d := NewDecoder(strings.NewReader(input))
	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	var decoded struct {
		Type string `json:"type"`
		Port int    `json:"port"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.Type != "ready" || decoded.Port != 8123 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected EOF after last line, got %v", err)
	}
}

func TestNextWithPrefixIgnoresOtherLines(t *testing.T) {
	input := strings.Join([]string{
		"event: update",
		"data: ",
		"data: not-json",
		`data: {"type":"progress","pct":42}`,
		`{"type":"progress","pct":99}`,
	}, "\n")

	d := NewDecoder(strings.NewReader(input), WithPrefix("data:"))
	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	var decoded struct {
		Pct int `json:"pct"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.Pct != 42 {
		t.Fatalf("expected pct 42, got %d", decoded.Pct)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestNextBuffersPartialLines(t *testing.T) {
	// io.Pipe delivers writes unmerged, so the decoder sees split chunks.
	pr, pw := io.Pipe()
	go func() {
		pw.Write([]byte(`{"type":"re`))
		pw.Write([]byte("ady\",\"port\":9}\n"))
		pw.Close()
	}()

	d := NewDecoder(pr)
	payload, err := d.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["type"] != "ready" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
}

func TestEachStopsWhenCallbackReturnsFalse(t *testing.T) {
	input := "{\"n\":1}\n{\"n\":2}\n{\"n\":3}\n"
	d := NewDecoder(strings.NewReader(input))

	var seen int
	err := d.Each(func(json.RawMessage) bool {
		seen++
		return seen < 2
	})
	if err != nil {
		t.Fatalf("Each returned error: %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected callback to run twice, got %d", seen)
	}
}
