package logs

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossa.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"three", "four"}) {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
	if result.Offset == 0 {
		t.Fatal("expected non-zero resume offset")
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossa.log")
	writeLog(t, path, "first\n")

	initial, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial Tail: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	next, err := Tail(context.Background(), path, TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("resume Tail: %v", err)
	}
	if !reflect.DeepEqual(next.Lines, []string{"second"}) {
		t.Fatalf("unexpected resumed lines: %v", next.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail on missing file: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestTailFollowPicksUpNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossa.log")
	writeLog(t, path, "")

	done := make(chan TailResult, 1)
	go func() {
		result, err := Tail(context.Background(), path, TailOptions{
			Offset: 0,
			Follow: true,
			Wait:   3 * time.Second,
		})
		if err != nil {
			t.Errorf("follow Tail: %v", err)
		}
		done <- result
	}()

	time.Sleep(300 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("arrived\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	select {
	case result := <-done:
		if !reflect.DeepEqual(result.Lines, []string{"arrived"}) {
			t.Fatalf("unexpected followed lines: %v", result.Lines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not observe the appended line")
	}
}
