package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of the log file is read. A negative Offset
// requests the last Limit lines; a non-negative Offset resumes reading from
// that byte position.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries read lines and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log file at path. A missing file is not an
// error; it yields an empty result so callers can poll for file creation.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	offset := opts.Offset
	if offset < 0 {
		lines, end, err := readLastLines(path, opts.Limit)
		if err != nil {
			return result, err
		}
		result.Lines = lines
		result.Offset = end
		if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
			return waitForLines(ctx, path, end, opts.Wait)
		}
		return result, nil
	}

	if offset > info.Size() {
		offset = info.Size()
	}
	lines, end, err := readForward(path, offset)
	if err != nil {
		return result, err
	}
	result.Lines = lines
	result.Offset = end
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return waitForLines(ctx, path, end, opts.Wait)
	}
	return result, nil
}

func readLastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]string, limit)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, end, nil
}

func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, end, err := readForward(path, offset)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 {
			result.Lines = lines
			result.Offset = end
			return result, nil
		}
		if time.Now().After(deadline) {
			result.Offset = end
			return result, nil
		}
		select {
		case <-ctx.Done():
			result.Offset = end
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
