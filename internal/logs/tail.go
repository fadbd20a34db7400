package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// TailOptions selects which lines Tail returns. A negative Offset means the
// last Limit lines.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Filter Filter
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Filter narrows lines. The zero Filter keeps everything.
type Filter struct {
	// Contains is matched case-insensitively.
	Contains string
	// SubscriptionID keeps lines tagged with this subscription.
	SubscriptionID int64
}

func (f Filter) empty() bool {
	return strings.TrimSpace(f.Contains) == "" && f.SubscriptionID <= 0
}

func (f Filter) keep(line string) bool {
	if needle := strings.TrimSpace(f.Contains); needle != "" {
		if !strings.Contains(strings.ToLower(line), strings.ToLower(needle)) {
			return false
		}
	}
	if f.SubscriptionID > 0 {
		id := strconv.FormatInt(f.SubscriptionID, 10)
		// JSON and console handlers render the attribute differently.
		if !tagged(line, `"subscription_id":`+id) && !tagged(line, "Sub #"+id) {
			return false
		}
	}
	return true
}

// tagged reports whether marker occurs in line not followed by another digit.
func tagged(line, marker string) bool {
	for {
		idx := strings.Index(line, marker)
		if idx < 0 {
			return false
		}
		rest := line[idx+len(marker):]
		if rest == "" || rest[0] < '0' || rest[0] > '9' {
			return true
		}
		line = rest
	}
}

func (f Filter) apply(lines []string) []string {
	if f.empty() || len(lines) == 0 {
		return lines
	}
	out := lines[:0]
	for _, line := range lines {
		if f.keep(line) {
			out = append(out, line)
		}
	}
	return out
}

// Tail reads path according to opts. A missing file yields no lines and
// offset zero.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}
	wait := max(opts.Wait, 0)
	if !opts.Follow {
		wait = 0
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = lastLines(path, opts.Limit, opts.Filter)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// The file was truncated or rotated.
			offset = 0
		}
		result, err = readFrom(path, offset, opts.Filter)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if len(result.Lines) > 0 || wait == 0 {
		return result, nil
	}
	return follow(ctx, path, result.Offset, wait, opts.Filter)
}

// lastLines keeps a ring of the last limit matching lines.
func lastLines(path string, limit int, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, 0, limit)
	start := 0
	var offset int64
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, n, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return TailResult{}, fmt.Errorf("read log file: %w", err)
		}
		offset += n
		if !filter.keep(line) {
			continue
		}
		if len(ring) < limit {
			ring = append(ring, line)
		} else {
			ring[start] = line
			start = (start + 1) % limit
		}
	}
	lines := make([]string, 0, len(ring))
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return TailResult{Lines: lines, Offset: offset}, nil
}

// readFrom returns the complete lines after offset. A trailing partial line is
// left for the next read.
func readFrom(path string, offset int64, filter Filter) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, n, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return TailResult{Offset: offset}, fmt.Errorf("read log file: %w", err)
		}
		offset += n
		lines = append(lines, line)
	}
	return TailResult{Lines: filter.apply(lines), Offset: offset}, nil
}

// readLine returns one newline-terminated line and the bytes consumed. At the
// end of the file it returns io.EOF with any partial line.
func readLine(r *bufio.Reader) (string, int64, error) {
	raw, err := r.ReadString('\n')
	n := int64(len(raw))
	if err != nil {
		return strings.TrimRight(raw, "\r\n"), n, err
	}
	line := strings.TrimRight(raw, "\r\n")
	if len(line) > maxLineLength {
		line = line[:maxLineLength]
	}
	return line, n, nil
}

func follow(ctx context.Context, path string, offset int64, wait time.Duration, filter Filter) (TailResult, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-deadline.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
		}
		result, err := readFrom(path, offset, filter)
		if err != nil {
			return result, err
		}
		offset = result.Offset
		if len(result.Lines) > 0 {
			return result, nil
		}
	}
}
