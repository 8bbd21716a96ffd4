// Package chunk splits a file into newline-aligned byte ranges so that
// several workers can parse disjoint slices of it in parallel.
package chunk

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Range is a half-open [Start, End) byte span of a file. Start is always
// byte 0 or the byte immediately after a '\n'.
type Range struct {
	Start int64
	End   int64
}

// Len returns the width of the range in bytes.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Ranges divides the file into up to n line-aligned ranges covering the
// whole file. Boundaries are found with O(n) seeks, not a full scan: seek
// to the approximate stride, discard the partial line, and the next byte
// starts a range. Zero-width ranges are dropped, so fewer than n ranges
// come back for small or skewed files. An empty file yields zero ranges.
func Ranges(path string, n int) ([]Range, error) {
	if n < 1 {
		n = 1
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}

	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	stride := size / int64(n)

	boundaries := []int64{0}
	for i := 1; i < n; i++ {
		seekPos := stride * int64(i)
		if seekPos >= size {
			break
		}
		boundary, err := nextLineStart(f, seekPos)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, boundary)
	}
	boundaries = append(boundaries, size)

	ranges := make([]Range, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		r := Range{Start: boundaries[i], End: boundaries[i+1]}
		if r.Len() > 0 {
			ranges = append(ranges, r)
		}
	}
	return ranges, nil
}

// nextLineStart returns the offset of the first line start at or after pos.
func nextLineStart(f *os.File, pos int64) (int64, error) {
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek to %d: %w", pos, err)
	}

	r := bufio.NewReader(f)
	skipped, err := r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("scan for line start after %d: %w", pos, err)
	}
	return pos + int64(len(skipped)), nil
}

// CountLines counts '\n' bytes in the file. Used for run statistics on the
// original inputs before sharding.
func CountLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var count int64
	buf := make([]byte, 1<<20)
	for {
		n, err := f.Read(buf)
		count += int64(bytes.Count(buf[:n], []byte{'\n'}))
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("count lines: %w", err)
		}
	}
}
