// Package shard routes the lines of an input file into K shard files by a
// stable hash of each line's instance key.
//
// Two files sharded with the same key configuration always agree on where a
// key lands, no matter which process or host did the sharding. That is the
// invariant the whole distributed comparison depends on, so the routing hash
// must be seed-free: FNV-1a over the joined key fields, never a per-process
// randomized hash.
package shard

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"pkg.jsn.cam/keydiff/internal/extract"
)

// Index computes the shard for a key using FNV-1a hash
func Index(key string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(key))

	return int(h.Sum32()) % shards
}

// Path returns the shard file path for input file i of the original file.
func Path(dir, inputPath string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_shard_%d.txt", filepath.Base(inputPath), i))
}

// Result reports what one sharding pass did.
type Result struct {
	Paths   []string
	Lines   int64 // lines read from the input
	Routed  int64 // lines written to a shard
	Dropped int64 // blank/comment/metadata/short lines
}

// Options tunes a sharding pass.
type Options struct {
	Progress bool // render a byte progress bar on stderr
}

// File splits one input file into shards shard files under dir, routing each
// accepted line by the FNV-1a hash of its `_`-joined key fields. Lines that
// fail the line-level filter or are too short to cover the key columns are
// dropped, not written anywhere.
func File(path string, keyCols []int, shards int, dir string, log *zap.Logger, opts Options) (Result, error) {
	var res Result

	if shards < 1 {
		return res, fmt.Errorf("shard %s: shard count %d", path, shards)
	}

	info, err := os.Stat(path)
	if err != nil {
		return res, fmt.Errorf("stat input file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return res, fmt.Errorf("create shard directory: %w", err)
	}

	log.Info("sharding file",
		zap.String("file", path),
		zap.String("size", humanize.Bytes(uint64(info.Size()))),
		zap.Int("shards", shards))

	outs := make([]*bufio.Writer, shards)
	files := make([]*os.File, shards)
	res.Paths = make([]string, shards)
	for i := 0; i < shards; i++ {
		p := Path(dir, path, i)
		out, err := os.Create(p)
		if err != nil {
			closeAll(files)
			return res, fmt.Errorf("create shard file %s: %w", p, err)
		}
		files[i] = out
		outs[i] = bufio.NewWriterSize(out, 256*1024)
		res.Paths[i] = p
	}

	var reader io.Reader = f
	if opts.Progress {
		bar := progressbar.DefaultBytes(info.Size(), "sharding "+filepath.Base(path))
		reader = io.TeeReader(f, bar)
	}

	maxCol := 0
	for _, c := range keyCols {
		if c > maxCol {
			maxCol = c
		}
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		res.Lines++

		if !extract.ValidLine(line) {
			res.Dropped++
			continue
		}

		fields := bytes.Fields(line)
		if len(fields) <= maxCol {
			res.Dropped++
			continue
		}

		joined := make([]byte, 0, 64)
		for i, c := range keyCols {
			if i > 0 {
				joined = append(joined, '_')
			}
			joined = append(joined, fields[c]...)
		}

		w := outs[Index(string(joined), shards)]
		if _, err := w.Write(line); err != nil {
			closeAll(files)
			return res, fmt.Errorf("write shard line: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			closeAll(files)
			return res, fmt.Errorf("write shard line: %w", err)
		}
		res.Routed++
	}
	if err := scanner.Err(); err != nil {
		closeAll(files)
		return res, fmt.Errorf("read input file: %w", err)
	}

	for i, w := range outs {
		if err := w.Flush(); err != nil {
			closeAll(files)
			return res, fmt.Errorf("flush shard file %s: %w", res.Paths[i], err)
		}
	}
	if err := closeAll(files); err != nil {
		return res, fmt.Errorf("close shard files: %w", err)
	}

	log.Info("finished sharding",
		zap.String("file", path),
		zap.Int64("lines", res.Lines),
		zap.Int64("routed", res.Routed),
		zap.Int64("dropped", res.Dropped))

	return res, nil
}

func closeAll(files []*os.File) error {
	var firstErr error
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
