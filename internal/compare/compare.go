// Package compare builds keyed datasets from a pair of shard files and
// computes the three-way split between them: keys missing from either side
// and the per-key value comparison for matched keys.
package compare

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pkg.jsn.cam/keydiff/internal/chunk"
	"pkg.jsn.cam/keydiff/internal/extract"
	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

// keySep joins key fields into the dataset map key. A field separator that
// cannot appear in whitespace-split fields, so distinct tuples never collide.
const keySep = "\x1f"

// Dataset maps a key's canonical form to its record. Built fresh per
// comparison, owned by the worker that built it, discarded after the
// partial report is written.
type Dataset map[string]keydiff.Record

func datasetKey(k keydiff.Key) string {
	return strings.Join(k, keySep)
}

// FileSpec describes one side of a comparison.
type FileSpec struct {
	Path      string
	Cols      keydiff.Columns
	ValueName string // value column display name; "Value" when unknown
}

// Label is the file's basename, used in report headers.
func (fs FileSpec) Label() string {
	return filepath.Base(fs.Path)
}

func (fs FileSpec) valueName() string {
	if fs.ValueName == "" {
		return "Value"
	}
	return fs.ValueName
}

// BuildDataset parses the file into a Dataset, fanning the line-aligned
// byte ranges out over up to workers goroutines. A missing file is an
// error; an empty file is an empty dataset.
func BuildDataset(ctx context.Context, path string, cols keydiff.Columns, mode keydiff.Mode, workers int) (Dataset, error) {
	ranges, err := chunk.Ranges(path, workers)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return Dataset{}, nil
	}

	if workers < 1 {
		workers = 1
	}

	parts := make([]Dataset, len(ranges))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i, r := range ranges {
		i, r := i, r
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := parseRange(path, r, cols, mode)
			if err != nil {
				return err
			}
			parts[i] = ds
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Merge in range order so a duplicated key resolves to its last
	// occurrence in the file, same as a sequential parse.
	merged := parts[0]
	for _, part := range parts[1:] {
		for k, rec := range part {
			merged[k] = rec
		}
	}
	return merged, nil
}

func parseRange(path string, r chunk.Range, cols keydiff.Columns, mode keydiff.Mode) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	ds := Dataset{}

	scanner := bufio.NewScanner(io.NewSectionReader(f, r.Start, r.Len()))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		rec, ok := extract.Line(scanner.Bytes(), cols, mode)
		if !ok {
			continue
		}
		ds[datasetKey(rec.Key)] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read range [%d,%d) of %s: %w", r.Start, r.End, path, err)
	}
	return ds, nil
}

// Diff is the three-way key split between two datasets.
type Diff struct {
	MissingInB []keydiff.Key // present only in A
	MissingInA []keydiff.Key // present only in B
	Matched    []keydiff.Key
}

// Compute splits the key domains of a and b. All three sequences come back
// sorted lexicographically so shard output is reproducible across runs.
func Compute(a, b Dataset) Diff {
	var d Diff
	for k, rec := range a {
		if _, ok := b[k]; ok {
			d.Matched = append(d.Matched, rec.Key)
		} else {
			d.MissingInB = append(d.MissingInB, rec.Key)
		}
	}
	for k, rec := range b {
		if _, ok := a[k]; !ok {
			d.MissingInA = append(d.MissingInA, rec.Key)
		}
	}

	slices.SortFunc(d.MissingInB, keydiff.Key.Compare)
	slices.SortFunc(d.MissingInA, keydiff.Key.Compare)
	slices.SortFunc(d.Matched, keydiff.Key.Compare)
	return d
}

// Request is one per-shard comparison: a pair of correspondingly-indexed
// shard files and their column configuration.
type Request struct {
	File1        FileSpec
	File2        FileSpec
	Mode         keydiff.Mode
	Workers      int // intra-shard parse parallelism
	OutputPrefix string
}

// CSVPath returns the partial comparison CSV path for the request.
func (r Request) CSVPath() string {
	return r.OutputPrefix + "_comparison.csv"
}

// MissingPath returns the partial missing-instances report path.
func (r Request) MissingPath() string {
	return r.OutputPrefix + "_missing_instances.txt"
}

// Run compares one shard pair and writes the partial comparison CSV and
// missing-instances report. The CSV always carries its header, even with no
// matched keys, so the merge header check holds for every shard.
func Run(ctx context.Context, req Request, log *zap.Logger) (keydiff.Summary, error) {
	var summary keydiff.Summary

	if !req.Mode.Valid() {
		return summary, fmt.Errorf("%w: %q", keydiff.ErrInvalidMode, req.Mode)
	}
	if req.File1.Cols.Arity() != req.File2.Cols.Arity() {
		return summary, fmt.Errorf("%w: %d vs %d",
			keydiff.ErrArityMismatch, req.File1.Cols.Arity(), req.File2.Cols.Arity())
	}

	var ds1, ds2 Dataset

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		ds1, err = BuildDataset(gctx, req.File1.Path, req.File1.Cols, req.Mode, req.Workers)
		return err
	})
	group.Go(func() error {
		var err error
		ds2, err = BuildDataset(gctx, req.File2.Path, req.File2.Cols, req.Mode, req.Workers)
		return err
	})
	if err := group.Wait(); err != nil {
		return summary, err
	}

	diff := Compute(ds1, ds2)

	log.Info("compared shard datasets",
		zap.String("file1", req.File1.Path),
		zap.String("file2", req.File2.Path),
		zap.Int("matched", len(diff.Matched)),
		zap.Int("missing_in_file2", len(diff.MissingInB)),
		zap.Int("missing_in_file1", len(diff.MissingInA)))

	if err := writeMissingFile(req, diff); err != nil {
		return summary, err
	}

	lines, err := writeComparisonCSV(req, ds1, ds2, diff.Matched)
	if err != nil {
		return summary, err
	}

	summary = keydiff.Summary{
		MissingInFile1:  len(diff.MissingInA),
		MissingInFile2:  len(diff.MissingInB),
		ComparisonLines: lines,
	}
	return summary, nil
}

// ColumnName resolves a value column's display name from the first data
// line of the file. Falls back to Column_<n> when the file has no usable
// line or too few fields.
func ColumnName(path string, col int) string {
	fallback := fmt.Sprintf("Column_%d", col+1)

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > col {
			return fields[col]
		}
		return fallback
	}
	return fallback
}
