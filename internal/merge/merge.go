// Package merge recombines per-shard partial reports into the final
// comparison CSV and missing-instances report.
//
// Merging is pure concatenation in shard-index order, so re-running it on
// the same partials always produces byte-identical output.
package merge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

// CSVPartial returns the partial comparison CSV path for shard i.
func CSVPartial(prefix string, i int) string {
	return fmt.Sprintf("%s_%d_comparison.csv", prefix, i)
}

// MissingPartial returns the partial missing-instances path for shard i.
func MissingPartial(prefix string, i int) string {
	return fmt.Sprintf("%s_%d_missing_instances.txt", prefix, i)
}

// Prefix returns the per-shard output prefix handed to the comparator.
func Prefix(prefix string, i int) string {
	return fmt.Sprintf("%s_%d", prefix, i)
}

// CSV merges the shard partial CSVs into outPath. The header is taken from
// the first present shard verbatim; every other shard's header must be
// byte-identical or the merge fails rather than producing a corrupt file.
// A missing partial fails the merge by name unless allowPartial is set, in
// which case it is skipped. Returns the number of shards merged.
func CSV(prefix string, shards int, outPath string, allowPartial bool) (int, error) {
	paths, err := presentPartials(prefix, shards, CSVPartial, allowPartial)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w: %s_*_comparison.csv", keydiff.ErrNoPartials, prefix)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create final csv: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)

	var header string
	for _, path := range paths {
		h, err := appendCSV(w, path, header)
		if err != nil {
			return 0, err
		}
		if header == "" {
			header = h
		}
	}

	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("flush final csv: %w", err)
	}
	return len(paths), out.Close()
}

// appendCSV copies one partial's data rows into w. When wantHeader is empty
// the partial's header is written through and returned; otherwise the
// partial's header must match wantHeader exactly.
func appendCSV(w *bufio.Writer, path, wantHeader string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open partial csv %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read header of %s: %w", path, err)
	}
	if header == "" {
		return "", fmt.Errorf("partial csv %s is empty", path)
	}

	if wantHeader == "" {
		if _, err := w.WriteString(header); err != nil {
			return "", fmt.Errorf("write final csv header: %w", err)
		}
	} else if header != wantHeader {
		return "", fmt.Errorf("%w: %s", keydiff.ErrHeaderMismatch, path)
	}

	if _, err := io.Copy(w, r); err != nil {
		return "", fmt.Errorf("append rows from %s: %w", path, err)
	}
	return header, nil
}

// Missing concatenates the shard missing-instance reports into outPath, each
// block labeled with its partial file name, in shard-index order.
func Missing(prefix string, shards int, outPath string, allowPartial bool) (int, error) {
	paths, err := presentPartials(prefix, shards, MissingPartial, allowPartial)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create final missing report: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	w.WriteString("--- Combined Report of Missing Instances ---\n\n")

	for _, path := range paths {
		fmt.Fprintf(w, "--- Results from %s ---\n", filepath.Base(path))

		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("open partial missing report %s: %w", path, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("append missing report %s: %w", path, err)
		}
		w.WriteString("\n")
	}

	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("flush final missing report: %w", err)
	}
	return len(paths), out.Close()
}

// Totals sums per-shard counters into the global summary.
func Totals(summaries []keydiff.Summary) keydiff.Summary {
	var total keydiff.Summary
	for _, s := range summaries {
		total.Add(s)
	}
	return total
}

// presentPartials resolves the expected partial paths and verifies they
// exist. With allowPartial, absent files are dropped from the merge set;
// without it, the first absent file fails the merge by name.
func presentPartials(prefix string, shards int, pathFn func(string, int) string, allowPartial bool) ([]string, error) {
	paths := make([]string, 0, shards)
	for i := 0; i < shards; i++ {
		path := pathFn(prefix, i)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) && allowPartial {
				continue
			}
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", keydiff.ErrPartialMissing, path)
			}
			return nil, fmt.Errorf("stat partial %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
