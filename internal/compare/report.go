package compare

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"

	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

const banner = "============================================================"

// Header builds the partial CSV header row:
// Key_1..Key_n, <File1>_<ValueColumnName>, <File2>_<ValueColumnName>,
// Difference, Deviation_or_Match.
func Header(arity int, file1, file2 FileSpec) []string {
	header := make([]string, 0, arity+4)
	for i := 0; i < arity; i++ {
		header = append(header, fmt.Sprintf("Key_%d", i+1))
	}
	header = append(header,
		fmt.Sprintf("%s_%s", file1.Label(), file1.valueName()),
		fmt.Sprintf("%s_%s", file2.Label(), file2.valueName()),
		"Difference",
		"Deviation_or_Match",
	)
	return header
}

// row renders the comparison columns for one matched key.
//
// Numeric rows report difference = a-b and deviation = |diff/b|*100. A zero
// reference with a non-zero compared value is "Infinite %". Rows where
// either side failed the numeric parse (or string mode) compare raw text
// and label MATCH/MISMATCH with "N/A" difference.
func row(key keydiff.Key, v1, v2 keydiff.Value) []string {
	out := make([]string, 0, len(key)+4)
	out = append(out, key...)

	if v1.Numeric && v2.Numeric {
		diff := v1.Num - v2.Num
		var result string
		switch {
		case v2.Num != 0:
			result = fmt.Sprintf("%.2f%%", math.Abs(diff/v2.Num*100))
		case v1.Num != 0:
			result = "Infinite %"
		default:
			result = "0.00%"
		}
		return append(out,
			fmt.Sprintf("%.4f", v1.Num),
			fmt.Sprintf("%.4f", v2.Num),
			fmt.Sprintf("%.4f", diff),
			result)
	}

	result := "MISMATCH"
	if v1.Raw == v2.Raw {
		result = "MATCH"
	}
	return append(out, v1.Raw, v2.Raw, "N/A", result)
}

func writeComparisonCSV(req Request, ds1, ds2 Dataset, matched []keydiff.Key) (int, error) {
	f, err := os.Create(req.CSVPath())
	if err != nil {
		return 0, fmt.Errorf("create comparison csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header(req.File1.Cols.Arity(), req.File1, req.File2)); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	lines := 0
	for _, key := range matched {
		k := datasetKey(key)
		if err := w.Write(row(key, ds1[k].Value, ds2[k].Value)); err != nil {
			return lines, fmt.Errorf("write csv row: %w", err)
		}
		lines++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return lines, fmt.Errorf("flush comparison csv: %w", err)
	}
	return lines, f.Close()
}

func writeMissingFile(req Request, diff Diff) error {
	f, err := os.Create(req.MissingPath())
	if err != nil {
		return fmt.Errorf("create missing report: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	writeMissingSection(w, req.File2.Label(), diff.MissingInB)
	w.WriteString("\n")
	writeMissingSection(w, req.File1.Label(), diff.MissingInA)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush missing report: %w", err)
	}
	return f.Close()
}

func writeMissingSection(w *bufio.Writer, label string, keys []keydiff.Key) {
	w.WriteString(banner + "\n")
	w.WriteString(fmt.Sprintf("Instances missing from %s:\n", label))
	w.WriteString(banner + "\n")
	for _, k := range keys {
		w.WriteString(k.String())
		w.WriteString("\n")
	}
}
