package shard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    string
		shards int
	}{
		{"basic", "u_core/reg_1", 4},
		{"single shard", "anything", 1},
		{"large shard count", "top_u_core/reg_1", 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// Same key must always give the same shard.
			first := Index(tt.key, tt.shards)
			second := Index(tt.key, tt.shards)

			if first != second {
				t.Errorf("Index not consistent: got %d and %d for same key", first, second)
			}
			if first < 0 || first >= tt.shards {
				t.Errorf("Index(%q, %d) = %d, want value in range [0, %d)",
					tt.key, tt.shards, first, tt.shards)
			}
		})
	}
}

func TestIndex_Stable(t *testing.T) {
	t.Parallel()
	// The routing hash is seed-free FNV-1a: these values must never change
	// across releases, or shards produced by different binaries stop
	// agreeing with each other.
	// FNV-1a 32-bit: hash("") = 2166136261, hash("a") = 3826002220,
	// hash("b") = 3876335077.
	tests := []struct {
		key    string
		shards int
		want   int
	}{
		{"", 7, 2},
		{"a", 10, 0},
		{"b", 10, 7},
	}

	for _, tt := range tests {
		if got := Index(tt.key, tt.shards); got != tt.want {
			t.Errorf("Index(%q, %d) = %d, want %d", tt.key, tt.shards, got, tt.want)
		}
	}
}

func TestIndex_Distribution(t *testing.T) {
	t.Parallel()
	// Keys should spread across shards, not pile into one.
	shards := 4
	used := make(map[int]int)

	keys := []string{"u_a/x", "u_b/y", "u_c/z", "u_d/w", "u_e/v", "u_f/u", "u_g/t", "u_h/s"}
	for _, key := range keys {
		used[Index(key, shards)]++
	}

	if len(used) < 2 {
		t.Errorf("Index routed %d keys into only %d shards, expected at least 2", len(keys), len(used))
	}
}

func TestFile_RoutesAcceptedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "report.txt")
	content := strings.Join([]string{
		"# header comment",
		"VERSION 1.0",
		"UNITS mW",
		"u_a/x 0.10",
		"u_b/y 0.20",
		"u_c/z 0.30",
		"",
		"short",
		"u_d/w 0.40",
	}, "\n") + "\n"
	if err := os.WriteFile(input, []byte(content), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	const shards = 3
	res, err := File(input, []int{0}, shards, filepath.Join(dir, "shards"), zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}

	if res.Lines != 9 {
		t.Errorf("Lines = %d, want 9", res.Lines)
	}
	if res.Routed != 4 {
		t.Errorf("Routed = %d, want 4", res.Routed)
	}
	if res.Dropped != 5 {
		t.Errorf("Dropped = %d, want 5", res.Dropped)
	}

	// Every accepted line appears in exactly one shard, and in the shard
	// its key hashes to.
	seen := make(map[string]int)
	for i, path := range res.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read shard %d: %v", i, err)
		}
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line == "" {
				continue
			}
			key := strings.Fields(line)[0]
			if prev, dup := seen[key]; dup {
				t.Errorf("key %q in shards %d and %d", key, prev, i)
			}
			seen[key] = i
			if want := Index(key, shards); want != i {
				t.Errorf("key %q in shard %d, hash says %d", key, i, want)
			}
		}
	}
	if len(seen) != 4 {
		t.Errorf("found %d routed keys across shards, want 4", len(seen))
	}
}

func TestFile_ConsistentAcrossFiles(t *testing.T) {
	t.Parallel()
	// The shard invariant: a key present in both input files must land in
	// the same shard index for each, even though the files are sharded by
	// separate calls.
	dir := t.TempDir()

	fileA := filepath.Join(dir, "a.txt")
	fileB := filepath.Join(dir, "b.txt")
	keys := []string{"u_a/x", "u_b/y", "u_c/z", "u_d/w", "u_e/v"}

	var a, b strings.Builder
	for i, k := range keys {
		// Different value columns and orderings on each side.
		a.WriteString(k + " 0.1\n")
		b.WriteString(keys[len(keys)-1-i] + " 0.2\n")
	}
	if err := os.WriteFile(fileA, []byte(a.String()), 0644); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(fileB, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write b: %v", err)
	}

	const shards = 4
	resA, err := File(fileA, []int{0}, shards, dir, zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("shard a: %v", err)
	}
	resB, err := File(fileB, []int{0}, shards, dir, zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("shard b: %v", err)
	}

	shardOf := func(paths []string) map[string]int {
		out := make(map[string]int)
		for i, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("read %s: %v", p, err)
			}
			for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
				if line == "" {
					continue
				}
				out[strings.Fields(line)[0]] = i
			}
		}
		return out
	}

	inA := shardOf(resA.Paths)
	inB := shardOf(resB.Paths)
	for _, k := range keys {
		if inA[k] != inB[k] {
			t.Errorf("key %q in shard %d of file A but shard %d of file B", k, inA[k], inB[k])
		}
	}
}

func TestFile_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := File(filepath.Join(dir, "nope.txt"), []int{0}, 2, dir, zap.NewNop(), Options{}); err == nil {
		t.Error("expected error for missing input file")
	}
}
