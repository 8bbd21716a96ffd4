// Package manifest persists run state in a bbolt file: which comparison
// runs exist, their configuration snapshot, and which shards have completed
// with what summary counters. The merge step consults it to know which
// partial outputs to expect and to compute global totals.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

var (
	// Bucket names
	runsBucket   = []byte("runs")
	shardsBucket = []byte("shards")
)

// Run is one comparison run's configuration snapshot.
type Run struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	File1     string       `json:"file1"`
	File2     string       `json:"file2"`
	Mode      keydiff.Mode `json:"mode"`
	Shards    int          `json:"shards"`
	Lines1    int64        `json:"lines1"` // newline count of file1 before sharding
	Lines2    int64        `json:"lines2"`
}

// Store manages run and shard state using bbolt
type Store struct {
	db   *bbolt.DB
	path string
}

// Open creates or opens a bbolt-backed manifest store
func Open(path string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open manifest db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(shardsBucket); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
	}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun assigns the run an ID and creation time and persists it.
func (s *Store) CreateRun(run Run) (Run, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		encoded, err := json.Marshal(run)
		if err != nil {
			return err
		}
		return tx.Bucket(runsBucket).Put([]byte(run.ID), encoded)
	})
	if err != nil {
		return Run{}, fmt.Errorf("persist run: %w", err)
	}
	return run, nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var run Run
	var found bool

	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(runsBucket).Get([]byte(id)); v != nil {
			found = true
			return json.Unmarshal(v, &run)
		}
		return nil
	})
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	if !found {
		return Run{}, fmt.Errorf("%w: %s", keydiff.ErrRunNotFound, id)
	}
	return run, nil
}

// MarkShardDone records a completed shard comparison and its counters.
func (s *Store) MarkShardDone(runID string, shard int, summary keydiff.Summary) error {
	key := shardKey(runID, shard)

	return s.db.Update(func(tx *bbolt.Tx) error {
		encoded, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		return tx.Bucket(shardsBucket).Put(key, encoded)
	})
}

// ShardSummaries returns the completed shards of a run and their counters.
func (s *Store) ShardSummaries(runID string) (map[int]keydiff.Summary, error) {
	out := make(map[int]keydiff.Summary)
	prefix := []byte(fmt.Sprintf("run_%s_shard_", runID))

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(shardsBucket).Cursor()

		// Iterate over keys with the run prefix
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			shard, err := strconv.Atoi(string(k[len(prefix):]))
			if err != nil {
				continue
			}
			var summary keydiff.Summary
			if err := json.Unmarshal(v, &summary); err != nil {
				continue
			}
			out[shard] = summary
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load shard summaries for run %s: %w", runID, err)
	}
	return out, nil
}

// Totals sums the counters of all shards of the run. Every shard recorded
// by the run must have completed, or the totals would silently undercount.
func (s *Store) Totals(runID string) (keydiff.Summary, error) {
	var total keydiff.Summary

	run, err := s.GetRun(runID)
	if err != nil {
		return total, err
	}

	summaries, err := s.ShardSummaries(runID)
	if err != nil {
		return total, err
	}

	for i := 0; i < run.Shards; i++ {
		summary, ok := summaries[i]
		if !ok {
			return keydiff.Summary{}, fmt.Errorf("%w: run %s shard %d", keydiff.ErrShardNotDone, runID, i)
		}
		total.Add(summary)
	}
	return total, nil
}

func shardKey(runID string, shard int) []byte {
	return []byte(fmt.Sprintf("run_%s_shard_%d", runID, shard))
}
