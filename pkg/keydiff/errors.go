package keydiff

import "errors"

// Sentinel errors for common error conditions
var (
	// Configuration errors
	ErrInvalidMode    = errors.New("invalid comparison mode")
	ErrInvalidColumns = errors.New("invalid column configuration")
	ErrArityMismatch  = errors.New("key column count differs between files")
	ErrInvalidShards  = errors.New("shard count must be at least 1")

	// Merge errors
	ErrHeaderMismatch = errors.New("partial CSV headers differ")
	ErrPartialMissing = errors.New("partial result file missing")
	ErrNoPartials     = errors.New("no partial result files to merge")

	// Manifest errors
	ErrRunNotFound   = errors.New("run not found")
	ErrShardNotDone  = errors.New("shard not completed")
	ErrManifestStale = errors.New("manifest shard count differs from request")
)
