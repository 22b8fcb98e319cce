package dupescan

import (
	"encoding/hex"
	"time"
)

// FileRecord describes one regular file found during traversal. Records are
// immutable once inserted into the catalog; the walker is the only writer.
type FileRecord struct {
	Path    string    `json:"path"` // absolute, cleaned path
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`

	// Device and inode observed at traversal time, used only to skip
	// additional hardlinks to content already catalogued.
	dev uint64
	ino uint64
}

// HashResult pairs a record with its computed content digest. One per
// candidate file; never mutated after creation.
type HashResult struct {
	Record   *FileRecord
	Digest   []byte
	HashType uint16
}

// DigestString returns the digest as a hex string
func (hr *HashResult) DigestString() string {
	return hex.EncodeToString(hr.Digest)
}
