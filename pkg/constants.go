package dupescan

// Context constants for catalog operations
const (
	ScanContext      = "scan"      // record came straight from the walker
	CandidateContext = "candidate" // record belongs to a size bucket with >=2 members
)

// Hash type constants
const (
	HashTypeMD5    uint16 = 1 // MD5 (16 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// Hash size constants
const (
	HashSizeMD5    = 16 // MD5 digest size in bytes
	HashSizeSHA256 = 32 // SHA-256 digest size in bytes
	HashSizeSHA512 = 64 // SHA-512 digest size in bytes
)

// Algorithm aliases accepted in configuration
const (
	AlgorithmAliasFast   = "fast"   // resolves to md5
	AlgorithmAliasStrong = "strong" // resolves to sha256
)

// DefaultHashAlgorithm is used when no algorithm is configured
const DefaultHashAlgorithm = "sha256"

// DefaultHashBuffer is the chunk size for streaming digests
const DefaultHashBuffer = "64K"

// DefaultPrefixSize is how many leading bytes the pre-filter digests
const DefaultPrefixSize int64 = 4096

// DefaultReportName is where the report goes when no destination is given
const DefaultReportName = "duplicate_files.csv"

// Channel depths for the scan pipeline
const (
	recordChanDepth  = 50  // walker -> catalog collector
	hashJobChanDepth = 100 // submission backpressure bound for hash workers
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeMD5:
		return "md5"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}
