package dupescan

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ini/ini"
)

// Config represents the dupescan configuration file
type Config struct {
	configPath string
	ini        *ini.File
}

// HashConfig represents hash algorithm configuration
type HashConfig struct {
	Algorithm  string // digest algorithm: md5/fast, sha256/strong, sha512
	BufferSize string // streaming chunk size, human syntax (e.g. "64K")
	Prefilter  bool   // prefix digest pre-filter
	PrefixSize int64  // leading bytes the pre-filter digests
}

// PerformanceConfig represents performance-related configuration
type PerformanceConfig struct {
	Workers int // hash worker count (0 = available parallelism)
}

// OutputConfig represents report output configuration
type OutputConfig struct {
	Format      string // report format: csv, json, text
	Destination string // report destination ("-" = stdout)
}

// ScanSectionConfig represents scan filtering configuration
type ScanSectionConfig struct {
	Exclude []string // exclude patterns (regexps)
	MinSize int64    // ignore files smaller than this
	Keep    string   // keeper policy: oldest, newest, path
}

// VerboseConfig represents verbosity configuration
type VerboseConfig struct {
	Level int    // verbose level (0=quiet, 1=basic, 2=detailed, 3=trace)
	Debug string // debug flags (comma-separated)
}

// LoadConfig loads configuration from the given file. A missing file is
// not an error: every accessor falls back to its default, so running
// without a config file works out of the box.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		configPath: configPath,
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.ini = ini.Empty()
		return cfg, nil
	}

	iniFile, err := ini.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	cfg.ini = iniFile

	return cfg, nil
}

// GetHashConfig returns the hash configuration
func (c *Config) GetHashConfig() *HashConfig {
	hashConfig := &HashConfig{
		Algorithm:  DefaultHashAlgorithm, // fallback default
		BufferSize: DefaultHashBuffer,    // fallback default
		Prefilter:  true,                 // fallback default
		PrefixSize: DefaultPrefixSize,    // fallback default
	}

	if c.ini.HasSection("hash") {
		section := c.ini.Section("hash")
		if section.HasKey("algorithm") {
			hashConfig.Algorithm = section.Key("algorithm").String()
		}
		if section.HasKey("buffer_size") {
			if bufferSize := section.Key("buffer_size").String(); bufferSize != "" {
				hashConfig.BufferSize = bufferSize
			}
		}
		if section.HasKey("prefilter") {
			if prefilter, err := section.Key("prefilter").Bool(); err == nil {
				hashConfig.Prefilter = prefilter
			}
		}
		if section.HasKey("prefix_size") {
			if prefixSize, err := section.Key("prefix_size").Int64(); err == nil && prefixSize > 0 {
				hashConfig.PrefixSize = prefixSize
			}
		}
	}

	return hashConfig
}

// GetPerformanceConfig returns the performance configuration
func (c *Config) GetPerformanceConfig() *PerformanceConfig {
	performanceConfig := &PerformanceConfig{
		Workers: 0, // fallback default: available parallelism
	}

	if c.ini.HasSection("performance") {
		section := c.ini.Section("performance")
		if section.HasKey("workers") {
			if workers, err := section.Key("workers").Int(); err == nil {
				performanceConfig.Workers = workers
			}
		}
	}

	return performanceConfig
}

// GetOutputConfig returns the output configuration
func (c *Config) GetOutputConfig() *OutputConfig {
	outputConfig := &OutputConfig{
		Format:      "csv",             // fallback default
		Destination: DefaultReportName, // fallback default
	}

	if c.ini.HasSection("output") {
		section := c.ini.Section("output")
		if section.HasKey("format") {
			outputConfig.Format = section.Key("format").String()
		}
		if section.HasKey("destination") {
			outputConfig.Destination = section.Key("destination").String()
		}
	}

	return outputConfig
}

// GetScanConfig returns the scan filtering configuration
func (c *Config) GetScanConfig() *ScanSectionConfig {
	scanConfig := &ScanSectionConfig{
		Keep: "oldest", // fallback default
	}

	if c.ini.HasSection("scan") {
		section := c.ini.Section("scan")
		if section.HasKey("exclude") {
			scanConfig.Exclude = section.Key("exclude").Strings(",")
		}
		if section.HasKey("min_size") {
			if minSize := section.Key("min_size").String(); minSize != "" {
				if parsed, err := ParseHumanSize(minSize); err == nil {
					scanConfig.MinSize = int64(parsed)
				}
			}
		}
		if section.HasKey("keep") {
			scanConfig.Keep = section.Key("keep").String()
		}
	}

	return scanConfig
}

// GetVerboseConfig returns the verbose configuration
func (c *Config) GetVerboseConfig() *VerboseConfig {
	verboseConfig := &VerboseConfig{
		Level: 0,  // fallback default
		Debug: "", // fallback default
	}

	if c.ini.HasSection("verbose") {
		section := c.ini.Section("verbose")
		if section.HasKey("level") {
			if level, err := section.Key("level").Int(); err == nil {
				verboseConfig.Level = level
			}
		}
		if section.HasKey("debug") {
			verboseConfig.Debug = section.Key("debug").String()
		}
	}

	return verboseConfig
}

// ToScanConfig builds the engine configuration from the file's values.
// CLI flags are applied on top of this by the caller.
func (c *Config) ToScanConfig() ScanConfig {
	config := DefaultScanConfig()

	hash := c.GetHashConfig()
	config.HashAlgorithm = hash.Algorithm
	config.HashBuffer = hash.BufferSize
	config.Prefilter = hash.Prefilter
	config.PrefixSize = hash.PrefixSize

	config.Workers = c.GetPerformanceConfig().Workers

	output := c.GetOutputConfig()
	config.ReportFormat = output.Format
	config.ReportDestination = output.Destination

	scan := c.GetScanConfig()
	config.ExcludePatterns = scan.Exclude
	config.MinSize = scan.MinSize
	config.KeepPolicy = scan.Keep

	return config
}

// ApplyOverrides applies command-line overrides to the configuration.
// Accepts strings like "algorithm:md5", "format:json", "workers:8".
func (c *Config) ApplyOverrides(overrides []string) error {
	for _, override := range overrides {
		parts := strings.SplitN(override, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid override format '%s', expected 'key:value'", override)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "algorithm":
			c.ini.Section("hash").Key("algorithm").SetValue(value)
		case "buffer_size":
			c.ini.Section("hash").Key("buffer_size").SetValue(value)
		case "prefilter":
			c.ini.Section("hash").Key("prefilter").SetValue(value)
		case "workers":
			c.ini.Section("performance").Key("workers").SetValue(value)
		case "format":
			c.ini.Section("output").Key("format").SetValue(value)
		case "destination":
			c.ini.Section("output").Key("destination").SetValue(value)
		case "keep":
			c.ini.Section("scan").Key("keep").SetValue(value)
		case "min_size":
			c.ini.Section("scan").Key("min_size").SetValue(value)
		case "level":
			c.ini.Section("verbose").Key("level").SetValue(value)
		case "debug":
			c.ini.Section("verbose").Key("debug").SetValue(value)
		default:
			return fmt.Errorf("unsupported override key '%s' (supported: algorithm, buffer_size, prefilter, workers, format, destination, keep, min_size, level, debug)", key)
		}
	}

	return nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	return c.ini.SaveTo(c.configPath)
}

// ValidateHashAlgorithm validates that a hash algorithm is supported
func ValidateHashAlgorithm(algorithm string) error {
	if _, err := GetHashAlgorithm(algorithm); err != nil {
		return err
	}
	return nil
}

// ValidateReportFormat validates that a report format is supported
func ValidateReportFormat(format string) error {
	switch strings.ToLower(format) {
	case "csv", "json", "text":
		return nil
	default:
		return fmt.Errorf("unsupported report format: %s (supported: csv, json, text)", format)
	}
}

// ValidateVerboseLevel validates that a verbose level is valid
func ValidateVerboseLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("invalid verbose level: %d (supported: 0-3)", level)
	}
	return nil
}

// ValidateWorkers validates that the hash worker count is reasonable
func ValidateWorkers(workers int) error {
	if workers < 0 {
		return fmt.Errorf("workers must not be negative, got: %d", workers)
	}
	if workers > 256 {
		return fmt.Errorf("workers should not exceed 256, got: %d", workers)
	}
	return nil
}
