package config

import "time"

// Config represents the complete Sage configuration
type Config struct {
	BaseDir  string         `yaml:"-"` // Directory containing config file, for resolving relative paths
	Registry RegistryConfig `yaml:"registry"`
	Rewrite  RewriteConfig  `yaml:"rewrite"`
	Check    CheckConfig    `yaml:"check"`
	Watch    WatchConfig    `yaml:"watch"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RegistryConfig names the tag helper descriptor files
type RegistryConfig struct {
	Files  StringOrSlice `yaml:"files"`  // Descriptor files (.yaml, optionally .gz or .zst compressed)
	Prefix string        `yaml:"prefix"` // Overrides the prefix declared by the files
}

// RewriteConfig holds rewriter settings
type RewriteConfig struct {
	TransitionTag string `yaml:"transition_tag"` // Pseudo-tag that switches code back to markup (default: "text")
}

// CheckConfig controls which files `sage check` and `sage watch` read
type CheckConfig struct {
	Extensions StringOrSlice `yaml:"extensions"` // Template file extensions (default: .cshtml)
	Workers    int           `yaml:"workers"`    // Files processed at once (0 = one per CPU)
}

// WatchConfig holds file watcher settings
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"` // Quiet period before a changed file is checked (default: 100ms)
}

// HistoryConfig holds settings for the check history database
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`      // Record every check run
	Path        string `yaml:"path"`         // Database file (default: sage_history.db next to the config)
	MaxSize     string `yaml:"max_size"`     // Maximum database size (default: "10MB")
	TruncatePct int    `yaml:"truncate_pct"` // Percentage to delete when truncating (default: 25)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Contains checks if the slice contains the given string
func (s StringOrSlice) Contains(str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Rewrite: RewriteConfig{
			TransitionTag: "text",
		},
		Check: CheckConfig{
			Extensions: StringOrSlice{".cshtml"},
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		History: HistoryConfig{
			MaxSize:     "10MB",
			TruncatePct: 25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
