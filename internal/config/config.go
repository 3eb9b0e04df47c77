package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Owner identifies the person the pipeline drafts emails for.
type Owner struct {
	Email          string `toml:"email"`
	Name           string `toml:"name"`
	Company        string `toml:"company"`
	InternalDomain string `toml:"internal_domain"`
}

// Paths contains file and directory locations.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	GranolaDir string `toml:"granola_dir"`
	CacheFile  string `toml:"cache_file"`
	AuthFile   string `toml:"auth_file"`
}

// Granola contains settings for the notes provider API.
type Granola struct {
	BaseURL        string `toml:"base_url"`
	AuthURL        string `toml:"auth_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pipeline contains the orchestration timing and bookkeeping knobs.
type Pipeline struct {
	SettleDelaySeconds        int  `toml:"settle_delay_seconds"`
	MaxMeetingAgeHours        int  `toml:"max_meeting_age_hours"`
	PollIntervalSeconds       int  `toml:"poll_interval_seconds"`
	PollMaxWaitSeconds        int  `toml:"poll_max_wait_seconds"`
	MinContentChars           int  `toml:"min_content_chars"`
	MaxContentChars           int  `toml:"max_content_chars"`
	RequireSpeakerAttribution bool `toml:"require_speaker_attribution"`
	ProcessedLimit            int  `toml:"processed_limit"`
	DeferredLimit             int  `toml:"deferred_limit"`
}

// LLM contains the draft generation model settings.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Subject        string `toml:"subject"`
}

// Gmail contains the draft delivery settings.
type Gmail struct {
	Enabled                    bool   `toml:"enabled"`
	CredentialsFile            string `toml:"credentials_file"`
	TokenFile                  string `toml:"token_file"`
	CorrespondenceLookbackDays int    `toml:"correspondence_lookback_days"`
	CorrespondenceLimit        int    `toml:"correspondence_limit"`
}

// Notifications contains configuration for desktop and ntfy notifications.
type Notifications struct {
	Desktop        bool   `toml:"desktop"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	DraftReady     bool   `toml:"draft_ready"`
	Deferred       bool   `toml:"deferred"`
	Failures       bool   `toml:"failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains configuration for the run history ledger.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Config encapsulates all configuration values for followup.
//
// Configuration sections by subsystem:
//   - Owner: whose meetings are processed and which domain counts as internal
//   - Paths: state directory and notes cache locations
//   - Granola: notes provider API endpoints
//   - Pipeline: settle delay, age window, readiness polling, state caps
//   - LLM: draft generation model
//   - Gmail: draft delivery
//   - Notifications: desktop and ntfy notification settings
//   - Logging: log format and level
//   - History: SQLite run ledger
type Config struct {
	Owner         Owner         `toml:"owner"`
	Paths         Paths         `toml:"paths"`
	Granola       Granola       `toml:"granola"`
	Pipeline      Pipeline      `toml:"pipeline"`
	LLM           LLM           `toml:"llm"`
	Gmail         Gmail         `toml:"gmail"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	History       History       `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("followup.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory used for the lock, state, log, and history files.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// StatePath is the persisted processed/deferred record.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.StateDir, "state.json")
}

// LockPath is the advisory lock file guarding a pipeline run.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "run.lock")
}

// LogPath is the append-only log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "followup.log")
}

// HistoryPath is the SQLite run ledger.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// OutboxDir receives .eml drafts when Gmail delivery is disabled.
func (c *Config) OutboxDir() string {
	return filepath.Join(c.Paths.StateDir, "outbox")
}

// SettleDelay returns the pause between trigger and cache read.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Pipeline.SettleDelaySeconds) * time.Second
}

// MaxMeetingAge returns the recency window for newly eligible meetings.
func (c *Config) MaxMeetingAge() time.Duration {
	return time.Duration(c.Pipeline.MaxMeetingAgeHours) * time.Hour
}

// PollInterval returns the sleep between readiness attempts.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Pipeline.PollIntervalSeconds) * time.Second
}

// PollMaxWait returns the readiness wait ceiling.
func (c *Config) PollMaxWait() time.Duration {
	return time.Duration(c.Pipeline.PollMaxWaitSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
