package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeOwner()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGranola()
	c.normalizePipeline()
	c.normalizeLLM()
	if err := c.normalizeGmail(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeOwner() {
	c.Owner.Email = strings.ToLower(strings.TrimSpace(c.Owner.Email))
	if c.Owner.Email == "" {
		if value, ok := os.LookupEnv("FOLLOWUP_OWNER_EMAIL"); ok {
			c.Owner.Email = strings.ToLower(strings.TrimSpace(value))
		}
	}
	c.Owner.Name = strings.TrimSpace(c.Owner.Name)
	c.Owner.Company = strings.TrimSpace(c.Owner.Company)
	domain := strings.ToLower(strings.TrimSpace(c.Owner.InternalDomain))
	domain = strings.TrimPrefix(domain, "@")
	if domain == "" {
		if at := strings.LastIndex(c.Owner.Email, "@"); at >= 0 {
			domain = c.Owner.Email[at+1:]
		}
	}
	c.Owner.InternalDomain = domain
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.GranolaDir) == "" {
		c.Paths.GranolaDir = defaultGranolaDir
	}
	if c.Paths.GranolaDir, err = expandPath(c.Paths.GranolaDir); err != nil {
		return fmt.Errorf("paths.granola_dir: %w", err)
	}
	if c.Paths.CacheFile, err = expandPath(strings.TrimSpace(c.Paths.CacheFile)); err != nil {
		return fmt.Errorf("paths.cache_file: %w", err)
	}
	if strings.TrimSpace(c.Paths.AuthFile) == "" {
		c.Paths.AuthFile = filepath.Join(c.Paths.GranolaDir, defaultAuthFileName)
	}
	if c.Paths.AuthFile, err = expandPath(c.Paths.AuthFile); err != nil {
		return fmt.Errorf("paths.auth_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeGranola() {
	c.Granola.BaseURL = strings.TrimRight(strings.TrimSpace(c.Granola.BaseURL), "/")
	if c.Granola.BaseURL == "" {
		c.Granola.BaseURL = defaultGranolaBaseURL
	}
	c.Granola.AuthURL = strings.TrimSpace(c.Granola.AuthURL)
	if c.Granola.AuthURL == "" {
		c.Granola.AuthURL = defaultGranolaAuthURL
	}
	if c.Granola.TimeoutSeconds <= 0 {
		c.Granola.TimeoutSeconds = defaultGranolaTimeoutSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.SettleDelaySeconds < 0 {
		c.Pipeline.SettleDelaySeconds = 0
	}
	if c.Pipeline.MaxMeetingAgeHours <= 0 {
		c.Pipeline.MaxMeetingAgeHours = defaultMaxMeetingAgeHours
	}
	if c.Pipeline.PollMaxWaitSeconds < 0 {
		c.Pipeline.PollMaxWaitSeconds = 0
	}
	if c.Pipeline.MinContentChars <= 0 {
		c.Pipeline.MinContentChars = defaultMinContentChars
	}
	if c.Pipeline.MaxContentChars <= 0 {
		c.Pipeline.MaxContentChars = defaultMaxContentChars
	}
	if c.Pipeline.ProcessedLimit <= 0 {
		c.Pipeline.ProcessedLimit = defaultProcessedLimit
	}
	if c.Pipeline.DeferredLimit <= 0 {
		c.Pipeline.DeferredLimit = defaultDeferredLimit
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultAnthropicBaseURL
		}
		if c.LLM.APIKey == "" {
			if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		}
	case "openrouter":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.APIKey == "" {
			if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	c.LLM.Subject = strings.TrimSpace(c.LLM.Subject)
	if c.LLM.Subject == "" {
		c.LLM.Subject = defaultDraftSubject
	}
}

func (c *Config) normalizeGmail() error {
	var err error
	if strings.TrimSpace(c.Gmail.CredentialsFile) == "" {
		c.Gmail.CredentialsFile = defaultGmailCredentialsFile
	}
	if c.Gmail.CredentialsFile, err = expandPath(c.Gmail.CredentialsFile); err != nil {
		return fmt.Errorf("gmail.credentials_file: %w", err)
	}
	if strings.TrimSpace(c.Gmail.TokenFile) == "" {
		c.Gmail.TokenFile = defaultGmailTokenFile
	}
	if c.Gmail.TokenFile, err = expandPath(c.Gmail.TokenFile); err != nil {
		return fmt.Errorf("gmail.token_file: %w", err)
	}
	if c.Gmail.CorrespondenceLookbackDays < 0 {
		c.Gmail.CorrespondenceLookbackDays = 0
	}
	if c.Gmail.CorrespondenceLimit < 0 {
		c.Gmail.CorrespondenceLimit = 0
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("FOLLOWUP_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
