package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOwner(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOwner() error {
	if c.Owner.Email == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("owner.email is required. Set FOLLOWUP_OWNER_EMAIL env var or edit %s (create with 'followup config init')", defaultPath)
	}
	if _, err := mail.ParseAddress(c.Owner.Email); err != nil {
		return fmt.Errorf("owner.email %q is not a valid address: %w", c.Owner.Email, err)
	}
	if c.Owner.InternalDomain == "" {
		return errors.New("owner.internal_domain must be set")
	}
	if strings.Contains(c.Owner.InternalDomain, "@") {
		return fmt.Errorf("owner.internal_domain %q must be a bare domain", c.Owner.InternalDomain)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.PollIntervalSeconds <= 0 {
		return errors.New("pipeline.poll_interval_seconds must be positive")
	}
	if c.Pipeline.MaxContentChars < c.Pipeline.MinContentChars {
		return errors.New("pipeline.max_content_chars must not be smaller than pipeline.min_content_chars")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "anthropic", "openrouter":
		return nil
	default:
		return fmt.Errorf("llm.provider %q unsupported (use anthropic or openrouter)", c.LLM.Provider)
	}
}
