package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"followup/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Gmail delivery and desktop notifications are off so nothing leaves the
// sandbox unless an option turns it on.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Owner.Email = "owner@internal.example"
	cfgVal.Owner.Name = "Olive Owner"
	cfgVal.Owner.InternalDomain = "internal.example"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.GranolaDir = filepath.Join(base, "granola")
	cfgVal.Paths.AuthFile = filepath.Join(base, "granola", "supabase.json")
	cfgVal.Pipeline.SettleDelaySeconds = 0
	cfgVal.Gmail.Enabled = false
	cfgVal.Gmail.CredentialsFile = filepath.Join(base, "gmail", "credentials.json")
	cfgVal.Gmail.TokenFile = filepath.Join(base, "gmail", "token.json")
	cfgVal.Notifications.Desktop = false
	cfgVal.LLM.APIKey = "test"

	for _, dir := range []string{cfgVal.Paths.StateDir, cfgVal.Paths.GranolaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOwner overrides the owner address and internal domain.
func WithOwner(email, domain string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Owner.Email = email
		b.cfg.Owner.InternalDomain = domain
	}
}

// WithLLMEndpoint points draft generation at a test server.
func WithLLMEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithGranolaEndpoint points the notes API and token refresh at a test server.
func WithGranolaEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Granola.BaseURL = url
		b.cfg.Granola.AuthURL = url + "/authenticate"
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the desktop notification
// commands are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"notify-send", "osascript"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
