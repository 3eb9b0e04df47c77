package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"followup/internal/config"
	"followup/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[owner]\nemail = %q\nname = %q\ninternal_domain = %q\n\n", cfg.Owner.Email, cfg.Owner.Name, cfg.Owner.InternalDomain)
	fmt.Fprintf(&b, "[paths]\nstate_dir = %q\ngranola_dir = %q\nauth_file = %q\n\n", cfg.Paths.StateDir, cfg.Paths.GranolaDir, cfg.Paths.AuthFile)
	fmt.Fprintf(&b, "[granola]\nbase_url = %q\nauth_url = %q\n\n", cfg.Granola.BaseURL, cfg.Granola.AuthURL)
	fmt.Fprintf(&b, "[pipeline]\nsettle_delay_seconds = 0\npoll_interval_seconds = 1\npoll_max_wait_seconds = 0\n\n")
	fmt.Fprintf(&b, "[llm]\nprovider = %q\napi_key = %q\nbase_url = %q\n\n", cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.BaseURL)
	fmt.Fprintf(&b, "[gmail]\nenabled = false\n\n")
	fmt.Fprintf(&b, "[notifications]\ndesktop = false\n\n")
	fmt.Fprintf(&b, "[history]\nenabled = true\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
