package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"followup/internal/config"
	"followup/internal/deps"
	"followup/internal/granola"
	granolaapi "followup/internal/services/granola"
	"followup/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		Provider:       cfg.Provider,
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		MaxTokens:      cfg.MaxTokens,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s %s reachable", cfg.Provider, cfg.Model)}
}

// CheckLLMKey reports whether an API key is configured without calling the API.
func CheckLLMKey(name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s key configured (%s)", cfg.Provider, cfg.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCache locates and parses the notes cache the same way a run does.
func CheckCache(cfg *config.Config) Result {
	const name = "Granola cache"

	snapshot, err := granola.NewReader(cfg.Paths.GranolaDir, cfg.Paths.CacheFile, nil).Read()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d meetings)", filepath.Base(snapshot.Path), len(snapshot.Documents)),
	}
}

// CheckGranolaAuth verifies the stored access token. With probe set the token
// is validated against the API, which may refresh it.
func CheckGranolaAuth(ctx context.Context, cfg *config.Config, probe bool) Result {
	const name = "Granola auth"

	client := granolaapi.NewClient(cfg.Granola.BaseURL, time.Duration(cfg.Granola.TimeoutSeconds)*time.Second, nil)
	tokens := granolaapi.NewTokenManager(cfg.Paths.AuthFile, cfg.Granola.AuthURL, client, nil)
	if !probe {
		if _, err := tokens.AccessToken(); err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		return Result{Name: name, Passed: true, Detail: "token present in " + cfg.Paths.AuthFile}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := tokens.ValidToken(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "token accepted"}
}

// CheckGmail verifies the OAuth files needed for draft delivery.
func CheckGmail(cfg *config.Config) Result {
	const name = "Gmail"

	if !cfg.Gmail.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled (drafts written to " + cfg.OutboxDir() + ")"}
	}
	if err := readable(cfg.Gmail.TokenFile); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("token file %s (error: %v)", cfg.Gmail.TokenFile, err)}
	}
	if err := readable(cfg.Gmail.CredentialsFile); err != nil {
		// The token may carry its own client id and secret.
		return Result{Name: name, Passed: true, Detail: "token present; credentials file unavailable"}
	}
	return Result{Name: name, Passed: true, Detail: "token and credentials present"}
}

// CheckNotifierBinary verifies the desktop notification command for this OS.
func CheckNotifierBinary(cfg *config.Config) Result {
	const name = "Desktop notifications"

	command := "notify-send"
	if runtime.GOOS == "darwin" {
		command = "osascript"
	}
	status := deps.CheckBinaries([]deps.Requirement{{
		Name:        name,
		Command:     command,
		Description: "Shows draft-ready and failure notifications",
		Optional:    true,
	}})[0]
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: command}
}

func readable(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("not configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	return unix.Access(path, unix.R_OK)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
