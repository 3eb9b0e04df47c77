package granola

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"followup/internal/fileutil"
	cache "followup/internal/granola"
	"followup/internal/logging"
	"followup/internal/services"
)

// ErrAuthUnavailable means no usable access token could be produced.
var ErrAuthUnavailable = errors.New("granola auth unavailable")

const (
	defaultAuthURL = "https://api.workos.com/user_management/authenticate"
	probeDocument  = "00000000-0000-0000-0000-000000000000"
	tokensKey      = "workos_tokens"
)

// TokenManager reads the app's stored credentials and refreshes them when
// the provider rejects the access token.
type TokenManager struct {
	authFile string
	authURL  string
	client   *Client
	logger   *slog.Logger

	mu sync.Mutex
}

// NewTokenManager builds a manager for the credentials at authFile. The
// client is used for the validity probe and its HTTP client for refreshes.
func NewTokenManager(authFile, authURL string, client *Client, logger *slog.Logger) *TokenManager {
	authURL = strings.TrimSpace(authURL)
	if authURL == "" {
		authURL = defaultAuthURL
	}
	return &TokenManager{
		authFile: authFile,
		authURL:  authURL,
		client:   client,
		logger:   logging.NewComponentLogger(logger, "granola-auth"),
	}
}

type storedCredentials struct {
	raw          map[string]json.RawMessage
	tokens       map[string]any
	encodedAsStr bool
}

func (s storedCredentials) value(key string) string {
	v, _ := s.tokens[key].(string)
	return strings.TrimSpace(v)
}

// ValidToken returns an access token the API accepts, refreshing it once
// on a 401 probe. Probe failures other than 401 keep the current token.
func (m *TokenManager) ValidToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.load()
	if err != nil {
		return "", err
	}
	token := creds.value("access_token")
	if token == "" {
		return "", fmt.Errorf("%w: no access_token in %s", ErrAuthUnavailable, m.authFile)
	}

	_, err = m.client.post(ctx, panelsPath, token, map[string]string{"document_id": probeDocument})
	if err == nil || !errors.Is(err, services.ErrUnauthorized) {
		if err != nil {
			m.logger.Debug("token probe inconclusive; keeping token", logging.Error(err))
		}
		return token, nil
	}

	m.logger.Info("access token rejected; refreshing")
	refreshed, err := m.refresh(ctx, creds)
	if err != nil {
		return "", err
	}
	return refreshed, nil
}

// AccessToken returns the stored token without probing it.
func (m *TokenManager) AccessToken() (string, error) {
	creds, err := m.load()
	if err != nil {
		return "", err
	}
	token := creds.value("access_token")
	if token == "" {
		return "", fmt.Errorf("%w: no access_token in %s", ErrAuthUnavailable, m.authFile)
	}
	return token, nil
}

func (m *TokenManager) load() (storedCredentials, error) {
	data, err := os.ReadFile(m.authFile)
	if err != nil {
		return storedCredentials{}, fmt.Errorf("%w: read %s: %w", ErrAuthUnavailable, m.authFile, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return storedCredentials{}, fmt.Errorf("%w: parse %s: %v", ErrAuthUnavailable, m.authFile, err)
	}
	tokensRaw, ok := raw[tokensKey]
	if !ok {
		return storedCredentials{}, fmt.Errorf("%w: %s missing %s", ErrAuthUnavailable, m.authFile, tokensKey)
	}
	decoded, err := cache.DecodeEmbedded(tokensRaw, nil)
	if err != nil {
		return storedCredentials{}, fmt.Errorf("%w: decode %s: %w", ErrAuthUnavailable, tokensKey, err)
	}
	tokens := make(map[string]any, len(decoded))
	for key, value := range decoded {
		var v any
		if err := json.Unmarshal(value, &v); err == nil {
			tokens[key] = v
		}
	}
	return storedCredentials{
		raw:          raw,
		tokens:       tokens,
		encodedAsStr: strings.HasPrefix(strings.TrimSpace(string(tokensRaw)), `"`),
	}, nil
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (m *TokenManager) refresh(ctx context.Context, creds storedCredentials) (string, error) {
	refreshToken := creds.value("refresh_token")
	if refreshToken == "" {
		return "", fmt.Errorf("%w: no refresh_token available", ErrAuthUnavailable)
	}
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     creds.value("client_id"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode refresh: %w", ErrAuthUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build refresh: %w", ErrAuthUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.client.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: refresh request: %w", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := readBody(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read refresh response: %w", ErrAuthUnavailable, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: refresh returned http %d: %s", ErrAuthUnavailable, resp.StatusCode, snippet(body))
	}
	var refreshed refreshResponse
	if err := json.Unmarshal(body, &refreshed); err != nil {
		return "", fmt.Errorf("%w: decode refresh response: %w", ErrAuthUnavailable, err)
	}
	if strings.TrimSpace(refreshed.AccessToken) == "" {
		return "", fmt.Errorf("%w: refresh response had no access_token", ErrAuthUnavailable)
	}

	creds.tokens["access_token"] = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		creds.tokens["refresh_token"] = refreshed.RefreshToken
	}
	if err := m.persist(creds); err != nil {
		logging.WarnWithContext(m.logger, "refreshed token not saved", "granola_token_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+m.authFile),
			logging.String(logging.FieldImpact, "the next run will refresh again"))
	} else {
		m.logger.Info("access token refreshed")
	}
	return refreshed.AccessToken, nil
}

func (m *TokenManager) persist(creds storedCredentials) error {
	tokensJSON, err := json.Marshal(creds.tokens)
	if err != nil {
		return err
	}
	if creds.encodedAsStr {
		tokensJSON, err = json.Marshal(string(tokensJSON))
		if err != nil {
			return err
		}
	}
	creds.raw[tokensKey] = tokensJSON
	data, err := json.Marshal(creds.raw)
	if err != nil {
		return err
	}
	mode := os.FileMode(0o600)
	if info, err := os.Stat(m.authFile); err == nil {
		mode = info.Mode().Perm()
	}
	return fileutil.WriteFileAtomic(m.authFile, data, mode)
}
