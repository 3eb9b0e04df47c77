package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"

	"followup/internal/fileutil"
)

// ErrNoToken reports a missing or unusable authorized token file.
var ErrNoToken = errors.New("gmail token unavailable")

var scopes = []string{gmailapi.GmailComposeScope, gmailapi.GmailReadonlyScope}

// pythonExpiryLayout matches google-auth's naive UTC timestamps.
const pythonExpiryLayout = "2006-01-02T15:04:05.999999"

// storedToken accepts both the google-auth JSON layout ("token", "expiry")
// and the oauth2.Token layout ("access_token", "expiry").
type storedToken struct {
	Token        string   `json:"token,omitempty"`
	AccessToken  string   `json:"access_token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	TokenType    string   `json:"token_type,omitempty"`
	TokenURI     string   `json:"token_uri,omitempty"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

func (s storedToken) oauthToken() *oauth2.Token {
	access := s.Token
	if access == "" {
		access = s.AccessToken
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       parseExpiry(s.Expiry),
	}
}

func parseExpiry(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC()
	}
	if ts, err := time.Parse(pythonExpiryLayout, strings.TrimSuffix(value, "Z")); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}

// loadOAuth builds the OAuth client configuration and the stored token.
// Client details embedded in the token file are used when the credentials
// file is absent.
func loadOAuth(credentialsFile, tokenFile string) (*oauth2.Config, storedToken, error) {
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storedToken{}, fmt.Errorf("%w: %s not found", ErrNoToken, tokenFile)
		}
		return nil, storedToken{}, fmt.Errorf("read gmail token: %w", err)
	}
	var stored storedToken
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, storedToken{}, fmt.Errorf("%w: parse %s: %v", ErrNoToken, tokenFile, err)
	}
	if stored.RefreshToken == "" && stored.Token == "" && stored.AccessToken == "" {
		return nil, storedToken{}, fmt.Errorf("%w: %s holds no token", ErrNoToken, tokenFile)
	}

	if creds, err := os.ReadFile(credentialsFile); err == nil {
		cfg, err := google.ConfigFromJSON(creds, scopes...)
		if err != nil {
			return nil, storedToken{}, fmt.Errorf("parse gmail credentials: %w", err)
		}
		return cfg, stored, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, storedToken{}, fmt.Errorf("read gmail credentials: %w", err)
	}

	if stored.ClientID == "" {
		return nil, storedToken{}, fmt.Errorf("gmail credentials %s not found and token carries no client id", credentialsFile)
	}
	tokenURL := stored.TokenURI
	if tokenURL == "" {
		tokenURL = google.Endpoint.TokenURL
	}
	return &oauth2.Config{
		ClientID:     stored.ClientID,
		ClientSecret: stored.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: google.Endpoint.AuthURL, TokenURL: tokenURL},
		Scopes:       scopes,
	}, stored, nil
}

// persistingSource writes refreshed tokens back to the token file, keeping
// the layout and any extra keys the file already had.
type persistingSource struct {
	base oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func newPersistingSource(ctx context.Context, cfg *oauth2.Config, stored storedToken, path string) *persistingSource {
	initial := stored.oauthToken()
	return &persistingSource{
		base: oauth2.ReuseTokenSource(initial, cfg.TokenSource(ctx, initial)),
		path: path,
		last: initial.AccessToken,
	}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.persist(tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

func (p *persistingSource) persist(tok *oauth2.Token) error {
	doc := map[string]any{}
	mode := fs.FileMode(0o600)
	if info, err := os.Stat(p.path); err == nil {
		mode = info.Mode().Perm()
	}
	if data, err := os.ReadFile(p.path); err == nil {
		_ = json.Unmarshal(data, &doc)
	}

	accessKey := "token"
	if _, ok := doc["access_token"]; ok {
		accessKey = "access_token"
	}
	doc[accessKey] = tok.AccessToken
	if tok.RefreshToken != "" {
		doc["refresh_token"] = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		doc["expiry"] = tok.Expiry.UTC().Format(time.RFC3339Nano)
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode gmail token: %w", err)
	}
	if err := fileutil.WriteFileAtomic(p.path, encoded, mode); err != nil {
		return fmt.Errorf("persist gmail token: %w", err)
	}
	return nil
}
