package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"followup/internal/config"
)

// CacheMeeting describes one document written by WriteCache.
type CacheMeeting struct {
	ID        string
	Title     string
	Start     time.Time
	Attendees []string
}

// WriteCache writes a cache-v3.json file into the configured Granola
// directory using the object envelope and returns its path.
func WriteCache(t testing.TB, cfg *config.Config, meetings ...CacheMeeting) string {
	t.Helper()

	documents := map[string]any{}
	for _, m := range meetings {
		var attendees []map[string]any
		for _, email := range m.Attendees {
			attendees = append(attendees, map[string]any{
				"email": email,
				"self":  email == cfg.Owner.Email,
			})
		}
		documents[m.ID] = map[string]any{
			"id":         m.ID,
			"title":      m.Title,
			"created_at": m.Start.UTC().Format(time.RFC3339Nano),
			"google_calendar_event": map[string]any{
				"summary":   m.Title,
				"start":     map[string]any{"dateTime": m.Start.UTC().Format(time.RFC3339)},
				"attendees": attendees,
			},
		}
	}
	body := map[string]any{
		"cache": map[string]any{
			"state":   map[string]any{"documents": documents, "transcripts": map[string]any{}},
			"version": 3,
		},
	}
	return writeJSON(t, filepath.Join(cfg.Paths.GranolaDir, "cache-v3.json"), body)
}

// WriteAuthFile stores provider credentials in the configured auth file.
func WriteAuthFile(t testing.TB, cfg *config.Config, accessToken, refreshToken string) string {
	t.Helper()

	tokens, err := json.Marshal(map[string]string{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
	if err != nil {
		t.Fatalf("encode tokens: %v", err)
	}
	return writeJSON(t, cfg.Paths.AuthFile, map[string]any{"workos_tokens": string(tokens)})
}

func writeJSON(t testing.TB, path string, body any) string {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
