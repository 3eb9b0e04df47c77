package gmail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"followup/internal/fileutil"
	"followup/internal/services"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Outbox stores drafts as .eml files instead of sending them to Gmail.
type Outbox struct {
	dir string
	now func() time.Time
}

// NewOutbox returns an outbox writing into dir.
func NewOutbox(dir string) *Outbox {
	return &Outbox{dir: dir, now: time.Now}
}

// Dir returns the outbox directory.
func (o *Outbox) Dir() string {
	return o.dir
}

// CreateDraft writes the message and returns the file path as its identifier.
func (o *Outbox) CreateDraft(ctx context.Context, subject, body string, to, cc []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(to) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "outbox", "create draft", "no recipients", nil)
	}
	raw, err := buildMessage(subject, body, to, cc)
	if err != nil {
		return "", services.Wrap(services.ErrMalformed, "outbox", "create draft", "build message", err)
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return "", fmt.Errorf("create outbox: %w", err)
	}
	stem := unsafeName.ReplaceAllString(strings.ToLower(to[0]), "_")
	name := fmt.Sprintf("%s-%s.eml", o.now().UTC().Format("20060102T150405.000"), stem)
	path := filepath.Join(o.dir, name)
	if err := fileutil.WriteFileAtomic(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return path, nil
}
