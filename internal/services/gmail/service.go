package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"followup/internal/logging"
	"followup/internal/services"
	"followup/internal/textutil"
)

const (
	serviceName     = "gmail"
	userID          = "me"
	defaultLookback = 30 * 24 * time.Hour
	defaultLimit    = 5
)

// Options configures the Gmail service.
type Options struct {
	CredentialsFile string
	TokenFile       string
	Lookback        time.Duration
	Limit           int
	Logger          *slog.Logger
}

// Service wraps the Gmail API calls the pipeline needs.
type Service struct {
	api      *gmailapi.Service
	lookback time.Duration
	limit    int
	logger   *slog.Logger
}

// New authorizes against Gmail with the stored installed-app token.
func New(ctx context.Context, opts Options) (*Service, error) {
	cfg, stored, err := loadOAuth(opts.CredentialsFile, opts.TokenFile)
	if err != nil {
		return nil, err
	}
	source := newPersistingSource(context.Background(), cfg, stored, opts.TokenFile)
	api, err := gmailapi.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "build gmail client", err)
	}
	return newWithAPI(api, opts), nil
}

// NewWithHTTPClient targets an arbitrary endpoint with a caller-supplied
// client, bypassing OAuth.
func NewWithHTTPClient(ctx context.Context, endpoint string, client *http.Client, opts Options) (*Service, error) {
	api, err := gmailapi.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, serviceName, "init", "build gmail client", err)
	}
	return newWithAPI(api, opts), nil
}

// newWithAPI wraps an already constructed API client.
func newWithAPI(api *gmailapi.Service, opts Options) *Service {
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = defaultLookback
	}
	limit := opts.Limit
	if limit < 0 {
		limit = 0
	} else if limit == 0 {
		limit = defaultLimit
	}
	return &Service{
		api:      api,
		lookback: lookback,
		limit:    limit,
		logger:   logging.NewComponentLogger(opts.Logger, "gmail"),
	}
}

// CreateDraft stores a plain-text draft addressed to the recipients and
// returns its identifier.
func (s *Service) CreateDraft(ctx context.Context, subject, body string, to, cc []string) (string, error) {
	if len(to) == 0 {
		return "", services.Wrap(services.ErrConfiguration, serviceName, "create draft", "no recipients", nil)
	}
	raw, err := buildMessage(subject, body, to, cc)
	if err != nil {
		return "", services.Wrap(services.ErrMalformed, serviceName, "create draft", "build message", err)
	}
	draft, err := s.api.Users.Drafts.Create(userID, &gmailapi.Draft{
		Message: &gmailapi.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("create draft", err)
	}
	logging.WithContext(ctx, s.logger).Info("draft created",
		logging.String("draft_id", draft.Id),
		logging.Strings("to", to),
		logging.Strings("cc", cc),
	)
	return draft.Id, nil
}

// SenderName returns the first word of the primary send-as display name, or
// "" when none is configured.
func (s *Service) SenderName(ctx context.Context) (string, error) {
	resp, err := s.api.Users.Settings.SendAs.List(userID).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("list send-as", err)
	}
	for _, alias := range resp.SendAs {
		if alias == nil || !alias.IsPrimary {
			continue
		}
		return textutil.FirstName(alias.DisplayName), nil
	}
	return "", nil
}

// RecentCorrespondence returns "subject: snippet" lines from recent messages
// exchanged with any of the addresses, newest first.
func (s *Service) RecentCorrespondence(ctx context.Context, emails []string) ([]string, error) {
	query := correspondenceQuery(emails, s.lookback)
	if query == "" || s.limit == 0 {
		return nil, nil
	}
	list, err := s.api.Users.Messages.List(userID).Q(query).MaxResults(int64(s.limit)).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("search messages", err)
	}
	snippets := make([]string, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if ref == nil || ref.Id == "" {
			continue
		}
		msg, err := s.api.Users.Messages.Get(userID, ref.Id).Format("metadata").MetadataHeaders("Subject").Context(ctx).Do()
		if err != nil {
			return snippets, wrapAPIError("get message", err)
		}
		snippet := strings.TrimSpace(html.UnescapeString(msg.Snippet))
		if snippet == "" {
			continue
		}
		if subject := headerValue(msg.Payload, "Subject"); subject != "" {
			snippet = subject + ": " + snippet
		}
		snippets = append(snippets, snippet)
	}
	return snippets, nil
}

func correspondenceQuery(emails []string, lookback time.Duration) string {
	terms := make([]string, 0, len(emails)*2)
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		terms = append(terms, "from:"+email, "to:"+email)
	}
	if len(terms) == 0 {
		return ""
	}
	days := int(lookback / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("{%s} newer_than:%dd", strings.Join(terms, " "), days)
}

func headerValue(part *gmailapi.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, header := range part.Headers {
		if header != nil && strings.EqualFold(header.Name, name) {
			return strings.TrimSpace(header.Value)
		}
	}
	return ""
}

func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return services.Wrap(services.StatusMarker(apiErr.Code), serviceName, op, fmt.Sprintf("status %d", apiErr.Code), err)
	}
	return services.Wrap(services.ErrTransient, serviceName, op, "request failed", err)
}
