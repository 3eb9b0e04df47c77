package drafting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"followup/internal/content"
	"followup/internal/logging"
	"followup/internal/meeting"
	"followup/internal/services/llm"
	"followup/internal/textutil"
)

const (
	defaultMaxContentChars = 20000
	defaultSenderName      = "me"
	dateLayout             = "January 02, 2006"
)

// ErrIncompleteDraft reports a model reply without a usable subject or body.
var ErrIncompleteDraft = errors.New("draft reply missing subject or body")

// Completer is the JSON completion surface of the LLM client.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Draft is a generated follow-up email.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Request carries everything the prompt needs for one meeting.
type Request struct {
	Record         meeting.Record
	Recipients     meeting.RecipientSet
	Payload        content.Payload
	SenderName     string
	ExternalNames  []string
	Correspondence []string
}

// Options tunes the generator.
type Options struct {
	// Subject, when set, replaces whatever subject the model proposes.
	Subject         string
	Company         string
	MaxContentChars int
	Logger          *slog.Logger
}

// Generator drafts follow-up emails through an LLM.
type Generator struct {
	llm      Completer
	subject  string
	company  string
	maxChars int
	logger   *slog.Logger
}

// NewGenerator constructs a generator around the completion client.
func NewGenerator(client Completer, opts Options) *Generator {
	maxChars := opts.MaxContentChars
	if maxChars <= 0 {
		maxChars = defaultMaxContentChars
	}
	subject := strings.TrimSpace(opts.Subject)
	company := strings.TrimSpace(opts.Company)
	if subject != "" && company != "" {
		subject = fmt.Sprintf("%s (%s)", subject, company)
	}
	return &Generator{
		llm:      client,
		subject:  subject,
		company:  company,
		maxChars: maxChars,
		logger:   logging.NewComponentLogger(opts.Logger, "drafting"),
	}
}

// Generate asks the model for a draft and validates the reply.
func (g *Generator) Generate(ctx context.Context, req Request) (Draft, error) {
	if g == nil || g.llm == nil {
		return Draft{}, errors.New("draft generator unavailable")
	}
	if req.Payload.Empty() {
		return Draft{}, errors.New("meeting content is empty")
	}

	raw, err := g.llm.CompleteJSON(ctx, SystemPrompt, g.userPrompt(req))
	if err != nil {
		return Draft{}, fmt.Errorf("draft completion: %w", err)
	}

	var draft Draft
	if err := llm.DecodeLLMJSON(raw, &draft); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	draft.Subject = strings.TrimSpace(draft.Subject)
	draft.Body = strings.TrimSpace(draft.Body)
	if g.subject != "" {
		draft.Subject = g.subject
	}
	if draft.Subject == "" || draft.Body == "" {
		return Draft{}, ErrIncompleteDraft
	}

	logging.WithContext(ctx, g.logger).Info("draft generated",
		logging.String("subject", draft.Subject),
		logging.Int("body_chars", len(draft.Body)),
	)
	return draft, nil
}

func (g *Generator) userPrompt(req Request) string {
	sender := strings.TrimSpace(req.SenderName)
	if sender == "" {
		sender = defaultSenderName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s", sender)
	if g.company != "" {
		fmt.Fprintf(&b, " at %s", g.company)
	}
	b.WriteString(".\n\nMEETING DETAILS:\n")
	fmt.Fprintf(&b, "- Title: %s\n", req.Record.Title)
	if !req.Record.ScheduledAt.IsZero() {
		fmt.Fprintf(&b, "- Date: %s\n", req.Record.ScheduledAt.Local().Format(dateLayout))
	}
	fmt.Fprintf(&b, "- To (external): %s\n", strings.Join(req.Recipients.To, ", "))
	internal := "internal"
	if g.company != "" {
		internal = "internal " + g.company
	}
	fmt.Fprintf(&b, "- CC (%s): %s\n", internal, strings.Join(req.Recipients.CC, ", "))
	if len(req.ExternalNames) > 0 {
		fmt.Fprintf(&b, "- External attendees: %s\n", strings.Join(req.ExternalNames, ", "))
	}
	if g.subject != "" {
		fmt.Fprintf(&b, "- Subject line: %s\n", g.subject)
	}

	if len(req.Correspondence) > 0 {
		b.WriteString("\nRECENT CORRESPONDENCE (context only, do not quote):\n")
		for _, snippet := range req.Correspondence {
			if snippet = strings.TrimSpace(snippet); snippet != "" {
				fmt.Fprintf(&b, "- %s\n", snippet)
			}
		}
	}

	b.WriteString("\nMEETING CONTENT:\n")
	b.WriteString(textutil.Truncate(req.Payload.Text(), g.maxChars))
	fmt.Fprintf(&b, "\n\nSign off as %s.", sender)
	return b.String()
}
