package workflow

import (
	"context"
	"errors"
	"strings"

	"followup/internal/drafting"
	"followup/internal/granola"
	"followup/internal/logging"
	"followup/internal/meeting"
	"followup/internal/notifications"
	"followup/internal/readiness"
	"followup/internal/services"
	"followup/internal/textutil"
)

// processMeeting drives one meeting to a terminal outcome. The returned error
// is non-nil only when ctx is done.
func (r *Runner) processMeeting(ctx context.Context, token string, doc granola.Document, snapshot granola.Snapshot) (MeetingResult, error) {
	ctx = services.WithMeetingID(ctx, doc.ID)
	logger := logging.WithContext(ctx, r.logger)
	result := MeetingResult{ID: doc.ID, Title: doc.DisplayTitle()}

	record, err := meeting.FromDocument(doc, r.opts.OwnerEmail)
	if err != nil {
		result.Outcome, result.Detail = OutcomeFailed, err.Error()
		logging.ErrorWithContext(logger, "meeting record invalid", "meeting_invalid", logging.Error(err))
		return result, nil
	}
	logger.Info("processing meeting",
		logging.String("title", record.Title),
		logging.Time("scheduled_at", record.ScheduledAt),
		logging.Int("attendees", len(record.Attendees)),
	)

	if !r.classifier.IsExternal(record.Attendees) {
		logger.Info("internal meeting; skipping")
		r.markProcessed(ctx, record.ID)
		result.Outcome, result.Detail = OutcomeSkipped, "internal meeting"
		return result, nil
	}

	recipients := r.classifier.PartitionRecipients(record.Attendees)
	if !recipients.Processable() {
		logger.Warn("no external recipients; skipping")
		r.markProcessed(ctx, record.ID)
		result.Outcome, result.Detail = OutcomeSkipped, "no external recipients"
		return result, nil
	}
	logger.Info("external meeting",
		logging.Strings("to", recipients.To),
		logging.Strings("cc", recipients.CC),
	)

	ready, err := r.deps.Poller.Poll(ctx, record.ID, token, snapshot.Transcript(record.ID))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		detail := "content not ready"
		if errors.Is(err, readiness.ErrContentUnusable) {
			detail = "transcript lacks speaker attribution"
		}
		logger.Info("content unavailable; deferring to next trigger", logging.String("reason", detail))
		if deferErr := r.deps.State.Defer(record.ID); deferErr != nil {
			logging.WarnWithContext(logger, "failed to persist deferral", "state_write_failed",
				logging.Error(deferErr),
				logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
				logging.String(logging.FieldImpact, "meeting is retried only while inside the age window"))
		}
		r.publish(ctx, notifications.EventMeetingDeferred, notifications.Payload{"title": record.Title})
		result.Outcome, result.Detail = OutcomeDeferred, detail
		return result, nil
	}
	logger.Info("content ready",
		logging.Int("attempts", ready.Attempts),
		logging.Int("notes_chars", len(ready.Payload.Notes)),
		logging.Int("transcript_chars", len(ready.Payload.Transcript)),
	)

	draft, err := r.deps.Drafts.Generate(ctx, drafting.Request{
		Record:         record,
		Recipients:     recipients,
		Payload:        ready.Payload,
		SenderName:     r.senderName(ctx),
		ExternalNames:  record.ExternalNames(r.classifier),
		Correspondence: r.correspondence(ctx, recipients.To),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		logging.ErrorWithContext(logger, "draft generation failed", "draft_generation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm settings and API key"),
		)
		result.Outcome, result.Detail = OutcomeFailed, "draft generation failed: "+err.Error()
		return result, nil
	}

	draftID, err := r.deps.Delivery.CreateDraft(ctx, draft.Subject, draft.Body, recipients.To, recipients.CC)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		logging.ErrorWithContext(logger, "draft delivery failed", "draft_delivery_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-authorize Gmail or check gmail.token_file"),
		)
		result.Outcome, result.Detail = OutcomeFailed, "draft delivery failed: "+err.Error()
		return result, nil
	}

	r.markProcessed(ctx, record.ID)
	r.publish(ctx, notifications.EventDraftReady, notifications.Payload{"title": record.Title})
	logger.Info("draft ready", logging.String("draft_id", draftID), logging.String("subject", draft.Subject))
	result.Outcome, result.Detail = OutcomeSuccess, draftID
	return result, nil
}

func (r *Runner) markProcessed(ctx context.Context, id string) {
	if err := r.deps.State.MarkProcessed(id); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to persist processed meeting", "state_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "meeting may be processed again on the next trigger"))
	}
}

// senderName prefers the mailbox display name over the configured owner name.
func (r *Runner) senderName(ctx context.Context) string {
	if r.deps.Sender != nil {
		name, err := r.deps.Sender.SenderName(ctx)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "sender name lookup failed", "sender_name_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "configured owner name used for the sign-off"))
		} else if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	return textutil.FirstName(r.opts.OwnerName)
}

func (r *Runner) correspondence(ctx context.Context, emails []string) []string {
	if r.deps.Correspondence == nil || len(emails) == 0 {
		return nil
	}
	snippets, err := r.deps.Correspondence.RecentCorrespondence(ctx, emails)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "correspondence lookup failed", "correspondence_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "draft generated without prior email context"))
	}
	return snippets
}
