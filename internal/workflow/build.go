package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"followup/internal/config"
	"followup/internal/drafting"
	"followup/internal/granola"
	"followup/internal/history"
	"followup/internal/logging"
	"followup/internal/notifications"
	"followup/internal/readiness"
	"followup/internal/runlock"
	"followup/internal/services/gmail"
	granolaapi "followup/internal/services/granola"
	"followup/internal/services/llm"
	"followup/internal/state"
)

// NewRunnerFromConfig wires the production collaborators. The returned close
// function releases the history database.
func NewRunnerFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runner, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("workflow: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	buildLogger := logging.NewComponentLogger(logger, "workflow")

	api := granolaapi.NewClient(cfg.Granola.BaseURL, time.Duration(cfg.Granola.TimeoutSeconds)*time.Second, nil)
	deps := Deps{
		Lock: runlock.New(cfg.LockPath()),
		State: state.NewStore(cfg.StatePath(), state.Options{
			ProcessedLimit: cfg.Pipeline.ProcessedLimit,
			DeferredLimit:  cfg.Pipeline.DeferredLimit,
			Logger:         logger,
		}),
		Cache: granola.NewReader(cfg.Paths.GranolaDir, cfg.Paths.CacheFile, logger),
		Auth:  granolaapi.NewTokenManager(cfg.Paths.AuthFile, cfg.Granola.AuthURL, api, logger),
		Poller: readiness.NewPoller(api, readiness.Options{
			Interval:           cfg.PollInterval(),
			MaxWait:            cfg.PollMaxWait(),
			MinChars:           cfg.Pipeline.MinContentChars,
			RequireAttribution: cfg.Pipeline.RequireSpeakerAttribution,
			Logger:             logger,
		}),
		Drafts: drafting.NewGenerator(llm.NewClient(llm.Config{
			Provider:       cfg.LLM.Provider,
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			MaxTokens:      cfg.LLM.MaxTokens,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}), drafting.Options{
			Subject:         cfg.LLM.Subject,
			Company:         cfg.Owner.Company,
			MaxContentChars: cfg.Pipeline.MaxContentChars,
			Logger:          logger,
		}),
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	}

	if cfg.Gmail.Enabled {
		svc, err := gmail.New(ctx, gmail.Options{
			CredentialsFile: cfg.Gmail.CredentialsFile,
			TokenFile:       cfg.Gmail.TokenFile,
			Lookback:        time.Duration(cfg.Gmail.CorrespondenceLookbackDays) * 24 * time.Hour,
			Limit:           cfg.Gmail.CorrespondenceLimit,
			Logger:          logger,
		})
		if err != nil {
			logging.WarnWithContext(buildLogger, "gmail unavailable; drafts will fail until re-authorized", "gmail_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check gmail.credentials_file and gmail.token_file"),
				logging.String(logging.FieldImpact, "external meetings with ready content are counted as failed"))
			deps.Delivery = unavailableDelivery{err: err}
		} else {
			deps.Delivery = svc
			deps.Sender = svc
			if cfg.Gmail.CorrespondenceLimit > 0 {
				deps.Correspondence = svc
			}
		}
	} else {
		deps.Delivery = gmail.NewOutbox(cfg.OutboxDir())
	}

	closeFn := func() error { return nil }
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			logging.WarnWithContext(buildLogger, "history ledger unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "delete history.db if it is corrupt"),
				logging.String(logging.FieldImpact, "runs are not recorded in history"))
		} else {
			deps.History = store
			closeFn = store.Close
		}
	}

	runner, err := NewRunner(deps, Options{
		OwnerEmail:       cfg.Owner.Email,
		OwnerName:        cfg.Owner.Name,
		InternalDomain:   cfg.Owner.InternalDomain,
		SettleDelay:      cfg.SettleDelay(),
		MaxAge:           cfg.MaxMeetingAge(),
		HistoryRetention: time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return runner, closeFn, nil
}

// WithoutSettleDelay disables the settle pause for manual invocations.
func (r *Runner) WithoutSettleDelay() *Runner {
	clone := *r
	clone.opts.SettleDelay = 0
	return &clone
}

type unavailableDelivery struct {
	err error
}

func (u unavailableDelivery) CreateDraft(context.Context, string, string, []string, []string) (string, error) {
	return "", fmt.Errorf("gmail unavailable: %w", u.err)
}
