package readiness

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"followup/internal/content"
	"followup/internal/logging"
)

var (
	// ErrNotReady means content never crossed the minimum length in time.
	ErrNotReady = errors.New("meeting content not ready")
	// ErrContentUnusable means content exists but cannot be attributed to
	// speakers. It is not retried within a call.
	ErrContentUnusable = errors.New("meeting content unusable")
)

// Source fetches meeting content from the notes provider. Implementations
// report transport failures as errors; the poller treats them as "nothing
// yet".
type Source interface {
	FetchPanels(ctx context.Context, meetingID, token string) ([]content.Panel, error)
	FetchTranscript(ctx context.Context, meetingID, token string) ([]content.TranscriptSegment, error)
}

// Options tunes the poll loop.
type Options struct {
	Interval           time.Duration
	MaxWait            time.Duration
	MinChars           int
	RequireAttribution bool
	Clock              Clock
	Logger             *slog.Logger
}

// Poller drives one meeting's readiness loop.
type Poller struct {
	source   Source
	interval time.Duration
	maxWait  time.Duration
	minChars int
	attrib   bool
	clock    Clock
	logger   *slog.Logger
}

// Result is the outcome of a successful poll.
type Result struct {
	Payload  content.Payload
	Attempts int
	Waited   time.Duration
}

// NewPoller builds a poller with defaults for zero options.
func NewPoller(source Source, opts Options) *Poller {
	p := &Poller{
		source:   source,
		interval: opts.Interval,
		maxWait:  opts.MaxWait,
		minChars: opts.MinChars,
		attrib:   opts.RequireAttribution,
		clock:    opts.Clock,
		logger:   logging.NewComponentLogger(opts.Logger, "readiness"),
	}
	if p.interval <= 0 {
		p.interval = 30 * time.Second
	}
	if p.maxWait < 0 {
		p.maxWait = 0
	}
	if p.minChars <= 0 {
		p.minChars = 50
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	return p
}

// Poll waits for meetingID's notes to become ready, then attaches the
// transcript. cached is used when the provider has no transcript.
func (p *Poller) Poll(ctx context.Context, meetingID, token string, cached []content.TranscriptSegment) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	var (
		elapsed  time.Duration
		attempts int
	)

	for elapsed < p.maxWait {
		attempts++
		if notes, ok := p.attempt(ctx, logger, meetingID, token, attempts); ok {
			return p.complete(ctx, logger, meetingID, token, notes, cached, attempts, elapsed)
		}
		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return Result{Attempts: attempts, Waited: elapsed}, err
		}
		elapsed += p.interval
	}

	attempts++
	if notes, ok := p.attempt(ctx, logger, meetingID, token, attempts); ok {
		return p.complete(ctx, logger, meetingID, token, notes, cached, attempts, elapsed)
	}

	logger.Info("content not ready within wait ceiling",
		logging.Int("attempts", attempts),
		logging.Duration("waited", elapsed))
	return Result{Attempts: attempts, Waited: elapsed}, ErrNotReady
}

func (p *Poller) attempt(ctx context.Context, logger *slog.Logger, meetingID, token string, n int) (string, bool) {
	panels, err := p.source.FetchPanels(ctx, meetingID, token)
	if err != nil {
		logger.Info("panel fetch failed; waiting", logging.Int("attempt", n), logging.Error(err))
		return "", false
	}
	if len(panels) == 0 {
		logger.Info("no panels yet; waiting", logging.Int("attempt", n))
		return "", false
	}
	notes := strings.TrimSpace(content.PanelsToNotes(panels))
	if chars := len([]rune(notes)); chars < p.minChars {
		logger.Info("panels still generating; waiting",
			logging.Int("attempt", n),
			logging.Int("chars", chars),
			logging.Int("min_chars", p.minChars))
		return "", false
	}
	return notes, true
}

func (p *Poller) complete(ctx context.Context, logger *slog.Logger, meetingID, token, notes string, cached []content.TranscriptSegment, attempts int, elapsed time.Duration) (Result, error) {
	result := Result{Attempts: attempts, Waited: elapsed, Payload: content.Payload{Notes: notes}}

	segments, err := p.source.FetchTranscript(ctx, meetingID, token)
	if err != nil {
		logger.Info("transcript fetch failed", logging.Error(err))
		segments = nil
	}
	source := "api"
	if !hasText(segments) && hasText(cached) {
		segments = cached
		source = "cache"
	}
	if !hasText(segments) {
		logger.Info("content ready without transcript",
			logging.Int("attempts", attempts),
			logging.Int("notes_chars", len(notes)))
		return result, nil
	}

	transcript := content.FormatTranscript(segments, p.attrib)
	if transcript == "" {
		logging.WarnWithContext(logger, "transcript has a single audio source", "transcript_unattributed",
			logging.Int("segments", len(segments)),
			logging.String("transcript_source", source),
			logging.String(logging.FieldErrorHint, "speakerphone or one-sided capture prevents speaker attribution"),
			logging.String(logging.FieldImpact, "meeting deferred"))
		return Result{Attempts: attempts, Waited: elapsed}, ErrContentUnusable
	}
	result.Payload.Transcript = transcript
	logger.Info("content ready",
		logging.Int("attempts", attempts),
		logging.Int("notes_chars", len(notes)),
		logging.Int("transcript_chars", len(transcript)),
		logging.String("transcript_source", source))
	return result, nil
}

func hasText(segments []content.TranscriptSegment) bool {
	for _, seg := range segments {
		if strings.TrimSpace(seg.Text) != "" {
			return true
		}
	}
	return false
}
