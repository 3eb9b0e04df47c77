package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"followup/internal/content"
	"followup/internal/drafting"
	"followup/internal/granola"
	"followup/internal/notifications"
	"followup/internal/readiness"
	"followup/internal/runlock"
	"followup/internal/state"
	"followup/internal/testsupport"
	"followup/internal/workflow"
)

const (
	ownerEmail     = "owner@internal.example"
	internalDomain = "internal.example"
)

var baseNow = time.Date(2026, 4, 10, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeCache struct {
	snapshot granola.Snapshot
	err      error
	reads    int
}

func (f *fakeCache) Read() (granola.Snapshot, error) {
	f.reads++
	return f.snapshot, f.err
}

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) ValidToken(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

// fakeSource serves panels and transcripts per meeting id.
type fakeSource struct {
	panels      map[string][]content.Panel
	transcripts map[string][]content.TranscriptSegment
	panelCalls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		panels:      map[string][]content.Panel{},
		transcripts: map[string][]content.TranscriptSegment{},
		panelCalls:  map[string]int{},
	}
}

func (f *fakeSource) FetchPanels(_ context.Context, id, _ string) ([]content.Panel, error) {
	f.panelCalls[id]++
	return f.panels[id], nil
}

func (f *fakeSource) FetchTranscript(_ context.Context, id, _ string) ([]content.TranscriptSegment, error) {
	return f.transcripts[id], nil
}

func (f *fakeSource) totalCalls() int {
	total := 0
	for _, n := range f.panelCalls {
		total += n
	}
	return total
}

type fakeDrafts struct {
	err      error
	requests []drafting.Request
}

func (f *fakeDrafts) Generate(_ context.Context, req drafting.Request) (drafting.Draft, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return drafting.Draft{}, f.err
	}
	return drafting.Draft{Subject: "re: our call today", Body: "Hi,\n\nGreat speaking earlier.\n\nBest,\n" + req.SenderName}, nil
}

type sentDraft struct {
	subject string
	to, cc  []string
}

type fakeDelivery struct {
	err   error
	sent  []sentDraft
	calls int
}

func (f *fakeDelivery) CreateDraft(_ context.Context, subject, _ string, to, cc []string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentDraft{subject: subject, to: to, cc: cc})
	return "draft-id", nil
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type fakeNotifier struct {
	events []published
}

func (f *fakeNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	f.events = append(f.events, published{event: event, payload: payload})
	return nil
}

func (f *fakeNotifier) count(event notifications.Event) int {
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type harness struct {
	dir      string
	clock    *fakeClock
	cache    *fakeCache
	auth     *fakeAuth
	source   *fakeSource
	drafts   *fakeDrafts
	delivery *fakeDelivery
	notifier *fakeNotifier
	state    *state.Store
	lockPath string
	deps     workflow.Deps
	opts     workflow.Options
}

func newHarness(t *testing.T, docs ...granola.Document) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		dir:      dir,
		clock:    &fakeClock{now: baseNow},
		cache:    &fakeCache{snapshot: snapshotOf(docs...)},
		auth:     &fakeAuth{token: "token"},
		source:   newFakeSource(),
		drafts:   &fakeDrafts{},
		delivery: &fakeDelivery{},
		notifier: &fakeNotifier{},
		lockPath: filepath.Join(dir, "run.lock"),
	}
	h.state = state.NewStore(filepath.Join(dir, "state.json"), state.Options{Now: h.clock.Now})
	poller := readiness.NewPoller(h.source, readiness.Options{
		Interval:           30 * time.Second,
		MaxWait:            300 * time.Second,
		MinChars:           50,
		RequireAttribution: true,
		Clock:              h.clock,
	})
	h.deps = workflow.Deps{
		Lock:     runlock.New(h.lockPath),
		State:    h.state,
		Cache:    h.cache,
		Auth:     h.auth,
		Poller:   poller,
		Drafts:   h.drafts,
		Delivery: h.delivery,
		Notifier: h.notifier,
		Clock:    h.clock,
	}
	h.opts = workflow.Options{
		OwnerEmail:     ownerEmail,
		OwnerName:      "Olive Owner",
		InternalDomain: internalDomain,
		MaxAge:         3 * time.Hour,
		NewRunID:       func() string { return "run-test" },
	}
	return h
}

func (h *harness) run(t *testing.T) workflow.Summary {
	t.Helper()
	runner, err := workflow.NewRunner(h.deps, h.opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return summary
}

func (h *harness) ready(id string) {
	text := strings.Repeat("Agreed to a pilot next quarter. ", 7)
	h.source.panels[id] = []content.Panel{{Title: "Summary", Content: paragraph(text)}}
	h.source.transcripts[id] = []content.TranscriptSegment{
		{Text: "Thanks for joining.", Source: content.SourceMicrophone},
		{Text: "Happy to be here.", Source: content.SourceSystem},
	}
}

func paragraph(text string) content.Node {
	return content.Node{Type: "doc", Content: []content.Node{
		{Type: "paragraph", Content: []content.Node{{Type: "text", Text: text}}},
	}}
}

func snapshotOf(docs ...granola.Document) granola.Snapshot {
	snap := granola.Snapshot{Documents: map[string]granola.Document{}}
	for _, doc := range docs {
		snap.Documents[doc.ID] = doc
	}
	return snap
}

func meetingDoc(id string, age time.Duration, emails ...string) granola.Document {
	doc := granola.Document{ID: id, Title: "Meeting " + id, CreatedAt: baseNow.Add(-age)}
	for _, email := range emails {
		doc.Calendar.Attendees = append(doc.Calendar.Attendees, granola.CalendarAttendee{
			Email: email,
			Self:  email == ownerEmail,
		})
	}
	return doc
}

func readState(t *testing.T, h *harness) state.State {
	t.Helper()
	return h.state.Load()
}

func TestScenarioAExternalMeetingReadyImmediately(t *testing.T) {
	h := newHarness(t, meetingDoc("m-a", time.Hour, ownerEmail, "ext@partner.example"))
	h.ready("m-a")

	summary := h.run(t)

	if summary.Outcome != workflow.RunCompleted {
		t.Fatalf("unexpected run outcome %s", summary.Outcome)
	}
	if len(summary.Meetings) != 1 || summary.Meetings[0].Outcome != workflow.OutcomeSuccess {
		t.Fatalf("expected success, got %+v", summary.Meetings)
	}
	if summary.Counts.Success != 1 || summary.Counts.Eligible != 1 {
		t.Fatalf("unexpected counts %+v", summary.Counts)
	}
	st := readState(t, h)
	if len(st.ProcessedIDs) != 1 || st.ProcessedIDs[0] != "m-a" {
		t.Fatalf("expected processed set to gain id, got %v", st.ProcessedIDs)
	}
	if len(h.delivery.sent) != 1 {
		t.Fatalf("expected one draft, got %d", len(h.delivery.sent))
	}
	sent := h.delivery.sent[0]
	if strings.Join(sent.to, ",") != "ext@partner.example" || len(sent.cc) != 0 {
		t.Fatalf("unexpected recipients to=%v cc=%v", sent.to, sent.cc)
	}
	req := h.drafts.requests[0]
	if req.SenderName != "Olive" {
		t.Fatalf("expected owner first name fallback, got %q", req.SenderName)
	}
	if !strings.Contains(req.Payload.Transcript, "Me: Thanks for joining.") {
		t.Fatalf("expected attributed transcript, got %q", req.Payload.Transcript)
	}
	if h.notifier.count(notifications.EventDraftReady) != 1 || h.notifier.count(notifications.EventRunFailures) != 0 {
		t.Fatalf("unexpected notifications %+v", h.notifier.events)
	}
	if len(h.clock.sleeps) != 0 {
		t.Fatalf("expected no poll sleeps, got %v", h.clock.sleeps)
	}
}

func TestScenarioBContentNeverReady(t *testing.T) {
	h := newHarness(t, meetingDoc("m-b", time.Hour, ownerEmail, "ext@partner.example"))
	h.source.panels["m-b"] = []content.Panel{{Title: "Summary", Content: paragraph("still writing")}}

	summary := h.run(t)

	if len(summary.Meetings) != 1 || summary.Meetings[0].Outcome != workflow.OutcomeDeferred {
		t.Fatalf("expected deferred, got %+v", summary.Meetings)
	}
	st := readState(t, h)
	if len(st.DeferredIDs) != 1 || st.DeferredIDs[0] != "m-b" {
		t.Fatalf("expected deferred set to gain id, got %v", st.DeferredIDs)
	}
	if len(st.ProcessedIDs) != 0 {
		t.Fatalf("expected processed set unchanged, got %v", st.ProcessedIDs)
	}
	if got := h.source.panelCalls["m-b"]; got != 11 {
		t.Fatalf("expected 10 looped attempts plus one final, got %d", got)
	}
	if len(h.drafts.requests) != 0 || h.delivery.calls != 0 {
		t.Fatal("expected no draft work for deferred meeting")
	}
	if h.notifier.count(notifications.EventMeetingDeferred) != 1 {
		t.Fatalf("expected deferral notification, got %+v", h.notifier.events)
	}
	if summary.Counts.Failed != 0 || h.notifier.count(notifications.EventRunFailures) != 0 {
		t.Fatal("deferral must not count as failure")
	}
}

func TestScenarioCInternalMeetingSkipped(t *testing.T) {
	h := newHarness(t, meetingDoc("m-c", time.Hour, ownerEmail, "colleague@internal.example"))
	h.ready("m-c")

	summary := h.run(t)

	if len(summary.Meetings) != 1 || summary.Meetings[0].Outcome != workflow.OutcomeSkipped {
		t.Fatalf("expected skipped, got %+v", summary.Meetings)
	}
	if h.source.totalCalls() != 0 || len(h.drafts.requests) != 0 || h.delivery.calls != 0 {
		t.Fatal("expected no content, draft, or delivery calls for internal meeting")
	}
	st := readState(t, h)
	if len(st.ProcessedIDs) != 1 || st.ProcessedIDs[0] != "m-c" {
		t.Fatalf("expected internal meeting marked processed, got %v", st.ProcessedIDs)
	}
}

func TestScenarioDLockHeldMeansNoOp(t *testing.T) {
	h := newHarness(t, meetingDoc("m-d", time.Hour, ownerEmail, "ext@partner.example"))
	h.ready("m-d")

	holder := runlock.New(h.lockPath)
	ok, err := holder.TryAcquire()
	if err != nil || !ok {
		t.Fatalf("expected to hold lock, got %v %v", ok, err)
	}
	defer holder.Release()

	summary := h.run(t)

	if summary.Outcome != workflow.RunLockHeld {
		t.Fatalf("expected lock held outcome, got %s", summary.Outcome)
	}
	if h.cache.reads != 0 || h.auth.calls != 0 || h.source.totalCalls() != 0 {
		t.Fatal("expected no work while lock is held")
	}
	if _, err := os.Stat(h.state.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no state file, stat err=%v", err)
	}
	if len(h.notifier.events) != 0 {
		t.Fatalf("expected no notifications, got %+v", h.notifier.events)
	}
}

type brokenLock struct{ err error }

func (b brokenLock) TryAcquire() (bool, error) { return false, b.err }

func (b brokenLock) Release() error { return nil }

func TestLockErrorIsReportedSeparatelyFromHeldLock(t *testing.T) {
	h := newHarness(t, meetingDoc("m", time.Hour, ownerEmail, "ext@partner.example"))
	h.deps.Lock = brokenLock{err: errors.New("permission denied")}

	summary := h.run(t)

	if summary.Outcome != workflow.RunAbortedLock {
		t.Fatalf("expected lock abort outcome, got %s", summary.Outcome)
	}
	if h.cache.reads != 0 || h.auth.calls != 0 {
		t.Fatal("expected no work without the lock")
	}
	if _, err := os.Stat(h.state.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no state file, stat err=%v", err)
	}
}

func TestCacheUnreadableAbortsWithoutMutation(t *testing.T) {
	h := newHarness(t)
	h.cache.err = granola.ErrNoCache

	summary := h.run(t)

	if summary.Outcome != workflow.RunAbortedCache {
		t.Fatalf("expected cache abort, got %s", summary.Outcome)
	}
	if h.auth.calls != 0 {
		t.Fatal("expected auth not to be consulted")
	}
	if _, err := os.Stat(h.state.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no state file, stat err=%v", err)
	}
}

func TestAuthUnavailableAbortsAndNotifies(t *testing.T) {
	h := newHarness(t, meetingDoc("m", time.Hour, ownerEmail, "ext@partner.example"))
	h.auth.err = errors.New("refresh rejected")

	summary := h.run(t)

	if summary.Outcome != workflow.RunAbortedAuth {
		t.Fatalf("expected auth abort, got %s", summary.Outcome)
	}
	if h.source.totalCalls() != 0 {
		t.Fatal("expected no content calls")
	}
	if h.notifier.count(notifications.EventAuthExpired) != 1 {
		t.Fatalf("expected auth notification, got %+v", h.notifier.events)
	}
	if _, err := os.Stat(h.state.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected no state file, stat err=%v", err)
	}
}

func TestFailuresProduceSingleAggregateNotification(t *testing.T) {
	h := newHarness(t,
		meetingDoc("m1", time.Hour, ownerEmail, "a@partner.example"),
		meetingDoc("m2", 2*time.Hour, ownerEmail, "b@partner.example"),
	)
	h.ready("m1")
	h.ready("m2")
	h.drafts.err = errors.New("model returned garbage")

	summary := h.run(t)

	if summary.Counts.Failed != 2 {
		t.Fatalf("expected two failures, got %+v", summary.Counts)
	}
	if h.notifier.count(notifications.EventRunFailures) != 1 {
		t.Fatalf("expected one aggregate notification, got %+v", h.notifier.events)
	}
	last := h.notifier.events[len(h.notifier.events)-1]
	if last.event != notifications.EventRunFailures || last.payload["failed"] != 2 {
		t.Fatalf("unexpected aggregate payload %+v", last)
	}
	st := readState(t, h)
	if len(st.ProcessedIDs) != 0 || len(st.DeferredIDs) != 0 {
		t.Fatalf("failed meetings must stay unprocessed and not deferred, got %+v", st)
	}
}

func TestDeliveryFailureIsCountedAndBatchContinues(t *testing.T) {
	h := newHarness(t,
		meetingDoc("m1", time.Hour, ownerEmail, "a@partner.example"),
		meetingDoc("m2", 2*time.Hour, ownerEmail, "colleague@internal.example"),
	)
	h.ready("m1")
	h.delivery.err = errors.New("gmail 500")

	summary := h.run(t)

	if summary.Counts.Failed != 1 || summary.Counts.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", summary.Counts)
	}
	if summary.Meetings[0].ID != "m1" || summary.Meetings[1].ID != "m2" {
		t.Fatalf("expected newest first, got %+v", summary.Meetings)
	}
}

func TestEligibleSetCombinesRecentAndDeferred(t *testing.T) {
	recent := meetingDoc("recent", 30*time.Minute, ownerEmail, "a@partner.example")
	old := meetingDoc("old-deferred", 10*time.Hour, ownerEmail, "b@partner.example")
	stale := meetingDoc("stale", 5*time.Hour, ownerEmail, "c@partner.example")
	future := meetingDoc("future", -time.Hour, ownerEmail, "d@partner.example")
	deleted := meetingDoc("deleted", time.Hour, ownerEmail, "e@partner.example")
	deleted.DeletedAt = baseNow
	done := meetingDoc("done", time.Hour, ownerEmail, "f@partner.example")

	h := newHarness(t, recent, old, stale, future, deleted, done)
	for _, id := range []string{"recent", "old-deferred", "stale", "future", "deleted", "done"} {
		h.ready(id)
	}
	if err := h.state.Defer("old-deferred"); err != nil {
		t.Fatalf("Defer: %v", err)
	}
	if err := h.state.Defer("recent"); err != nil {
		t.Fatalf("Defer: %v", err)
	}
	if err := h.state.Defer("gone-from-cache"); err != nil {
		t.Fatalf("Defer: %v", err)
	}
	if err := h.state.MarkProcessed("done"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	summary := h.run(t)

	var ids []string
	for _, m := range summary.Meetings {
		ids = append(ids, m.ID)
	}
	if strings.Join(ids, ",") != "recent,old-deferred" {
		t.Fatalf("unexpected eligible order %v", ids)
	}
	st := readState(t, h)
	if strings.Join(st.DeferredIDs, ",") != "gone-from-cache" {
		t.Fatalf("expected processed meetings removed from deferred, got %v", st.DeferredIDs)
	}
}

func TestSettleDelayAndSenderName(t *testing.T) {
	h := newHarness(t, meetingDoc("m", time.Hour, ownerEmail, "ext@partner.example", "peer@internal.example"))
	h.ready("m")
	h.opts.SettleDelay = 10 * time.Second
	h.deps.Sender = senderFunc(func(context.Context) (string, error) { return "Sam", nil })
	h.deps.Correspondence = correspondenceFunc(func(_ context.Context, emails []string) ([]string, error) {
		return []string{"Intro: " + strings.Join(emails, ",")}, nil
	})

	h.run(t)

	if len(h.clock.sleeps) == 0 || h.clock.sleeps[0] != 10*time.Second {
		t.Fatalf("expected settle sleep first, got %v", h.clock.sleeps)
	}
	req := h.drafts.requests[0]
	if req.SenderName != "Sam" {
		t.Fatalf("expected mailbox sender name, got %q", req.SenderName)
	}
	if len(req.Correspondence) != 1 || req.Correspondence[0] != "Intro: ext@partner.example" {
		t.Fatalf("unexpected correspondence %v", req.Correspondence)
	}
	if strings.Join(h.delivery.sent[0].cc, ",") != "peer@internal.example" {
		t.Fatalf("unexpected cc %v", h.delivery.sent[0].cc)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	h := newHarness(t,
		meetingDoc("m1", time.Hour, ownerEmail, "a@partner.example"),
		meetingDoc("m2", 2*time.Hour, ownerEmail, "colleague@internal.example"),
	)
	h.ready("m1")
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	h.deps.History = store

	h.run(t)

	runs, err := store.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-test" || runs[0].Outcome != string(workflow.RunCompleted) {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Counts.Success != 1 || runs[0].Counts.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", runs[0].Counts)
	}
	outcomes, err := store.MeetingOutcomes(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("MeetingOutcomes: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected two outcomes, got %+v", outcomes)
	}
}

func TestRunCancelledDuringPoll(t *testing.T) {
	h := newHarness(t, meetingDoc("m", time.Hour, ownerEmail, "ext@partner.example"))
	runner, err := workflow.NewRunner(h.deps, h.opts)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if summary.Outcome != workflow.RunCancelled {
		t.Fatalf("expected cancelled outcome, got %s", summary.Outcome)
	}
	locked, err := runlock.Locked(h.lockPath)
	if err != nil || locked {
		t.Fatalf("expected lock released after cancellation, got %v %v", locked, err)
	}
	if len(readState(t, h).DeferredIDs) != 0 {
		t.Fatal("cancelled meeting must not be deferred")
	}
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	if _, err := workflow.NewRunner(workflow.Deps{}, workflow.Options{}); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

type senderFunc func(context.Context) (string, error)

func (f senderFunc) SenderName(ctx context.Context) (string, error) { return f(ctx) }

type correspondenceFunc func(context.Context, []string) ([]string, error)

func (f correspondenceFunc) RecentCorrespondence(ctx context.Context, emails []string) ([]string, error) {
	return f(ctx, emails)
}
