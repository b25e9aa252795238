// Package service provides the reconciliation engine that ties validation,
// duplicate detection, streak aggregation, achievements, session isolation,
// and persistence together behind one API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/streakd/internal/adapters/persistence"
	"github.com/okian/streakd/internal/adapters/publish"
	"github.com/okian/streakd/internal/domain/achievement"
	"github.com/okian/streakd/internal/domain/dedupe"
	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/session"
	"github.com/okian/streakd/internal/domain/streak"
	"github.com/okian/streakd/internal/domain/types"
	"github.com/okian/streakd/internal/domain/validate"
	"github.com/okian/streakd/pkg/clock"
	"github.com/okian/streakd/pkg/logger"
	"github.com/okian/streakd/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize = 1024
	drainTimeout     = 10 * time.Second
)

// Service is the reconciliation engine. All mutation is serialized behind
// its mutex; the write queue and publisher are the only concurrent parts,
// and both receive values captured at schedule time.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	clk       clock.Clock
	store     persistence.Store
	writes    *persistence.WriteQueue
	publisher publish.Publisher
	session   *session.Manager
	index     dedupe.Index

	// State
	events       []model.CompletionEvent
	streaks      map[string]*model.StreakAggregate
	achievements *achievement.Engine

	// Configuration
	queueSize       int
	publishCoolDown time.Duration

	started bool

	log logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithClock sets the calendar collaborator. Defaults to the system clock.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithStore sets the durable-state store. Defaults to the in-memory store.
func WithStore(store persistence.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets the outbound summary sink. It is wrapped with the
// per-game debouncer at Start.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWriteQueueSize bounds the background save queue.
func WithWriteQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPublishCoolDown sets the per-game publish debounce window.
func WithPublishCoolDown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishCoolDown = d
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clk:       clock.NewSystem(nil),
		session:   session.NewManager(),
		streaks:   make(map[string]*model.StreakAggregate),
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads persisted state, recovers an interrupted guest session, seeds
// the trait table games, rebuilds derived structures, and starts the write
// queue. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.log == nil {
		s.log = logger.Get()
	}
	if s.store == nil {
		s.store = persistence.NewMemoryStore()
	}
	if s.publisher == nil {
		s.publisher = publish.NewLogPublisher(s.log)
	}

	s.log.Info(ctx, "starting reconciliation engine...")

	if err := s.recoverSession(ctx); err != nil {
		return fmt.Errorf("session recovery: %w", err)
	}
	if err := s.loadState(ctx); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	s.seedAggregates()
	s.repairAggregates(ctx)

	s.index = dedupe.NewInMemoryIndex(dedupe.WithClock(s.clk))
	s.index.Rebuild(ctx, s.events)

	// Stale streaks break on load, not lazily on the next submit.
	s.normalizeLocked(ctx)

	debounceOpts := []publish.DebounceOption{publish.WithDebounceClock(s.clk)}
	if s.publishCoolDown > 0 {
		debounceOpts = append(debounceOpts, publish.WithCoolDown(s.publishCoolDown))
	}
	s.publisher = publish.NewDebouncer(s.publisher, debounceOpts...)

	s.writes = persistence.NewWriteQueue(ctx, s.store,
		persistence.WithCapacity(s.queueSize),
		persistence.WithQueueLogger(s.log),
	)

	s.updateGauges()
	s.started = true
	s.log.Info(ctx, "reconciliation engine started",
		logger.Int("events", len(s.events)),
		logger.Int("games", len(s.streaks)),
	)
	return nil
}

// Stop drains the write queue and shuts the service down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info(ctx, "stopping reconciliation engine...")

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	err := s.writes.Close(drainCtx)

	s.started = false
	s.log.Info(ctx, "reconciliation engine stopped")
	return err
}

// Submit validates, deduplicates, and records one completion event. It
// returns false with a nil error for duplicates and false with a non-nil
// error for invalid events.
func (s *Service) Submit(ctx context.Context, e model.CompletionEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return false, ErrNotStarted
	}

	if err := validate.Event(e); err != nil {
		metrics.RecordEventInvalid()
		s.log.Warn(ctx, "rejecting invalid event",
			logger.String("game", e.GameID),
			logger.Error(err),
		)
		return false, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if e.ID == "" {
		e.ID = model.NewEventID()
	}

	if s.index.IsDuplicate(ctx, e) {
		metrics.RecordEventDuplicate()
		s.log.Debug(ctx, "duplicate event skipped",
			logger.String("game", e.GameID),
			logger.String("id", e.ID),
		)
		return false, nil
	}

	s.events = append(s.events, e)
	s.index.Insert(ctx, e)

	agg := s.aggregateFor(e.GameID)
	before := agg.CurrentStreak
	*agg = streak.Apply(*agg, e, s.clk)
	switch {
	case agg.CurrentStreak > before:
		metrics.RecordStreakExtended()
	case before > 0 && agg.CurrentStreak == 0:
		metrics.RecordStreakBroken()
	}

	unlocks := s.achievements.ApplyOne(ctx, e, s.streaks)
	for range unlocks {
		metrics.RecordTierUnlocked()
	}

	metrics.RecordEventAccepted()
	s.updateGauges()

	if !s.session.InGuest() {
		s.scheduleSaves()
		s.publishAsync(*agg, e.GameName, unlocks)
	}
	return true, nil
}

// ImportEvents bulk-loads events, for example from a backup. Each event is
// validated and deduplicated individually; a single bad entry never aborts
// the batch. After the batch every derived structure is rebuilt from the
// log rather than patched.
func (s *Service) ImportEvents(ctx context.Context, batch []model.CompletionEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0, ErrNotStarted
	}

	accepted := 0
	for _, e := range batch {
		if err := validate.Event(e); err != nil {
			metrics.RecordEventInvalid()
			s.log.Warn(ctx, "skipping invalid import entry", logger.Error(err))
			continue
		}
		if e.ID == "" {
			e.ID = model.NewEventID()
		}
		if s.index.IsDuplicate(ctx, e) {
			metrics.RecordEventDuplicate()
			continue
		}
		s.events = append(s.events, e)
		s.index.Insert(ctx, e)
		metrics.RecordEventAccepted()
		accepted++
	}

	if accepted > 0 {
		s.rebuildLocked(ctx)
		if !s.session.InGuest() {
			s.scheduleSaves()
		}
	}

	s.log.Info(ctx, "import finished",
		logger.Int("batch", len(batch)),
		logger.Int("accepted", accepted),
	)
	return accepted, nil
}

// RebuildAll discards every derived structure and recomputes it from the
// event log. Rebuild is authoritative; any suspicion of drift ends here.
func (s *Service) RebuildAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	s.rebuildLocked(ctx)
	if !s.session.InGuest() {
		s.scheduleSaves()
	}
	return nil
}

// DeleteEvent removes one event by id. The log is the only thing edited
// directly; aggregates, achievements, and the duplicate index are rebuilt
// from what remains.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	at := -1
	for i, e := range s.events {
		if e.ID == id {
			at = i
			break
		}
	}
	if at < 0 {
		return fmt.Errorf("event %q: %w", id, ErrEventNotFound)
	}

	s.events = append(s.events[:at], s.events[at+1:]...)
	s.rebuildLocked(ctx)
	if !s.session.InGuest() {
		s.scheduleSaves()
	}

	s.log.Info(ctx, "event deleted, aggregates rebuilt", logger.String("id", id))
	return nil
}

// Normalize breaks any streak with a missed day between its last play and
// the reference day. A zero reference means today. Intended for
// day-boundary ticks and foreground resumes.
func (s *Service) Normalize(ctx context.Context, reference clock.Day) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if reference.IsZero() {
		reference = s.clk.StartOfDay(s.clk.Now())
	}
	broken := s.normalizeAgainst(ctx, reference)
	if len(broken) > 0 && !s.session.InGuest() {
		s.scheduleSaves()
	}
	return broken
}

// EnterGuest snapshots the Host state, switches to an empty isolated
// baseline, and persists the mode flag so an interrupted session is
// detectable at the next startup. The flag is the only durable write a
// guest session ever causes.
func (s *Service) EnterGuest(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	if err := s.session.EnterGuest(s.snapshotLocked()); err != nil {
		return err
	}

	s.events = nil
	s.streaks = make(map[string]*model.StreakAggregate)
	s.achievements = achievement.NewEngine(
		achievement.WithClock(s.clk),
		achievement.WithLogger(s.log),
	)
	s.seedAggregates()
	s.index.Rebuild(ctx, nil)
	s.updateGauges()

	if err := s.store.Save(ctx, persistence.KeySessionMode, session.ModeGuest); err != nil {
		s.log.Error(ctx, "persisting guest flag failed", logger.Error(err))
	}

	metrics.RecordGuestSession()
	s.log.Info(ctx, "guest session started")
	return nil
}

// GuestExport is the serialized takeaway of a finished guest session.
type GuestExport struct {
	ID           string                      `json:"id"`
	TakenAt      time.Time                   `json:"taken_at"`
	Events       []model.CompletionEvent     `json:"events"`
	Streaks      []model.StreakAggregate     `json:"streaks"`
	Achievements []model.AchievementProgress `json:"achievements"`
}

// ExitGuest restores the Host snapshot verbatim and returns to Host mode.
// When export is true the guest session's state is serialized and returned
// so the caller can hand it to the departing guest. Guest data never
// touches Host state either way.
func (s *Service) ExitGuest(ctx context.Context, export bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}

	var blob []byte
	if export {
		guest := s.snapshotLocked()
		out := GuestExport{
			ID:           model.NewEventID(),
			TakenAt:      s.clk.Now(),
			Events:       guest.Events,
			Streaks:      guest.Streaks,
			Achievements: guest.Achievements,
		}
		var err error
		if blob, err = json.Marshal(out); err != nil {
			return nil, fmt.Errorf("serializing guest export: %w", err)
		}
	}

	snapshot, err := s.session.ExitGuest()
	if err != nil {
		return nil, err
	}
	s.restoreLocked(ctx, snapshot)

	if err := s.store.Remove(ctx, persistence.KeySessionMode); err != nil {
		s.log.Error(ctx, "clearing guest flag failed", logger.Error(err))
	}

	s.log.Info(ctx, "guest session ended", logger.Bool("exported", export))
	return blob, nil
}

// InGuest reports whether a guest session is active.
func (s *Service) InGuest() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.InGuest()
}

// CurrentStreak returns the aggregate for one game. The second return is
// false when the game has never been tracked.
func (s *Service) CurrentStreak(gameID string) (model.StreakAggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg, ok := s.streaks[gameID]
	if !ok {
		return model.StreakAggregate{}, false
	}
	return *agg, true
}

// Streaks returns every tracked aggregate, ordered by game id.
func (s *Service) Streaks() []model.StreakAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.StreakAggregate, 0, len(s.streaks))
	for _, agg := range s.streaks {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out
}

// AchievementProgress returns a deep copy of every category's progress.
func (s *Service) AchievementProgress() []model.AchievementProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.achievements.Snapshot()
}

// EventCount returns the current event-log length.
func (s *Service) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// recoverSession detects an interrupted guest session from the persisted
// mode flag. Recovery forces Host: the snapshot lived in memory only, and
// guest sessions never wrote durable state, so the stored collections are
// the Host's.
func (s *Service) recoverSession(ctx context.Context) error {
	var mode session.Mode
	found, err := s.store.Load(ctx, persistence.KeySessionMode, &mode)
	if err != nil {
		return err
	}
	if !found || mode != session.ModeGuest {
		return nil
	}

	s.session.ForceHost()
	if err := s.store.Remove(ctx, persistence.KeySessionMode); err != nil {
		return err
	}
	metrics.RecordGuestRecovery()
	s.log.Warn(ctx, "interrupted guest session detected, recovered to host")
	return nil
}

// loadState pulls the three persisted collections into memory.
func (s *Service) loadState(ctx context.Context) error {
	var events []model.CompletionEvent
	if _, err := s.store.Load(ctx, persistence.KeyEvents, &events); err != nil {
		return err
	}
	s.events = events

	var aggregates []model.StreakAggregate
	if _, err := s.store.Load(ctx, persistence.KeyStreaks, &aggregates); err != nil {
		return err
	}
	s.streaks = make(map[string]*model.StreakAggregate, len(aggregates))
	for _, agg := range aggregates {
		copied := agg
		s.streaks[agg.GameID] = &copied
	}

	var progress []model.AchievementProgress
	if _, err := s.store.Load(ctx, persistence.KeyAchievements, &progress); err != nil {
		return err
	}
	s.achievements = achievement.NewEngine(
		achievement.WithClock(s.clk),
		achievement.WithLogger(s.log),
	)
	s.achievements.Restore(ctx, progress)
	if len(s.events) > 0 {
		// Rebuild the fold accumulators the persisted counters came from.
		s.achievements.RecomputeAll(ctx, s.events, s.streaks)
	}
	return nil
}

// seedAggregates ensures every game in the trait table has an aggregate, so
// lookups for never-played games return the empty record instead of nothing.
func (s *Service) seedAggregates() {
	for _, gameID := range types.KnownGames() {
		if _, ok := s.streaks[gameID]; !ok {
			s.streaks[gameID] = &model.StreakAggregate{GameID: gameID}
		}
	}
}

// repairAggregates rebuilds any loaded aggregate that fails its invariant
// check, and any game present in the log without an aggregate. Consistency
// errors are repaired from the source of truth, never propagated.
func (s *Service) repairAggregates(ctx context.Context) {
	for gameID := range s.gamesInLog() {
		if _, ok := s.streaks[gameID]; !ok {
			s.streaks[gameID] = &model.StreakAggregate{GameID: gameID}
			rebuilt := streak.Rebuild(gameID, s.events, s.clk)
			*s.streaks[gameID] = rebuilt
			metrics.RecordRebuild()
		}
	}

	for gameID, agg := range s.streaks {
		err := agg.Check()
		if err == nil {
			continue
		}
		s.log.Warn(ctx, "aggregate failed invariant check, rebuilding",
			logger.String("game", gameID),
			logger.Error(err),
		)
		rebuilt := streak.Rebuild(gameID, s.events, s.clk)
		*agg = rebuilt
		metrics.RecordRebuild()
	}
}

// aggregateFor returns the aggregate for gameID, creating the empty record
// on first contact with an unknown game.
func (s *Service) aggregateFor(gameID string) *model.StreakAggregate {
	agg, ok := s.streaks[gameID]
	if !ok {
		agg = &model.StreakAggregate{GameID: gameID}
		s.streaks[gameID] = agg
	}
	return agg
}

// gamesInLog returns the set of game ids present in the event log.
func (s *Service) gamesInLog() map[string]struct{} {
	games := make(map[string]struct{})
	for _, e := range s.events {
		games[e.GameID] = struct{}{}
	}
	return games
}

// rebuildLocked recomputes every derived structure from the event log.
// Caller holds the write lock.
func (s *Service) rebuildLocked(ctx context.Context) {
	start := time.Now()

	games := s.gamesInLog()
	for _, gameID := range types.KnownGames() {
		games[gameID] = struct{}{}
	}
	s.streaks = make(map[string]*model.StreakAggregate, len(games))
	for gameID := range games {
		rebuilt := streak.Rebuild(gameID, s.events, s.clk)
		s.streaks[gameID] = &rebuilt
	}

	persisted := s.achievements.Snapshot()
	s.achievements = achievement.NewEngine(
		achievement.WithClock(s.clk),
		achievement.WithLogger(s.log),
	)
	s.achievements.Restore(ctx, persisted)
	unlocks := s.achievements.RecomputeAll(ctx, s.events, s.streaks)
	for range unlocks {
		metrics.RecordTierUnlocked()
	}

	s.index.Rebuild(ctx, s.events)
	s.normalizeLocked(ctx)
	s.updateGauges()

	metrics.RecordRebuild()
	metrics.RecordRebuildDuration(float64(time.Since(start).Milliseconds()))
}

// normalizeLocked breaks stale streaks against today. Caller holds the
// write lock.
func (s *Service) normalizeLocked(ctx context.Context) []string {
	return s.normalizeAgainst(ctx, s.clk.StartOfDay(s.clk.Now()))
}

func (s *Service) normalizeAgainst(ctx context.Context, reference clock.Day) []string {
	completed := streak.CompletedDays(s.events, s.clk)
	broken := streak.Normalize(s.streaks, completed, reference)
	for _, gameID := range broken {
		metrics.RecordStreakNormalized()
		s.log.Info(ctx, "streak broken by missed day", logger.String("game", gameID))
	}
	return broken
}

// snapshotLocked deep-copies the current state. Caller holds the write lock.
func (s *Service) snapshotLocked() model.GuestSnapshot {
	events := make([]model.CompletionEvent, len(s.events))
	copy(events, s.events)

	aggregates := make([]model.StreakAggregate, 0, len(s.streaks))
	for _, agg := range s.streaks {
		aggregates = append(aggregates, *agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].GameID < aggregates[j].GameID
	})

	return model.GuestSnapshot{
		Events:       events,
		Streaks:      aggregates,
		Achievements: s.achievements.Snapshot(),
	}
}

// restoreLocked installs a snapshot verbatim and rebuilds the derived
// structures from it. Caller holds the write lock.
func (s *Service) restoreLocked(ctx context.Context, snapshot model.GuestSnapshot) {
	s.events = snapshot.Events
	s.streaks = make(map[string]*model.StreakAggregate, len(snapshot.Streaks))
	for _, agg := range snapshot.Streaks {
		copied := agg
		s.streaks[agg.GameID] = &copied
	}
	s.seedAggregates()

	s.achievements = achievement.NewEngine(
		achievement.WithClock(s.clk),
		achievement.WithLogger(s.log),
	)
	s.achievements.Restore(ctx, snapshot.Achievements)
	if len(s.events) > 0 {
		s.achievements.RecomputeAll(ctx, s.events, s.streaks)
	}

	s.index.Rebuild(ctx, s.events)
	s.updateGauges()
}

// scheduleSaves enqueues one save per collection. The snapshots are built
// now, so a session transition after this call cannot change what gets
// written. Caller holds the write lock and must be in Host mode.
func (s *Service) scheduleSaves() {
	events := make([]model.CompletionEvent, len(s.events))
	copy(events, s.events)
	s.writes.Enqueue(persistence.KeyEvents, events)

	aggregates := make([]model.StreakAggregate, 0, len(s.streaks))
	for _, agg := range s.streaks {
		aggregates = append(aggregates, *agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].GameID < aggregates[j].GameID
	})
	s.writes.Enqueue(persistence.KeyStreaks, aggregates)

	s.writes.Enqueue(persistence.KeyAchievements, s.achievements.Snapshot())
}

// publishAsync hands the outbound summary to the publisher off the hot
// path. Caller holds the write lock; the summary is fully built before the
// goroutine starts.
func (s *Service) publishAsync(agg model.StreakAggregate, gameName string, unlocks []achievement.Unlock) {
	names := make([]string, 0, len(unlocks))
	for _, u := range unlocks {
		names = append(names, fmt.Sprintf("%s:%d", u.Category, u.Threshold))
	}
	summary := publish.Summary{
		GameID:        agg.GameID,
		GameName:      gameName,
		CurrentStreak: agg.CurrentStreak,
		BestStreak:    agg.BestStreak,
		Unlocks:       names,
		At:            s.clk.Now(),
	}
	pub := s.publisher
	go func() {
		_ = pub.Publish(context.Background(), summary)
	}()
}

// updateGauges refreshes the tracked-state gauges. Caller holds the lock.
func (s *Service) updateGauges() {
	metrics.UpdateTrackedGames(len(s.streaks))
	metrics.UpdateTrackedEvents(len(s.events))
}
