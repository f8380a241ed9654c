package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
)

const (
	DefaultTimeLimit    = 90 // seconds
	DefaultAdvanceDelay = 500 * time.Millisecond
	DefaultSaveDelay    = 300 * time.Millisecond
)

// SessionConfig tunes a quiz session.
type SessionConfig struct {
	TimeLimit    int // seconds
	AdvanceDelay time.Duration
	SaveDelay    time.Duration
	// ManualTicks disables the background countdown; the caller drives Tick.
	ManualTicks bool
}

// Hooks let the presentation layer react to the countdown without owning it.
type Hooks struct {
	OnTimeUpdate  func(remaining int)
	OnTimeExpired func()
}

// QuestionLoader supplies the question set for a session.
type QuestionLoader interface {
	GetQuestions(ctx context.Context, fresh bool) QuestionSet
}

// ResultRecorder receives a report while the session is submitting. An error
// keeps the session active so the user can retry.
type ResultRecorder interface {
	RecordResult(ctx context.Context, owner string, report domain.ScoreReport) error
}

// SessionOption customizes a Session at construction.
type SessionOption func(*Session)

// WithClock swaps the wall clock, for deterministic tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func WithHooks(h Hooks) SessionOption {
	return func(s *Session) { s.hooks = h }
}

func WithRecorder(r ResultRecorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// Session is the quiz state machine for one user: loading, active, submitting, submitted.
// Every transition is applied under mu; I/O happens outside it.
type Session struct {
	id       string
	cfg      SessionConfig
	loader   QuestionLoader
	store    *ProgressStore
	recorder ResultRecorder
	hooks    Hooks
	now      func() time.Time
	logger   *log.Logger
	tasks    *scheduler
	saveMu   sync.Mutex

	mu              sync.Mutex
	phase           domain.Phase
	questions       []domain.Question
	source          domain.QuestionSource
	currentIndex    int
	answers         domain.AnswerMap
	remaining       int
	resumeRemaining int
	timerStart      time.Time
	report          *domain.ScoreReport
	lastErr         error
	expired         bool
	closed          bool
	timerGen        uint64
	stopTimer       context.CancelFunc
	subscribers     map[chan domain.Snapshot]struct{}
}

func NewSession(id string, loader QuestionLoader, store *ProgressStore, cfg SessionConfig, opts ...SessionOption) *Session {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultTimeLimit
	}
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = DefaultAdvanceDelay
	}
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = DefaultSaveDelay
	}
	s := &Session{
		id:          id,
		cfg:         cfg,
		loader:      loader,
		store:       store,
		now:         time.Now,
		logger:      log.Default(),
		tasks:       newScheduler(),
		phase:       domain.PhaseLoading,
		answers:     domain.AnswerMap{},
		remaining:   cfg.TimeLimit,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the owner of the session.
func (s *Session) ID() string {
	return s.id
}

// Initialize recovers saved progress when there is any, otherwise starts fresh,
// then loads questions and enters the active (or submitted) state.
func (s *Session) Initialize(ctx context.Context) error {
	return s.initialize(ctx, false)
}

func (s *Session) initialize(ctx context.Context, fresh bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.stopTimerLocked()
	s.phase = domain.PhaseLoading
	s.questions = nil
	s.currentIndex = 0
	s.answers = domain.AnswerMap{}
	s.remaining = s.cfg.TimeLimit
	s.report = nil
	s.lastErr = nil
	s.expired = false
	s.broadcastLocked()
	s.mu.Unlock()

	var (
		persisted domain.PersistedSession
		recovered bool
	)
	if !fresh {
		persisted, recovered = s.store.Load(ctx)
	}
	set := s.loader.GetQuestions(ctx, fresh)
	if recovered && !sameQuestions(persisted.Questions, set.Questions) {
		recovered = false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	now := s.now()
	s.questions = set.Questions
	s.source = set.Source
	s.phase = domain.PhaseActive
	if recovered {
		s.currentIndex = clampIndex(persisted.CurrentIndex, len(s.questions))
		s.answers = answersInRange(persisted.Answers, len(s.questions))
		if persisted.IsSubmitted {
			s.phase = domain.PhaseSubmitted
			s.remaining = persisted.TimeRemaining
			if persisted.Report != nil {
				report := cloneReport(*persisted.Report)
				s.report = &report
			} else {
				report := s.buildReportLocked(false)
				s.report = &report
			}
		} else {
			s.remaining = persisted.RemainingAt(now)
		}
	}
	s.timerStart = now
	s.resumeRemaining = s.remaining

	timeUp := false
	if s.phase == domain.PhaseActive {
		if s.remaining == 0 {
			timeUp = true
		} else {
			s.startTimerLocked()
		}
	}
	s.broadcastLocked()
	s.mu.Unlock()

	s.persistNow(ctx)
	if timeUp {
		s.timeUp()
	}
	return nil
}

// SelectAnswer records (or overwrites) the answer for a question. Answering the
// current question schedules a short-delay advance to the next one.
func (s *Session) SelectAnswer(index int, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() || index < 0 || index >= len(s.questions) {
		return domain.ErrInvalidTransition
	}
	s.answers[index] = answer
	s.lastErr = nil
	if index == s.currentIndex && index < len(s.questions)-1 {
		s.tasks.schedule(taskAdvance, s.cfg.AdvanceDelay, func() { s.advanceFrom(index) })
	}
	s.scheduleSaveLocked()
	s.broadcastLocked()
	return nil
}

func (s *Session) advanceFrom(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() || s.currentIndex != index || index+1 >= len(s.questions) {
		return
	}
	s.currentIndex = index + 1
	s.scheduleSaveLocked()
	s.broadcastLocked()
}

// Navigate moves to another question. Out-of-range targets are rejected.
func (s *Session) Navigate(target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.activeLocked() || target < 0 || target >= len(s.questions) {
		return domain.ErrInvalidTransition
	}
	s.tasks.cancel(taskAdvance)
	s.currentIndex = target
	s.scheduleSaveLocked()
	s.broadcastLocked()
	return nil
}

// Tick advances the countdown by one second. The tick that reaches zero
// submits the session.
func (s *Session) Tick() {
	s.mu.Lock()
	gen := s.timerGen
	s.mu.Unlock()
	s.tick(gen)
}

func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.timerGen || !s.activeLocked() || s.remaining == 0 {
		s.mu.Unlock()
		return
	}
	s.remaining--
	remaining := s.remaining
	s.broadcastLocked()
	s.mu.Unlock()

	if s.hooks.OnTimeUpdate != nil {
		s.hooks.OnTimeUpdate(remaining)
	}
	if remaining == 0 {
		s.timeUp()
	}
}

func (s *Session) timeUp() {
	s.mu.Lock()
	if s.expired || !s.activeLocked() {
		s.mu.Unlock()
		return
	}
	s.expired = true
	s.stopTimerLocked()
	s.mu.Unlock()

	if _, err := s.submit(context.Background(), true); err != nil {
		s.logger.Printf("automatic submission for %s failed: %v", s.id, err)
	}
	if s.hooks.OnTimeExpired != nil {
		s.hooks.OnTimeExpired()
	}
}

// Submit scores the session. Once submitted it returns the same report again.
func (s *Session) Submit(ctx context.Context) (domain.ScoreReport, error) {
	return s.submit(ctx, false)
}

func (s *Session) submit(ctx context.Context, timedOut bool) (domain.ScoreReport, error) {
	s.mu.Lock()
	if s.phase == domain.PhaseSubmitted && s.report != nil {
		report := cloneReport(*s.report)
		s.mu.Unlock()
		return report, nil
	}
	if !s.activeLocked() {
		s.mu.Unlock()
		return domain.ScoreReport{}, domain.ErrInvalidTransition
	}
	s.tasks.cancel(taskAdvance)
	report := s.buildReportLocked(timedOut || s.expired)
	s.phase = domain.PhaseSubmitting
	s.lastErr = nil
	s.broadcastLocked()
	s.mu.Unlock()

	var recordErr error
	if s.recorder != nil {
		recordErr = s.recorder.RecordResult(ctx, s.id, report)
	}

	s.mu.Lock()
	if recordErr != nil {
		s.phase = domain.PhaseActive
		s.lastErr = fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, recordErr)
		err := s.lastErr
		s.broadcastLocked()
		s.mu.Unlock()
		return domain.ScoreReport{}, err
	}
	s.phase = domain.PhaseSubmitted
	s.report = &report
	s.stopTimerLocked()
	s.timerStart = s.now()
	s.resumeRemaining = s.remaining
	s.broadcastLocked()
	s.mu.Unlock()

	s.tasks.cancel(taskSave)
	s.persistNow(ctx)
	return cloneReport(report), nil
}

// Reset wipes saved progress and starts over with a freshly fetched question set.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.stopTimerLocked()
	s.phase = domain.PhaseLoading
	s.broadcastLocked()
	s.mu.Unlock()

	s.tasks.cancel(taskAdvance)
	s.tasks.cancel(taskSave)
	s.saveMu.Lock()
	s.store.Clear(ctx)
	s.saveMu.Unlock()
	return s.initialize(ctx, true)
}

// Flush writes any pending debounced save right away.
func (s *Session) Flush() {
	s.tasks.flush(taskSave)
}

// Close tears the session down: the countdown stops, a pending advance is
// dropped, a pending save is written. Saved progress is kept.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.mu.Unlock()

	s.tasks.cancel(taskAdvance)
	s.tasks.flush(taskSave)
	s.tasks.stop()

	s.mu.Lock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// Discard closes the session and wipes its saved progress (logout).
func (s *Session) Discard(ctx context.Context) {
	s.Close()
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	s.store.Clear(ctx)
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of state snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) activeLocked() bool {
	return !s.closed && s.phase == domain.PhaseActive
}

func (s *Session) scheduleSaveLocked() {
	s.tasks.schedule(taskSave, s.cfg.SaveDelay, func() { s.persistNow(context.Background()) })
}

// persistNow writes the current state. Writes are serialized so a later
// snapshot is never overwritten by an earlier one.
func (s *Session) persistNow(ctx context.Context) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.phase == domain.PhaseLoading || len(s.questions) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := domain.PersistedSession{
		Questions:      s.questions,
		Source:         s.source,
		CurrentIndex:   s.currentIndex,
		Answers:        s.answers.Clone(),
		TimeRemaining:  s.resumeRemaining,
		TimerStartedAt: s.timerStart,
		SavedAt:        s.now(),
		IsSubmitted:    s.phase == domain.PhaseSubmitted,
	}
	if s.report != nil {
		report := cloneReport(*s.report)
		snapshot.Report = &report
	}
	s.mu.Unlock()

	s.store.Save(ctx, snapshot)
}

func (s *Session) startTimerLocked() {
	if s.cfg.ManualTicks {
		return
	}
	s.stopTimerLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTimer = cancel
	gen := s.timerGen

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(gen)
			}
		}
	}()
}

// stopTimerLocked cancels the countdown goroutine and invalidates ticks it may
// still deliver.
func (s *Session) stopTimerLocked() {
	s.timerGen++
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
}

func (s *Session) buildReportLocked(timedOut bool) domain.ScoreReport {
	summary := Score(s.questions, s.answers)
	taken := s.cfg.TimeLimit - s.remaining
	if taken < 0 {
		taken = 0
	}
	return domain.ScoreReport{
		TotalQuestions: summary.Total,
		CorrectAnswers: summary.Correct,
		Score:          summary.Correct,
		Percentage:     summary.Percentage,
		Band:           BandFor(summary.Percentage),
		Answers:        s.answers.Clone(),
		Breakdown:      Breakdown(s.questions, s.answers),
		TimeTaken:      taken,
		TimedOut:       timedOut,
		CompletedAt:    s.now(),
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Phase:         s.phase,
		Questions:     append([]domain.Question(nil), s.questions...),
		CurrentIndex:  s.currentIndex,
		Answers:       s.answers.Clone(),
		AnsweredCount: len(s.answers),
		Complete:      len(s.questions) > 0 && len(s.answers) == len(s.questions),
		IsSubmitted:   s.phase == domain.PhaseSubmitted,
		TimeRemaining: s.remaining,
		TimeLevel:     domain.TimeLevelFor(s.remaining),
		Loading:       s.phase == domain.PhaseLoading,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.report != nil {
		report := cloneReport(*s.report)
		snap.Report = &report
	}
	return snap
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: drop the oldest snapshot, the newest one wins.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func sameQuestions(a, b []domain.Question) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

func clampIndex(index, count int) int {
	if count == 0 || index < 0 {
		return 0
	}
	if index >= count {
		return count - 1
	}
	return index
}

func answersInRange(answers domain.AnswerMap, count int) domain.AnswerMap {
	out := make(domain.AnswerMap, len(answers))
	for k, v := range answers {
		if k >= 0 && k < count {
			out[k] = v
		}
	}
	return out
}

func cloneReport(r domain.ScoreReport) domain.ScoreReport {
	r.Answers = r.Answers.Clone()
	r.Breakdown = append([]domain.QuestionResult(nil), r.Breakdown...)
	return r
}
