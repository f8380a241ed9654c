package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"quiz-session-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultQuestionCount = 5
	DefaultMaxRetries    = 3
	DefaultBackoffUnit   = time.Second
	DefaultSeedTTL       = 24 * time.Hour
)

// QuestionQuery carries the request parameters for the remote source.
type QuestionQuery struct {
	Amount     int
	Category   string
	Difficulty string
	Type       string
}

// QuestionFetcher is the remote question source (Open Trivia DB in production).
// Retryable failures wrap domain.ErrProviderUnavailable; rate limiting wraps
// domain.ErrRateLimited.
type QuestionFetcher interface {
	FetchQuestions(ctx context.Context, query QuestionQuery) ([]domain.RawQuestion, error)
}

// ProviderConfig tunes the question provider.
type ProviderConfig struct {
	QuestionCount int
	Category      string
	Difficulty    string
	Type          string
	TimeLimit     int // seconds, written into fresh seeds
	MaxRetries    int
	BackoffUnit   time.Duration
	SeedTTL       time.Duration
}

// QuestionSet is what the provider hands to a session.
type QuestionSet struct {
	Questions []domain.Question
	Source    domain.QuestionSource
}

// QuestionProvider returns a playable question set: the remembered one when a
// session is still running, a fresh remote set otherwise, and fallback content
// when the remote source keeps failing.
type QuestionProvider struct {
	fetcher QuestionFetcher
	store   *ProgressStore
	cfg     ProviderConfig
	now     func() time.Time
	logger  *log.Logger
	sf      singleflight.Group

	mu       sync.Mutex
	lastGood *QuestionSet
}

func NewQuestionProvider(fetcher QuestionFetcher, store *ProgressStore, cfg ProviderConfig, logger *log.Logger) *QuestionProvider {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = DefaultBackoffUnit
	}
	if cfg.SeedTTL <= 0 {
		cfg.SeedTTL = DefaultSeedTTL
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultTimeLimit
	}
	if logger == nil {
		logger = log.Default()
	}
	return &QuestionProvider{
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// GetQuestions never fails: when every source is exhausted it returns the built-in set.
// With fresh set, the remembered session is ignored (retake).
func (p *QuestionProvider) GetQuestions(ctx context.Context, fresh bool) QuestionSet {
	key := "cached"
	if fresh {
		key = "fresh"
	}
	result, _, _ := p.sf.Do(key, func() (interface{}, error) {
		return p.load(ctx, fresh), nil
	})
	return result.(QuestionSet)
}

func (p *QuestionProvider) load(ctx context.Context, fresh bool) QuestionSet {
	persisted, hasPersisted := p.store.Load(ctx)
	if !fresh && hasPersisted && p.reusable(persisted) {
		set := QuestionSet{Questions: persisted.Questions, Source: sourceOf(persisted)}
		p.remember(set)
		return set
	}

	questions, err := p.fetchWithRetry(ctx)
	if err == nil && len(questions) > 0 {
		set := QuestionSet{Questions: questions, Source: domain.SourceRemote}
		p.remember(set)
		p.seed(ctx, set)
		return set
	}
	if err == nil {
		err = errors.New("provider returned no questions")
	}
	p.logger.Printf("question fetch failed, using fallback: %v", err)

	if hasPersisted && len(persisted.Questions) > 0 {
		return QuestionSet{Questions: persisted.Questions, Source: sourceOf(persisted)}
	}
	if set, ok := p.remembered(); ok {
		return set
	}
	set := QuestionSet{Questions: FallbackQuestions(), Source: domain.SourceFallback}
	p.seed(ctx, set)
	return set
}

// reusable reports whether a persisted set belongs to an unexpired session and
// has the expected shape.
func (p *QuestionProvider) reusable(persisted domain.PersistedSession) bool {
	if p.now().Sub(persisted.SavedAt) > p.cfg.SeedTTL {
		return false
	}
	count := len(persisted.Questions)
	if persisted.Source == domain.SourceFallback {
		return count == len(fallbackQuestions)
	}
	return count == p.cfg.QuestionCount
}

func (p *QuestionProvider) fetchWithRetry(ctx context.Context) ([]domain.Question, error) {
	if p.fetcher == nil {
		return nil, errors.New("question fetcher is not configured")
	}
	query := QuestionQuery{
		Amount:     p.cfg.QuestionCount,
		Category:   p.cfg.Category,
		Difficulty: p.cfg.Difficulty,
		Type:       p.cfg.Type,
	}

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := p.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		raw, err := p.fetcher.FetchQuestions(ctx, query)
		if err == nil {
			return NormalizeQuestions(raw), nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, err
		}
		if errors.Is(err, domain.ErrRateLimited) {
			p.logger.Printf("question provider rate limited (attempt %d/%d)", attempt+1, p.cfg.MaxRetries+1)
		}
	}
	return nil, lastErr
}

// backoff waits 2^attempt units, or until the context is done.
func (p *QuestionProvider) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.cfg.BackoffUnit * time.Duration(1<<attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *QuestionProvider) seed(ctx context.Context, set QuestionSet) {
	now := p.now()
	p.store.Save(ctx, domain.PersistedSession{
		Questions:      set.Questions,
		Source:         set.Source,
		Answers:        domain.AnswerMap{},
		TimeRemaining:  p.cfg.TimeLimit,
		TimerStartedAt: now,
		SavedAt:        now,
	})
}

func (p *QuestionProvider) remember(set QuestionSet) {
	p.mu.Lock()
	p.lastGood = &set
	p.mu.Unlock()
}

func (p *QuestionProvider) remembered() (QuestionSet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastGood == nil {
		return QuestionSet{}, false
	}
	return *p.lastGood, true
}

func sourceOf(persisted domain.PersistedSession) domain.QuestionSource {
	if persisted.Source == "" {
		return domain.SourceRemote
	}
	return persisted.Source
}

// NormalizeQuestions decodes HTML entities, assigns stable IDs and difficulty points.
func NormalizeQuestions(raw []domain.RawQuestion) []domain.Question {
	questions := make([]domain.Question, 0, len(raw))
	for _, item := range raw {
		incorrect := make([]string, 0, len(item.IncorrectAnswers))
		for _, answer := range item.IncorrectAnswers {
			incorrect = append(incorrect, html.UnescapeString(answer))
		}
		difficulty := domain.Difficulty(strings.ToLower(item.Difficulty))
		answerType := domain.AnswerType(strings.ToLower(item.Type))
		if answerType == "" {
			answerType = domain.AnswerMultiple
		}
		question := domain.Question{
			Text:             html.UnescapeString(item.Question),
			CorrectAnswer:    html.UnescapeString(item.CorrectAnswer),
			IncorrectAnswers: incorrect,
			Category:         html.UnescapeString(item.Category),
			Difficulty:       difficulty,
			Type:             answerType,
			Points:           difficulty.Points(),
		}
		question.ID = MakeQuestionID(question)
		questions = append(questions, question)
	}
	return questions
}

// MakeQuestionID hashes the question text and its answers.
func MakeQuestionID(q domain.Question) string {
	var b strings.Builder
	b.WriteString(q.Text)
	b.WriteString("|")
	b.WriteString(q.CorrectAnswer)
	for _, answer := range q.IncorrectAnswers {
		b.WriteString("|")
		b.WriteString(answer)
	}
	sum := sha1.Sum([]byte(b.String()))
	return "q_" + hex.EncodeToString(sum[:6])
}
