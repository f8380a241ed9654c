package app

import (
	"context"
	"log"

	"quiz-session-service/internal/domain"
)

// SessionRepository keeps the running quiz sessions, one per user.
type SessionRepository interface {
	// GetOrCreate returns the user's session, building one with create when
	// absent. The bool reports whether a new session was created.
	GetOrCreate(userID string, create func() *Session) (*Session, bool)
	Get(userID string) (*Session, bool)
	Delete(userID string)
}

// SlotFactory returns the durable progress slot for a user.
type SlotFactory func(userID string) ProgressSlot

// ServiceConfig bundles the provider and session tuning.
type ServiceConfig struct {
	Provider ProviderConfig
	Session  SessionConfig
}

// QuizService contains the quiz use cases exposed to the transports.
type QuizService struct {
	sessions SessionRepository
	slots    SlotFactory
	fetcher  QuestionFetcher
	recorder ResultRecorder
	cfg      ServiceConfig
	logger   *log.Logger
}

// ServiceOption customizes a QuizService.
type ServiceOption func(*QuizService)

func WithResultRecorder(r ResultRecorder) ServiceOption {
	return func(s *QuizService) { s.recorder = r }
}

func WithServiceLogger(l *log.Logger) ServiceOption {
	return func(s *QuizService) { s.logger = l }
}

func NewQuizService(sessions SessionRepository, slots SlotFactory, fetcher QuestionFetcher, cfg ServiceConfig, opts ...ServiceOption) *QuizService {
	if cfg.Provider.TimeLimit <= 0 {
		cfg.Provider.TimeLimit = cfg.Session.TimeLimit
	}
	s := &QuizService{
		sessions: sessions,
		slots:    slots,
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start returns the user's running session, recovering or creating it when needed.
func (s *QuizService) Start(ctx context.Context, userID string) (*Session, error) {
	session, created := s.sessions.GetOrCreate(userID, func() *Session {
		return s.newSession(userID)
	})
	if !created {
		return session, nil
	}
	if err := session.Initialize(ctx); err != nil {
		s.sessions.Delete(userID)
		return nil, err
	}
	return session, nil
}

// Session looks up a running session.
func (s *QuizService) Session(userID string) (*Session, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Leave stops the user's running session but keeps saved progress.
func (s *QuizService) Leave(_ context.Context, userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	s.sessions.Delete(userID)
	session.Close()
}

// Logout stops the user's session and wipes saved progress.
func (s *QuizService) Logout(ctx context.Context, userID string) {
	if session, ok := s.sessions.Get(userID); ok {
		s.sessions.Delete(userID)
		session.Discard(ctx)
		return
	}
	NewProgressStore(s.slots(userID), s.logger).Clear(ctx)
}

func (s *QuizService) newSession(userID string) *Session {
	store := NewProgressStore(s.slots(userID), s.logger)
	provider := NewQuestionProvider(s.fetcher, store, s.cfg.Provider, s.logger)
	opts := []SessionOption{
		WithLogger(s.logger),
		WithHooks(Hooks{
			OnTimeExpired: func() {
				s.logger.Printf("quiz time expired for %s", userID)
			},
		}),
	}
	if s.recorder != nil {
		opts = append(opts, WithRecorder(s.recorder))
	}
	return NewSession(userID, provider, store, s.cfg.Session, opts...)
}
