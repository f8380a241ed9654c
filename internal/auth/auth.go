package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quiz-session-service/internal/domain"
)

const DefaultSessionTTL = 24 * time.Hour

// Account is a user plus their bcrypt password hash.
type Account struct {
	domain.User
	PasswordHash string
}

// Manager checks credentials and tracks login sessions by opaque token.
type Manager struct {
	accounts map[string]Account
	ttl      time.Duration
	now      func() time.Time
	newToken func() string

	mu       sync.Mutex
	sessions map[string]domain.AuthSession
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock swaps the wall clock, for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(accounts []Account, ttl time.Duration, opts ...Option) (*Manager, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &Manager{
		accounts: make(map[string]Account, len(accounts)),
		ttl:      ttl,
		now:      time.Now,
		newToken: func() string { return uuid.New().String() },
		sessions: make(map[string]domain.AuthSession),
	}
	for _, acc := range accounts {
		if acc.Username == "" || acc.PasswordHash == "" {
			return nil, errors.New("account needs a username and password hash")
		}
		if _, dup := m.accounts[acc.Username]; dup {
			return nil, fmt.Errorf("duplicate account %q", acc.Username)
		}
		m.accounts[acc.Username] = acc
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login verifies the password and opens a new session.
func (m *Manager) Login(username, password string) (domain.AuthSession, error) {
	acc, ok := m.accounts[strings.TrimSpace(username)]
	if !ok || !CheckPassword(acc.PasswordHash, password) {
		return domain.AuthSession{}, domain.ErrInvalidCredentials
	}
	now := m.now()
	session := domain.AuthSession{
		User:      acc.User,
		Token:     m.newToken(),
		LoginAt:   now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[session.Token] = session
	m.mu.Unlock()
	return session, nil
}

// Validate returns the session behind token. Expired sessions are dropped.
func (m *Manager) Validate(token string) (domain.AuthSession, error) {
	if token == "" {
		return domain.AuthSession{}, domain.ErrUnauthenticated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return domain.AuthSession{}, domain.ErrUnauthenticated
	}
	if m.now().After(session.ExpiresAt) {
		delete(m.sessions, token)
		return domain.AuthSession{}, domain.ErrUnauthenticated
	}
	return session, nil
}

// Logout ends the session and returns it so the caller can wipe the user's data.
func (m *Manager) Logout(token string) (domain.AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return domain.AuthSession{}, domain.ErrUnauthenticated
	}
	delete(m.sessions, token)
	return session, nil
}

// UserKey is the namespace a user's quiz progress is stored under.
func UserKey(u domain.User) string {
	return u.Username
}

func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DemoAccounts returns the built-in accounts used when none are configured.
func DemoAccounts() ([]Account, error) {
	demo := []struct {
		user     domain.User
		password string
	}{
		{domain.User{ID: 1, Username: "admin", Name: "Admin User", Email: "admin@quiz.com"}, "password"},
		{domain.User{ID: 2, Username: "student", Name: "Student User", Email: "student@quiz.com"}, "student123"},
		{domain.User{ID: 3, Username: "demo", Name: "Demo User", Email: "demo@quiz.com"}, "demo"},
	}
	accounts := make([]Account, 0, len(demo))
	for _, d := range demo {
		hash, err := HashPassword(d.password)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, Account{User: d.user, PasswordHash: hash})
	}
	return accounts, nil
}
