package memory

import (
	"context"
	"encoding/json"
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// ProgressSlots hands out one in-memory slot per user. Slots outlive the
// sessions that use them, so progress survives a leave/rejoin.
type ProgressSlots struct {
	mu    sync.Mutex
	slots map[string]*ProgressSlot
}

func NewProgressSlots() *ProgressSlots {
	return &ProgressSlots{slots: make(map[string]*ProgressSlot)}
}

// Slot returns the user's slot, creating it on first use. It matches app.SlotFactory.
func (p *ProgressSlots) Slot(userID string) app.ProgressSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[userID]
	if !ok {
		slot = NewProgressSlot()
		p.slots[userID] = slot
	}
	return slot
}

// ProgressSlot keeps the JSON encoding of one persisted session, so reads
// never alias what the session holds.
type ProgressSlot struct {
	mu   sync.RWMutex
	data []byte
}

func NewProgressSlot() *ProgressSlot {
	return &ProgressSlot{}
}

func (s *ProgressSlot) Save(_ context.Context, session domain.PersistedSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

func (s *ProgressSlot) Load(_ context.Context) (domain.PersistedSession, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	if data == nil {
		return domain.PersistedSession{}, domain.ErrNoProgress
	}
	var session domain.PersistedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.PersistedSession{}, err
	}
	return session, nil
}

func (s *ProgressSlot) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}

// SetRaw stores arbitrary bytes, letting tests simulate a corrupt slot.
func (s *ProgressSlot) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}
