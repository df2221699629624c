package chat

import (
	"context"
	"time"

	"realtime-service/internal/models"
)

// StartTyping marks the user as typing in the room and publishes
// typing-start. A new signal resets the existing expiry timer rather than
// stacking a second one: exactly one timer per (room, user) pair. The
// generation counter keeps a stale timer that already fired from clearing a
// newer signal.
func (m *Manager) StartTyping(ctx context.Context, roomID, userID string) error {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, member := s.participants[userID]; !member {
		s.mu.Unlock()
		return ErrNotParticipant
	}
	if t, ok := s.typing[userID]; ok {
		t.Stop()
	}
	s.typingGen[userID]++
	gen := s.typingGen[userID]
	s.typing[userID] = time.AfterFunc(m.typingTTL, func() {
		m.typingExpired(roomID, userID, gen)
	})
	s.mu.Unlock()

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{
		Type: models.EvTypingStart,
		Data: map[string]string{"roomId": roomID, "userId": userID},
	})
	return nil
}

// StopTyping cancels the user's typing timer and publishes typing-stopped.
func (m *Manager) StopTyping(ctx context.Context, roomID, userID string) error {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if t, ok := s.typing[userID]; ok {
		t.Stop()
		delete(s.typing, userID)
		s.typingGen[userID]++
	}
	s.mu.Unlock()

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{
		Type: models.EvTypingStopped,
		Data: map[string]string{"roomId": roomID, "userId": userID},
	})
	return nil
}

// typingExpired fires when no new typing signal arrived within the timeout.
func (m *Manager) typingExpired(roomID, userID string, gen uint64) {
	m.mu.RLock()
	s, ok := m.sessions[roomID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	if s.typingGen[userID] != gen {
		// a newer signal or an explicit stop won the race
		s.mu.Unlock()
		return
	}
	delete(s.typing, userID)
	s.mu.Unlock()

	m.bus.Publish(context.Background(), models.RoomChannel(roomID), models.Event{
		Type: models.EvTypingStopped,
		Data: map[string]string{"roomId": roomID, "userId": userID},
	})
}

// TypingUsers returns the users currently typing in a room.
func (m *Manager) TypingUsers(roomID string) []string {
	m.mu.RLock()
	s, ok := m.sessions[roomID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.typing))
	for u := range s.typing {
		users = append(users, u)
	}
	return users
}
