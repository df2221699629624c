package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"realtime-service/internal/models"
	"realtime-service/internal/repositories"
)

var (
	ErrNotParticipant = errors.New("not a room participant")
	ErrDirectRoom     = errors.New("direct room participants are fixed")
)

// Publisher fans an event out to all subscribers of a channel.
type Publisher interface {
	Publish(ctx context.Context, channelID string, event models.Event)
}

// DirectSender delivers an event to every live connection of one user in a
// namespace and reports how many received it.
type DirectSender interface {
	SendToUser(namespace, userID string, event models.Event) int
}

// Manager owns per-room conversational state: the participant roster shadow,
// typing-indicator timers and the bounded recent-message buffer. All
// mutations of one room are serialized by that room's session lock; rooms
// never block each other.
type Manager struct {
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	bus      Publisher
	sender   DirectSender

	typingTTL   time.Duration
	recentLimit int

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is the in-memory shadow of one room, rebuilt on demand from the
// durable store and dropped on explicit room deletion.
type session struct {
	mu           sync.Mutex
	room         models.Room
	participants map[string]struct{}
	recent       []models.Message
	typing       map[string]*time.Timer
	typingGen    map[string]uint64
}

// NewManager constructs a Manager.
func NewManager(rooms repositories.RoomRepository, messages repositories.MessageRepository, bus Publisher, sender DirectSender, typingTTL time.Duration, recentLimit int) *Manager {
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	if recentLimit <= 0 {
		recentLimit = 50
	}
	return &Manager{
		rooms:       rooms,
		messages:    messages,
		bus:         bus,
		sender:      sender,
		typingTTL:   typingTTL,
		recentLimit: recentLimit,
		sessions:    make(map[string]*session),
	}
}

// session returns the room's in-memory shadow, loading roster and recent
// messages from the durable store on first touch.
func (m *Manager) session(ctx context.Context, roomID string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[roomID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	users, err := m.rooms.Participants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	recent, err := m.messages.GetRoomMessages(ctx, roomID, m.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[roomID]; ok {
		return existing, nil
	}
	s = &session{
		room:         room,
		participants: make(map[string]struct{}, len(users)),
		recent:       recent,
		typing:       make(map[string]*time.Timer),
		typingGen:    make(map[string]uint64),
	}
	for _, u := range users {
		s.participants[u] = struct{}{}
	}
	m.sessions[roomID] = s
	return s, nil
}

// DropSession discards the in-memory shadow of a room, e.g. after the room
// was deleted from the durable store. Outstanding typing timers are stopped.
func (m *Manager) DropSession(roomID string) {
	m.mu.Lock()
	s, ok := m.sessions[roomID]
	delete(m.sessions, roomID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	for user, t := range s.typing {
		t.Stop()
		delete(s.typing, user)
	}
	s.mu.Unlock()
}

// IsParticipant reports whether the user belongs to the room.
func (m *Manager) IsParticipant(ctx context.Context, roomID, userID string) (bool, error) {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	_, ok := s.participants[userID]
	s.mu.Unlock()
	return ok, nil
}

// CreateDirectRoom matches two users into a direct room, creating it on
// first contact, and notifies both over the chat namespace.
func (m *Manager) CreateDirectRoom(ctx context.Context, userID, targetID string) (models.Room, error) {
	room, err := m.rooms.CreateOrGetDirectRoom(ctx, userID, targetID)
	if err != nil {
		return models.Room{}, err
	}
	ev := models.Event{Type: models.EvRoomCreated, Data: room}
	m.sender.SendToUser(models.NamespaceChat, userID, ev)
	m.sender.SendToUser(models.NamespaceChat, targetID, ev)
	return room, nil
}

// CreateGroupRoom forms a named group room and notifies every participant.
func (m *Manager) CreateGroupRoom(ctx context.Context, ownerID, name string, participants []string) (models.Room, error) {
	room, err := m.rooms.CreateGroupRoom(ctx, ownerID, name, participants)
	if err != nil {
		return models.Room{}, err
	}
	ev := models.Event{Type: models.EvRoomCreated, Data: room}
	m.sender.SendToUser(models.NamespaceChat, ownerID, ev)
	for _, uid := range participants {
		if uid != ownerID {
			m.sender.SendToUser(models.NamespaceChat, uid, ev)
		}
	}
	return room, nil
}

// SendMessage persists and fans out one message. Other participants see it
// only after the durable store accepted it; a persistence failure surfaces
// to the sender and nothing is published. The sender additionally gets a
// message-sent acknowledgment mapping its temporary id to the durable one.
func (m *Manager) SendMessage(ctx context.Context, roomID, senderID, tempID, content string, kind models.MessageKind) (models.Message, error) {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return models.Message{}, err
	}

	s.mu.Lock()
	_, member := s.participants[senderID]
	s.mu.Unlock()
	if !member {
		return models.Message{}, ErrNotParticipant
	}
	if kind == "" {
		kind = models.MessageText
	}

	// Persist before any publish; the room lock is not held across I/O.
	msg, err := m.messages.CreateMessage(ctx, roomID, senderID, content, kind)
	if err != nil {
		return models.Message{}, fmt.Errorf("persist message: %w", err)
	}

	s.mu.Lock()
	s.recent = append(s.recent, msg)
	if len(s.recent) > m.recentLimit {
		s.recent = s.recent[len(s.recent)-m.recentLimit:]
	}
	s.mu.Unlock()

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{Type: models.EvNewMessage, Data: msg})
	m.sender.SendToUser(models.NamespaceChat, senderID, models.Event{
		Type: models.EvMessageSent,
		Data: map[string]string{"tempId": tempID, "messageId": msg.ID, "roomId": roomID},
	})
	return msg, nil
}

// Recent returns a copy of the room's bounded recent-message buffer.
func (m *Manager) Recent(ctx context.Context, roomID string) ([]models.Message, error) {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.recent))
	copy(out, s.recent)
	return out, nil
}

// MarkRead adds the reader to the message's read-by set. Idempotent,
// fire-and-forget: no event is published.
func (m *Manager) MarkRead(ctx context.Context, messageID, readerID string) error {
	return m.messages.MarkRead(ctx, messageID, readerID)
}

// EditMessage replaces the sender's own message content and announces the
// edit to the room.
func (m *Manager) EditMessage(ctx context.Context, roomID, messageID, editorID, content string) (models.Message, error) {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return models.Message{}, err
	}
	s.mu.Lock()
	_, member := s.participants[editorID]
	s.mu.Unlock()
	if !member {
		return models.Message{}, ErrNotParticipant
	}

	msg, err := m.messages.EditMessage(ctx, messageID, editorID, content)
	if err != nil {
		return models.Message{}, err
	}

	s.mu.Lock()
	for i := range s.recent {
		if s.recent[i].ID == msg.ID {
			s.recent[i] = msg
			break
		}
	}
	s.mu.Unlock()

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{Type: models.EvMessageEdited, Data: msg})
	return msg, nil
}

// DeleteMessage removes the sender's own message for everyone and announces
// the deletion to the room.
func (m *Manager) DeleteMessage(ctx context.Context, roomID, messageID, userID string) error {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, member := s.participants[userID]
	s.mu.Unlock()
	if !member {
		return ErrNotParticipant
	}

	if err := m.messages.DeleteMessageForAll(ctx, messageID, userID); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.recent {
		if s.recent[i].ID == messageID {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{
		Type: models.EvMessageDeleted,
		Data: map[string]string{"messageId": messageID, "roomId": roomID},
	})
	return nil
}

// JoinRoom admits a user to a room. Direct rooms never change their roster;
// joining one merely requires existing membership. Group rooms grow through
// this explicit add only.
func (m *Manager) JoinRoom(ctx context.Context, roomID, userID string) error {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, member := s.participants[userID]
	kind := s.room.Kind
	s.mu.Unlock()

	if !member {
		if kind == models.RoomDirect {
			return ErrNotParticipant
		}
		if err := m.rooms.AddParticipant(ctx, roomID, userID); err != nil {
			return fmt.Errorf("add participant: %w", err)
		}
		s.mu.Lock()
		s.participants[userID] = struct{}{}
		s.mu.Unlock()
	}

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{
		Type: models.EvUserJoined,
		Data: map[string]string{"roomId": roomID, "userId": userID},
	})
	return nil
}

// LeaveRoom removes a user from a group room's roster. For direct rooms the
// roster is immutable; leaving only ends the subscription, which the
// gateway handles.
func (m *Manager) LeaveRoom(ctx context.Context, roomID, userID string) error {
	s, err := m.session(ctx, roomID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, member := s.participants[userID]
	kind := s.room.Kind
	s.mu.Unlock()
	if !member {
		return ErrNotParticipant
	}

	if kind == models.RoomGroup {
		if err := m.rooms.RemoveParticipant(ctx, roomID, userID); err != nil {
			return fmt.Errorf("remove participant: %w", err)
		}
		s.mu.Lock()
		delete(s.participants, userID)
		if t, ok := s.typing[userID]; ok {
			t.Stop()
			delete(s.typing, userID)
			s.typingGen[userID]++
		}
		s.mu.Unlock()
	}

	m.bus.Publish(ctx, models.RoomChannel(roomID), models.Event{
		Type: models.EvUserLeft,
		Data: map[string]string{"roomId": roomID, "userId": userID},
	})
	return nil
}
