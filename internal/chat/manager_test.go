package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-service/internal/mocks"
	"realtime-service/internal/models"
)

// captureBus records published events so tests can assert on fan-out,
// including events published asynchronously by expiring timers.
type captureBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	channelID string
	event     models.Event
}

func (b *captureBus) Publish(_ context.Context, channelID string, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{channelID: channelID, event: event})
}

func (b *captureBus) published() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedEvent, len(b.events))
	copy(out, b.events)
	return out
}

func (b *captureBus) countType(eventType string) int {
	n := 0
	for _, p := range b.published() {
		if p.event.Type == eventType {
			n++
		}
	}
	return n
}

type captureSender struct {
	mu    sync.Mutex
	sends []directSend
}

type directSend struct {
	namespace string
	userID    string
	event     models.Event
}

func (s *captureSender) SendToUser(namespace, userID string, event models.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, directSend{namespace: namespace, userID: userID, event: event})
	return 1
}

func (s *captureSender) sent() []directSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]directSend, len(s.sends))
	copy(out, s.sends)
	return out
}

func expectSession(roomRepo *mocks.RoomRepositoryMock, msgRepo *mocks.MessageRepositoryMock, roomID string, kind models.RoomKind, participants []string) {
	roomRepo.On("GetRoom", mock.Anything, roomID).Return(models.Room{ID: roomID, Kind: kind}, nil).Once()
	roomRepo.On("Participants", mock.Anything, roomID).Return(participants, nil).Once()
	msgRepo.On("GetRoomMessages", mock.Anything, roomID, mock.Anything).Return([]models.Message(nil), nil).Once()
}

func TestSendMessageNotParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	sender := &captureSender{}
	mgr := NewManager(roomRepo, msgRepo, bus, sender, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomGroup, []string{"alice", "bob"})

	_, err := mgr.SendMessage(context.Background(), "r1", "mallory", "t1", "hi", models.MessageText)
	require.ErrorIs(t, err, ErrNotParticipant)

	assert.Empty(t, bus.published())
	assert.Empty(t, sender.sent())
	msgRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageAcksSenderWithDurableID(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	sender := &captureSender{}
	mgr := NewManager(roomRepo, msgRepo, bus, sender, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomDirect, []string{"alice", "bob"})
	stored := models.Message{ID: "m-42", RoomID: "r1", SenderID: "alice", Content: "hello"}
	msgRepo.On("CreateMessage", mock.Anything, "r1", "alice", "hello", models.MessageText).Return(stored, nil).Once()

	msg, err := mgr.SendMessage(context.Background(), "r1", "alice", "tmp-7", "hello", models.MessageText)
	require.NoError(t, err)
	assert.Equal(t, "m-42", msg.ID)

	published := bus.published()
	require.Len(t, published, 1)
	assert.Equal(t, models.RoomChannel("r1"), published[0].channelID)
	assert.Equal(t, models.EvNewMessage, published[0].event.Type)

	sends := sender.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, models.NamespaceChat, sends[0].namespace)
	assert.Equal(t, "alice", sends[0].userID)
	ack, ok := sends[0].event.Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "tmp-7", ack["tempId"])
	assert.Equal(t, "m-42", ack["messageId"])

	msgRepo.AssertExpectations(t)
}

func TestSendMessagePersistFailurePublishesNothing(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	sender := &captureSender{}
	mgr := NewManager(roomRepo, msgRepo, bus, sender, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomDirect, []string{"alice", "bob"})
	msgRepo.On("CreateMessage", mock.Anything, "r1", "alice", "hello", models.MessageText).Return(models.Message{}, assert.AnError).Once()

	_, err := mgr.SendMessage(context.Background(), "r1", "alice", "tmp-7", "hello", models.MessageText)
	require.Error(t, err)

	assert.Empty(t, bus.published())
	assert.Empty(t, sender.sent())

	recent, err := mgr.Recent(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecentBufferBounded(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	mgr := NewManager(roomRepo, msgRepo, &captureBus{}, &captureSender{}, time.Minute, 3)

	expectSession(roomRepo, msgRepo, "r1", models.RoomGroup, []string{"alice"})
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		msgRepo.On("CreateMessage", mock.Anything, "r1", "alice", id, models.MessageText).Return(models.Message{ID: id, RoomID: "r1"}, nil).Once()
		_, err := mgr.SendMessage(context.Background(), "r1", "alice", "", id, models.MessageText)
		require.NoError(t, err)
	}

	recent, err := mgr.Recent(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "m3", recent[0].ID)
	assert.Equal(t, "m5", recent[2].ID)
}

func TestStartTypingResetsTimer(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomGroup, []string{"alice", "bob"})

	require.NoError(t, mgr.StartTyping(context.Background(), "r1", "alice"))
	require.NoError(t, mgr.StartTyping(context.Background(), "r1", "alice"))
	require.NoError(t, mgr.StartTyping(context.Background(), "r1", "alice"))

	assert.Equal(t, []string{"alice"}, mgr.TypingUsers("r1"))
	assert.Equal(t, 3, bus.countType(models.EvTypingStart))
	assert.Equal(t, 0, bus.countType(models.EvTypingStopped))
}

func TestTypingExpiryPublishesStop(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, 20*time.Millisecond, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomGroup, []string{"alice"})
	require.NoError(t, mgr.StartTyping(context.Background(), "r1", "alice"))

	require.Eventually(t, func() bool {
		return bus.countType(models.EvTypingStopped) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, mgr.TypingUsers("r1"))
}

func TestStopTypingCancelsExpiry(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, 30*time.Millisecond, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomGroup, []string{"alice"})
	require.NoError(t, mgr.StartTyping(context.Background(), "r1", "alice"))
	require.NoError(t, mgr.StopTyping(context.Background(), "r1", "alice"))

	assert.Empty(t, mgr.TypingUsers("r1"))
	// the explicit stop is the only typing-stopped, the timer never fires
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, bus.countType(models.EvTypingStopped))
}

func TestMarkReadDelegatesToStore(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	mgr := NewManager(new(mocks.RoomRepositoryMock), msgRepo, &captureBus{}, &captureSender{}, time.Minute, 10)

	msgRepo.On("MarkRead", mock.Anything, "m1", "alice").Return(nil).Twice()

	require.NoError(t, mgr.MarkRead(context.Background(), "m1", "alice"))
	require.NoError(t, mgr.MarkRead(context.Background(), "m1", "alice"))
	msgRepo.AssertExpectations(t)
}

func TestJoinDirectRoomRequiresMembership(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "r1", models.RoomDirect, []string{"alice", "bob"})

	err := mgr.JoinRoom(context.Background(), "r1", "mallory")
	require.ErrorIs(t, err, ErrNotParticipant)
	assert.Empty(t, bus.published())
	roomRepo.AssertNotCalled(t, "AddParticipant", mock.Anything, mock.Anything, mock.Anything)
}

func TestJoinGroupRoomAddsParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "g1", models.RoomGroup, []string{"alice"})
	roomRepo.On("AddParticipant", mock.Anything, "g1", "carol").Return(nil).Once()

	require.NoError(t, mgr.JoinRoom(context.Background(), "g1", "carol"))

	member, err := mgr.IsParticipant(context.Background(), "g1", "carol")
	require.NoError(t, err)
	assert.True(t, member)
	assert.Equal(t, 1, bus.countType(models.EvUserJoined))
	roomRepo.AssertExpectations(t)
}

func TestLeaveGroupRoomShrinksRoster(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	bus := &captureBus{}
	mgr := NewManager(roomRepo, msgRepo, bus, &captureSender{}, time.Minute, 10)

	expectSession(roomRepo, msgRepo, "g1", models.RoomGroup, []string{"alice", "bob"})
	roomRepo.On("RemoveParticipant", mock.Anything, "g1", "bob").Return(nil).Once()

	require.NoError(t, mgr.LeaveRoom(context.Background(), "g1", "bob"))

	member, err := mgr.IsParticipant(context.Background(), "g1", "bob")
	require.NoError(t, err)
	assert.False(t, member)
	assert.Equal(t, 1, bus.countType(models.EvUserLeft))
	roomRepo.AssertExpectations(t)
}

func TestCreateDirectRoomNotifiesBothUsers(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	sender := &captureSender{}
	mgr := NewManager(roomRepo, new(mocks.MessageRepositoryMock), &captureBus{}, sender, time.Minute, 10)

	roomRepo.On("CreateOrGetDirectRoom", mock.Anything, "alice", "bob").Return(models.Room{ID: "d1", Kind: models.RoomDirect}, nil).Once()

	room, err := mgr.CreateDirectRoom(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, "d1", room.ID)

	sends := sender.sent()
	require.Len(t, sends, 2)
	assert.Equal(t, models.EvRoomCreated, sends[0].event.Type)
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string{sends[0].userID, sends[1].userID})
}
