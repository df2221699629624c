package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-service/internal/chat"
	"realtime-service/internal/mocks"
	"realtime-service/internal/models"
)

func setupRoomRouter(handler *RoomHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "alice")
		c.Next()
	})
	r.POST("/rooms/direct", handler.StartDirectRoom)
	r.POST("/rooms/group", handler.CreateGroupRoom)
	r.GET("/rooms/:room_id/messages", handler.GetRecentMessages)
	return r
}

func newRoomHandler(roomRepo *mocks.RoomRepositoryMock, msgRepo *mocks.MessageRepositoryMock, sender *mocks.DirectSenderMock) *RoomHandler {
	bus := new(mocks.PublisherMock)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Maybe()
	manager := chat.NewManager(roomRepo, msgRepo, bus, sender, time.Minute, 10)
	return NewRoomHandler(manager, roomRepo)
}

func TestStartDirectRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	sender := new(mocks.DirectSenderMock)
	handler := newRoomHandler(roomRepo, new(mocks.MessageRepositoryMock), sender)
	router := setupRoomRouter(handler)

	roomRepo.On("CreateOrGetDirectRoom", mock.Anything, "alice", "bob").Return(models.Room{ID: "d1", Kind: models.RoomDirect}, nil).Once()
	sender.On("SendToUser", models.NamespaceChat, mock.Anything, mock.Anything).Return(1).Twice()

	req := httptest.NewRequest(http.MethodPost, "/rooms/direct", bytes.NewBufferString(`{"target_user_id":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "d1", resp["room_id"])
	roomRepo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestStartDirectRoomWithSelf(t *testing.T) {
	handler := newRoomHandler(new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.DirectSenderMock))
	router := setupRoomRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/rooms/direct", bytes.NewBufferString(`{"target_user_id":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartDirectRoomRepoError(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newRoomHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.DirectSenderMock))
	router := setupRoomRouter(handler)

	roomRepo.On("CreateOrGetDirectRoom", mock.Anything, "alice", "bob").Return(models.Room{}, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodPost, "/rooms/direct", bytes.NewBufferString(`{"target_user_id":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateGroupRoomSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	sender := new(mocks.DirectSenderMock)
	handler := newRoomHandler(roomRepo, new(mocks.MessageRepositoryMock), sender)
	router := setupRoomRouter(handler)

	roomRepo.On("CreateGroupRoom", mock.Anything, "alice", "team", []string{"bob", "carol"}).Return(models.Room{ID: "g1", Kind: models.RoomGroup}, nil).Once()
	sender.On("SendToUser", models.NamespaceChat, mock.Anything, mock.Anything).Return(1)

	body := bytes.NewBufferString(`{"name":"team","participants":["bob","carol"]}`)
	req := httptest.NewRequest(http.MethodPost, "/rooms/group", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "g1", resp["room_id"])
	roomRepo.AssertExpectations(t)
}

func TestCreateGroupRoomMissingName(t *testing.T) {
	handler := newRoomHandler(new(mocks.RoomRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.DirectSenderMock))
	router := setupRoomRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/rooms/group", bytes.NewBufferString(`{"participants":["bob"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecentMessagesForbiddenForNonParticipant(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	handler := newRoomHandler(roomRepo, new(mocks.MessageRepositoryMock), new(mocks.DirectSenderMock))
	router := setupRoomRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, "r1", "alice").Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	roomRepo.AssertExpectations(t)
}

func TestGetRecentMessagesSuccess(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	handler := newRoomHandler(roomRepo, msgRepo, new(mocks.DirectSenderMock))
	router := setupRoomRouter(handler)

	roomRepo.On("IsParticipant", mock.Anything, "r1", "alice").Return(true, nil).Once()
	roomRepo.On("GetRoom", mock.Anything, "r1").Return(models.Room{ID: "r1", Kind: models.RoomDirect}, nil).Once()
	roomRepo.On("Participants", mock.Anything, "r1").Return([]string{"alice", "bob"}, nil).Once()
	msgRepo.On("GetRoomMessages", mock.Anything, "r1", mock.Anything).Return([]models.Message{{ID: "m1", RoomID: "r1", Content: "hi"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "m1", resp.Messages[0].ID)
}
