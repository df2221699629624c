package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-service/internal/chat"
	"realtime-service/internal/repositories"
)

// RoomHandler exposes the small REST surface for room management; the
// realtime operations themselves run over the websocket namespaces.
type RoomHandler struct {
	manager  *chat.Manager
	roomRepo repositories.RoomRepository
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(manager *chat.Manager, roomRepo repositories.RoomRepository) *RoomHandler {
	return &RoomHandler{manager: manager, roomRepo: roomRepo}
}

// StartDirectRoom creates or returns the direct room between two users.
func (h *RoomHandler) StartDirectRoom(c *gin.Context) {
	var req struct {
		TargetUserID string `json:"target_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if userID == req.TargetUserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	room, err := h.manager.CreateDirectRoom(c.Request.Context(), userID, req.TargetUserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": room.ID})
}

// CreateGroupRoom forms a named group room.
func (h *RoomHandler) CreateGroupRoom(c *gin.Context) {
	var req struct {
		Name         string   `json:"name" binding:"required"`
		Participants []string `json:"participants" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	room, err := h.manager.CreateGroupRoom(c.Request.Context(), userID, req.Name, req.Participants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": room.ID})
}

// GetRecentMessages returns the room's recent-message buffer for a late
// joiner catching up.
func (h *RoomHandler) GetRecentMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := c.GetString("userID")

	member, err := h.roomRepo.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room participant"})
		return
	}

	msgs, err := h.manager.Recent(c.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
