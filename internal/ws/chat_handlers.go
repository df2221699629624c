package ws

import (
	"context"
	"errors"

	"github.com/goccy/go-json"

	"realtime-service/internal/chat"
	"realtime-service/internal/models"
	"realtime-service/internal/repositories"
)

type sendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
	Type    string `json:"type"`
	TempID  string `json:"tempId"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type markReadPayload struct {
	MessageID string `json:"messageId"`
}

type createDirectPayload struct {
	TargetUserID string `json:"targetUserId"`
}

type createGroupPayload struct {
	Participants []string `json:"participants"`
	GroupName    string   `json:"groupName"`
}

type editMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

type deleteMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

func (g *Gateway) handleChatEvent(ctx context.Context, conn *Conn, event inboundEvent) {
	switch event.Type {
	case models.EvSendMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" || p.Content == "" {
			conn.SendError("send-message requires roomId and content")
			return
		}
		_, err := g.chat.SendMessage(ctx, p.RoomID, conn.UserID, p.TempID, p.Content, models.MessageKind(p.Type))
		if err != nil {
			conn.Send(models.Event{Type: models.EvError, Data: map[string]string{
				"message": sendFailureReason(err),
				"tempId":  p.TempID,
			}})
		}

	case models.EvJoinRoom:
		var p roomPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" {
			conn.SendError("join-room requires roomId")
			return
		}
		if err := g.chat.JoinRoom(ctx, p.RoomID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
			return
		}
		g.registry.Subscribe(conn, models.RoomChannel(p.RoomID))

	case models.EvLeaveRoom:
		var p roomPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" {
			conn.SendError("leave-room requires roomId")
			return
		}
		g.registry.Unsubscribe(conn, models.RoomChannel(p.RoomID))
		if err := g.chat.LeaveRoom(ctx, p.RoomID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	case models.EvTypingStart:
		var p roomPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" {
			conn.SendError("typing-start requires roomId")
			return
		}
		if err := g.chat.StartTyping(ctx, p.RoomID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	case models.EvTypingStop:
		var p roomPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" {
			conn.SendError("typing-stop requires roomId")
			return
		}
		if err := g.chat.StopTyping(ctx, p.RoomID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	case models.EvMarkRead:
		var p markReadPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.MessageID == "" {
			conn.SendError("mark-read requires messageId")
			return
		}
		if err := g.chat.MarkRead(ctx, p.MessageID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	case models.EvCreateDirect:
		var p createDirectPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.TargetUserID == "" {
			conn.SendError("create-direct-chat requires targetUserId")
			return
		}
		room, err := g.chat.CreateDirectRoom(ctx, conn.UserID, p.TargetUserID)
		if err != nil {
			conn.SendError("could not create chat")
			return
		}
		g.registry.Subscribe(conn, models.RoomChannel(room.ID))

	case models.EvCreateGroup:
		var p createGroupPayload
		if err := json.Unmarshal(event.Data, &p); err != nil || len(p.Participants) == 0 {
			conn.SendError("create-group-chat requires participants")
			return
		}
		room, err := g.chat.CreateGroupRoom(ctx, conn.UserID, p.GroupName, p.Participants)
		if err != nil {
			conn.SendError("could not create group")
			return
		}
		g.registry.Subscribe(conn, models.RoomChannel(room.ID))

	case models.EvEditMessage:
		var p editMessagePayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" || p.MessageID == "" {
			conn.SendError("edit-message requires roomId and messageId")
			return
		}
		if _, err := g.chat.EditMessage(ctx, p.RoomID, p.MessageID, conn.UserID, p.Content); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	case models.EvDeleteMessage:
		var p deleteMessagePayload
		if err := json.Unmarshal(event.Data, &p); err != nil || p.RoomID == "" || p.MessageID == "" {
			conn.SendError("delete-message requires roomId and messageId")
			return
		}
		if err := g.chat.DeleteMessage(ctx, p.RoomID, p.MessageID, conn.UserID); err != nil {
			conn.SendError(sendFailureReason(err))
		}

	default:
		conn.SendError("unknown event type: " + event.Type)
	}
}

// sendFailureReason maps internal errors to the message reported to the
// originating connection. Other participants never see these.
func sendFailureReason(err error) string {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		return "not a room participant"
	case errors.Is(err, repositories.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, repositories.ErrMessageNotFound):
		return "message not found"
	default:
		return "delivery failed"
	}
}
