// Package wire defines the frame and event vocabulary exchanged between
// realtime clients and the service. It sits outside internal/ so external
// consumers of the client package can name these types.
package wire

// Event is the frame exchanged over websocket connections and relayed
// through the shared pub/sub backend.
type Event struct {
	Type      string      `json:"type"`
	ChannelID string      `json:"channelId,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Namespaces are logically separate groups of channels and events. Every
// connection belongs to exactly one of them.
const (
	NamespaceChat          = "chat"
	NamespaceNotifications = "notifications"
	NamespaceLive          = "live-updates"
)

// Inbound event types, per namespace. mark-read is shared between the chat
// and notifications namespaces and routed by the connection's namespace.
const (
	// chat namespace
	EvSendMessage   = "send-message"
	EvJoinRoom      = "join-room"
	EvLeaveRoom     = "leave-room"
	EvTypingStart   = "typing-start"
	EvTypingStop    = "typing-stop"
	EvMarkRead      = "mark-read"
	EvCreateDirect  = "create-direct-chat"
	EvCreateGroup   = "create-group-chat"
	EvEditMessage   = "edit-message"
	EvDeleteMessage = "delete-message"

	// notifications namespace
	EvUpdatePrefs = "update-preferences"
	EvGetHistory  = "get-history"
	EvMarkAllRead = "mark-all-read"

	// live-updates namespace
	EvSubscribeJob    = "subscribe-job-updates"
	EvSubscribeEvent  = "subscribe-event-updates"
	EvSubscribeOnline = "subscribe-online-count"
	EvUnsubscribe     = "unsubscribe"
	EvGetStats        = "get-stats"
)

// Outbound event types. job-application-update and event-participation-update
// are produced by external services publishing through the shared backend;
// this service only relays them to channel subscribers.
const (
	EvConnected        = "connected"
	EvError            = "error"
	EvNewMessage       = "new-message"
	EvMessageSent      = "message-sent"
	EvMessageEdited    = "message-edited"
	EvMessageDeleted   = "message-deleted"
	EvTypingStopped    = "typing-stopped"
	EvUserJoined       = "user-joined"
	EvUserLeft         = "user-left"
	EvRoomCreated      = "room-created"
	EvNotification     = "notification"
	EvNewJob           = "new-job"
	EvMatchFound       = "match-found"
	EvEventReminder    = "event-reminder"
	EvCollaborationInv = "collaboration-invite"
	EvJobAppUpdate     = "job-application-update"
	EvEventPartUpdate  = "event-participation-update"
	EvOnlineCount      = "online-count-update"
	EvStatsUpdate      = "stats-update"
	EvHistory          = "notification-history"
	EvPrefsUpdated     = "preferences-updated"
)
