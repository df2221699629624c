package models

import "realtime-service/wire"

// Event is the wire frame. Aliased from the importable wire package so the
// client package and the service share one definition.
type Event = wire.Event

// Event vocabulary, re-exported from the wire package for internal use.
const (
	EvSendMessage   = wire.EvSendMessage
	EvJoinRoom      = wire.EvJoinRoom
	EvLeaveRoom     = wire.EvLeaveRoom
	EvTypingStart   = wire.EvTypingStart
	EvTypingStop    = wire.EvTypingStop
	EvMarkRead      = wire.EvMarkRead
	EvCreateDirect  = wire.EvCreateDirect
	EvCreateGroup   = wire.EvCreateGroup
	EvEditMessage   = wire.EvEditMessage
	EvDeleteMessage = wire.EvDeleteMessage

	EvUpdatePrefs = wire.EvUpdatePrefs
	EvGetHistory  = wire.EvGetHistory
	EvMarkAllRead = wire.EvMarkAllRead

	EvSubscribeJob    = wire.EvSubscribeJob
	EvSubscribeEvent  = wire.EvSubscribeEvent
	EvSubscribeOnline = wire.EvSubscribeOnline
	EvUnsubscribe     = wire.EvUnsubscribe
	EvGetStats        = wire.EvGetStats

	EvConnected        = wire.EvConnected
	EvError            = wire.EvError
	EvNewMessage       = wire.EvNewMessage
	EvMessageSent      = wire.EvMessageSent
	EvMessageEdited    = wire.EvMessageEdited
	EvMessageDeleted   = wire.EvMessageDeleted
	EvTypingStopped    = wire.EvTypingStopped
	EvUserJoined       = wire.EvUserJoined
	EvUserLeft         = wire.EvUserLeft
	EvRoomCreated      = wire.EvRoomCreated
	EvNotification     = wire.EvNotification
	EvNewJob           = wire.EvNewJob
	EvMatchFound       = wire.EvMatchFound
	EvEventReminder    = wire.EvEventReminder
	EvCollaborationInv = wire.EvCollaborationInv
	EvJobAppUpdate     = wire.EvJobAppUpdate
	EvEventPartUpdate  = wire.EvEventPartUpdate
	EvOnlineCount      = wire.EvOnlineCount
	EvStatsUpdate      = wire.EvStatsUpdate
	EvHistory          = wire.EvHistory
	EvPrefsUpdated     = wire.EvPrefsUpdated
)

// Channel name helpers. Channels are named broadcast scopes; rooms, jobs and
// events each get their own prefix, presence uses a single shared channel.
const OnlineCountChannel = "online-count"

func RoomChannel(roomID string) string   { return "room:" + roomID }
func JobChannel(jobID string) string     { return "job:" + jobID }
func EventChannel(eventID string) string { return "event:" + eventID }

// Stats is the payload of a stats-update broadcast.
type Stats struct {
	TotalJobs   int `json:"totalJobs"`
	TotalEvents int `json:"totalEvents"`
	TotalUsers  int `json:"totalUsers"`
	OnlineUsers int `json:"onlineUsers"`
}
