package models

import "realtime-service/wire"

// Namespace names, re-exported from the wire package.
const (
	NamespaceChat          = wire.NamespaceChat
	NamespaceNotifications = wire.NamespaceNotifications
	NamespaceLive          = wire.NamespaceLive
)

func ValidNamespace(ns string) bool {
	switch ns {
	case NamespaceChat, NamespaceNotifications, NamespaceLive:
		return true
	}
	return false
}
