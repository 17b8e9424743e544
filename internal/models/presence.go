package models

// PresenceState is the advisory online/offline state of an identity.
type PresenceState string

const (
	PresenceJoined PresenceState = "joined"
	PresenceLeft   PresenceState = "left"
)

// Presence is a transient join/leave notification. It is broadcast to online
// sessions and not retained afterwards.
type Presence struct {
	Identity string        `json:"identity"`
	State    PresenceState `json:"state"`
}
