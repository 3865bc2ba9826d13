package server

import "uno-server/internal/game"

// ============================================================================
// INBOUND PAYLOADS
// ============================================================================

type IdentifyPayload struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	AvatarURL     string `json:"avatarUrl"`
	GuildID       string `json:"guildId"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SetReadyPayload struct {
	Ready bool `json:"ready"`
}

type PlayPayload struct {
	Card *PlayCard `json:"card"`

	// Malformed marks a payload that failed to parse as the expected shape;
	// the handler rejects it as invalid_card.
	Malformed bool `json:"-"`
}

// PlayCard mirrors game.Card with pointer fields so a missing value is
// distinguishable from zero.
type PlayCard struct {
	Color string `json:"color"`
	Value *int   `json:"value"`
}

// ============================================================================
// OUTBOUND PAYLOADS
// ============================================================================

type HelloData struct {
	Message string `json:"message"`
	Now     int64  `json:"now"`
}

type HeartbeatAckData struct {
	Now int64 `json:"now"`
}

type RoomCreatedData struct {
	RoomID string `json:"roomId"`
}

type JoinedData struct {
	RoomID string `json:"roomId"`
}

type LeftData struct {
	RoomID string `json:"roomId"`
}

type SetReadyAckData struct {
	Ready bool `json:"ready"`
}

type WinnerData struct {
	PlayerID *string `json:"playerId"`
}

// RosterEntry is one member in the public roster. Display fields are null for
// a member who has not identified; Cards appears only once a game exists and
// is the hand count, never the cards.
type RosterEntry struct {
	ID            *string `json:"id"`
	Username      *string `json:"username"`
	Discriminator *string `json:"discriminator"`
	AvatarURL     *string `json:"avatarUrl"`
	Ready         bool    `json:"ready"`
	Cards         *int    `json:"cards,omitempty"`
}

// PublicState is the room-wide projection, identical for every member and
// free of secrets. Game fields appear only once a game exists.
type PublicState struct {
	RoomID          string        `json:"roomId"`
	Players         []RosterEntry `json:"players"`
	HostID          *string       `json:"hostId"`
	TopCard         *game.Card    `json:"topCard,omitempty"`
	CurrentPlayerID *string       `json:"currentPlayerId,omitempty"`
	Phase           string        `json:"phase,omitempty"`
}

// SnapshotData is the per-connection private projection: the public state
// plus the caller's own exact hand.
type SnapshotData struct {
	PublicState
	YourHand []game.Card `json:"yourHand"`
}
