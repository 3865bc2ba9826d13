package server

import "errors"

// Room and dispatch rejections. Like the game engine's errors, the text is
// the wire code sent back in the error envelope. Every rejection goes to the
// requesting connection only and never mutates state.
var (
	errRoomNotFound   = errors.New("room_not_found")
	errGameInProgress = errors.New("game_in_progress")
	errNotInRoom      = errors.New("not_in_room")
	errNotHost        = errors.New("not_host")
	errNeedTwoPlayers = errors.New("need_2_players")
	errNotAllReady    = errors.New("not_all_ready")
	errAlreadyStarted = errors.New("already_started")
	errInvalidCard    = errors.New("invalid_card")
	errMissingGuild   = errors.New("missing_guild")
	errNotIdentified  = errors.New("not_identified")
)
