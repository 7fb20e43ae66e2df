package protocol

// Identification results.
const (
	ResultAccepted  = "accepted"
	ResultNameTaken = "name_taken"
)

// Room kinds reported by RoomEntered.
const (
	RoomIdentify    = "identify"
	RoomMatchmaking = "matchmaking"
	RoomMatch       = "match"
)

// IdentifyRequest carries the candidate username of a connecting client.
type IdentifyRequest struct {
	Username string `json:"username"`
}

// IdentifyResponse reports whether the username was accepted.
type IdentifyResponse struct {
	Result string `json:"result"`
}

// RoomEntered notifies a client that it joined a room of the given kind.
type RoomEntered struct {
	Room string `json:"room"`
}

// PlayerInfo describes one match participant: a match-scoped seat (1 or 2)
// and the account-level username.
type PlayerInfo struct {
	Seat     int    `json:"seat"`
	Username string `json:"username"`
}

// PlayersResponse is the snapshot of both participants, in seat order.
type PlayersResponse struct {
	Players [2]PlayerInfo `json:"players"`
}

// WhoAmIResponse tells the requester its own seat and username.
type WhoAmIResponse struct {
	Seat     int    `json:"seat"`
	Username string `json:"username"`
}

// MoveRequest asks to mark a cell, indexed 0-8.
type MoveRequest struct {
	Cell int `json:"cell"`
}

// MoveResult broadcasts the mover's seat and the full board after a move.
type MoveResult struct {
	Seat  int    `json:"seat"`
	Board [9]int `json:"board"`
}

// WinnerAnnouncement resolves a match. WinnerSeat 0 means no winner (draw).
type WinnerAnnouncement struct {
	WinnerSeat     int    `json:"winner_seat"`
	WinnerUsername string `json:"winner_username"`
	MatchID        string `json:"match_id"`
}

// LobbyNotice is a textual broadcast in the matchmaking room.
type LobbyNotice struct {
	Text string `json:"text"`
}
