package model

import "time"

// Player is a roster entry as reported by the game host.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Host bool   `json:"host"`
}

// Link is a completed identity pair between a game player and a chat user.
// Links are immutable once created; only a store wipe removes them.
type Link struct {
	GameID string `json:"game_id"`
	ChatID string `json:"chat_id"`
}

// PendingVerification is an in-flight verification code awaiting chat-side
// submission. It lives until consumed by a successful submit or abandoned
// when the player leaves the server.
type PendingVerification struct {
	GameID    string
	Code      string
	CreatedAt time.Time
}
