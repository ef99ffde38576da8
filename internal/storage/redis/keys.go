package redis

import "fmt"

// Key prefix for all bridge data
const keyPrefix = "odl"

// gameToChatKey returns the Redis key mapping a game player to a chat user
func gameToChatKey(gameID string) string {
	return fmt.Sprintf("%s:g2d:%s", keyPrefix, gameID)
}

// chatToGameKey returns the Redis key mapping a chat user to a game player
func chatToGameKey(chatID string) string {
	return fmt.Sprintf("%s:d2g:%s", keyPrefix, chatID)
}
