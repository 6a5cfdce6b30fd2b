// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game feed.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was invalid or expired.
	InvalidGameIDError    = 3003 // Game in the WS URL does not exist or is not visible to the caller.
	GameRemovedError      = 3004 // The game was deleted while the feed was open.
)
