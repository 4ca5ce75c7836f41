// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the player gateway.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Session token missing, invalid or expired.
	InvalidRoomIDError    = 3003 // The room query parameter is missing or malformed.
	SessionReplacedError  = 3004 // The same player connected again elsewhere.
)
