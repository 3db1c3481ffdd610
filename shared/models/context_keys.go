package models

const (
	// PlayerIDContextKey - ключ gin.Context с непрозрачным идентификатором игрока.
	PlayerIDContextKey = "playerID"
	// RequestIDContextKey - ключ gin.Context с id запроса (X-Request-ID).
	RequestIDContextKey = "requestID"

	PlayerIDCookie   = "player_id"
	PlayerIDHeader   = "X-Player-ID"
	RequestIDHeader  = "X-Request-ID"
	PlayerIDPrefix   = "p_"
	playerIDMaxBytes = 128
)

// IsValidPlayerID проверяет id, пришедший от клиента: непустой, ограниченной длины,
// только печатные ASCII без пробелов.
func IsValidPlayerID(id string) bool {
	if id == "" || len(id) > playerIDMaxBytes {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' || id[i] == ';' || id[i] == ',' {
			return false
		}
	}
	return true
}
