package middleware

import (
	"net/http"
	"strings"
	"time"

	"mapguess-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlayerCookieConfig - параметры cookie игрока.
type PlayerCookieConfig struct {
	MaxAge time.Duration
	Secure bool
}

// NewPlayerID генерирует непрозрачный id вида p_<32 hex>.
func NewPlayerID() string {
	return models.PlayerIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// PlayerIdentity определяет игрока по cookie или заголовку X-Player-ID,
// при первом обращении выдает новый id. id всегда возвращается в cookie и заголовке.
func PlayerIdentity(cfg PlayerCookieConfig) gin.HandlerFunc {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 365 * 24 * time.Hour
	}
	return func(c *gin.Context) {
		playerID, err := c.Cookie(models.PlayerIDCookie)
		if err != nil || !models.IsValidPlayerID(playerID) {
			playerID = strings.TrimSpace(c.GetHeader(models.PlayerIDHeader))
		}
		if !models.IsValidPlayerID(playerID) {
			playerID = NewPlayerID()
		}

		c.Set(models.PlayerIDContextKey, playerID)
		c.Header(models.PlayerIDHeader, playerID)

		sameSite := http.SameSiteLaxMode
		if cfg.Secure {
			// Кросс-доменный фронтенд требует SameSite=None, а он допустим только с Secure
			sameSite = http.SameSiteNoneMode
		}
		c.SetSameSite(sameSite)
		c.SetCookie(models.PlayerIDCookie, playerID, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)

		c.Next()
	}
}

// PlayerID возвращает id игрока, проставленный PlayerIdentity.
func PlayerID(c *gin.Context) string {
	return c.GetString(models.PlayerIDContextKey)
}
