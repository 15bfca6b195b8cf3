package handler

import (
	"net/http"
	"strings"

	"account-service/internal/models"
	"account-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const principalKey = "principal"

// AuthMiddleware authenticates the bearer access token and stores the principal.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			zap.L().Warn("Authorization header missing or malformed")
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			h.handleServiceError(c, models.ErrInvalidToken)
			return
		}

		principal, err := h.authService.AuthenticateBearer(c.Request.Context(), tokenString, models.TokenTypeAccess)
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			h.handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("access", "success").Inc()
		c.Set(principalKey, principal)
		c.Set("user_id", principal.User.ID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// refreshToken reads the refresh token from the cookie, falling back to the bearer header.
func (h *Handler) refreshToken(c *gin.Context) (string, bool) {
	if cookie, err := c.Cookie(h.cfg.RefreshCookieKey); err == nil && cookie != "" {
		return cookie, true
	}
	return bearerToken(c)
}

func principalFrom(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{Agent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "Invalid user id", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.RefreshCookieKey, token, int(h.authService.RefreshTokenTTL().Seconds()), "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.RefreshCookieKey, "", -1, "/", h.cfg.CookieDomain, h.cfg.CookieSecure, true)
}
