// Package handler exposes the account flows over HTTP.
package handler

import (
	"account-service/internal/config"
	"account-service/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	authService service.AuthService
	userService service.UserService
	cfg         *config.Config
}

func NewHandler(authService service.AuthService, userService service.UserService, cfg *config.Config) *Handler {
	return &Handler{
		authService: authService,
		userService: userService,
		cfg:         cfg,
	}
}

// RegisterRoutes mounts every route. rateLimit guards the credential endpoints
// and may be nil.
func (h *Handler) RegisterRoutes(router *gin.Engine, rateLimit gin.HandlerFunc) {
	if rateLimit == nil {
		rateLimit = func(c *gin.Context) { c.Next() }
	}

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", rateLimit, h.login)
		authGroup.GET("/logout", h.logout)
		authGroup.GET("/token", h.refresh)
		authGroup.POST("/mail/verify", h.AuthMiddleware(), h.sendVerificationEmail)
		authGroup.POST("/mail/password", rateLimit, h.sendChangePasswordEmail)
		authGroup.POST("/phone", h.AuthMiddleware(), rateLimit, h.sendPhoneCode)
	}

	userGroup := router.Group("/user")
	{
		userGroup.POST("/register", rateLimit, h.register)
		userGroup.GET("/username/:username", h.getByUsername)

		protected := userGroup.Group("")
		protected.Use(h.AuthMiddleware())
		protected.GET("/verify", h.verifyAccount)
		protected.GET("/me", h.getMe)
		protected.GET("/:id", h.getUser)
		protected.PUT("/:id", h.updateProfile)
		protected.PUT("/:id/username", h.updateUsername)
		protected.PUT("/:id/password", h.changePassword)
		protected.PUT("/:id/phone", h.updatePhone)
		protected.POST("/:id/favors", h.toggleFavor)
	}

	adminGroup := router.Group("/admin")
	adminGroup.Use(h.AuthMiddleware())
	{
		adminGroup.GET("/users", h.listUsers)
		adminGroup.PUT("/users/:id", h.editUser)
	}
}
