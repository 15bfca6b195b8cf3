package handler

import (
	"net/http"

	"account-service/internal/models"
	"account-service/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} authResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Client:   clientInfo(c),
	})
	if err != nil {
		loginsTotal.WithLabelValues("failure").Inc()
		h.handleServiceError(c, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusOK, authResponse{User: result.User, Token: result.AccessToken})
}

// @Summary Revoke the refresh token
// @Tags auth
// @Success 204
// @Failure 409 {object} models.ErrorResponse "Already revoked"
// @Router /auth/logout [get]
func (h *Handler) logout(c *gin.Context) {
	token, ok := h.refreshToken(c)
	if !ok {
		h.handleServiceError(c, models.ErrInvalidToken)
		return
	}
	if err := h.authService.Logout(c.Request.Context(), token); err != nil {
		h.handleServiceError(c, err)
		return
	}

	logoutsTotal.Inc()
	h.clearRefreshCookie(c)
	c.Status(http.StatusNoContent)
}

// @Summary Issue a new access token from the refresh token
// @Tags auth
// @Produce json
// @Success 200 {object} tokenResponse
// @Router /auth/token [get]
func (h *Handler) refresh(c *gin.Context) {
	token, ok := h.refreshToken(c)
	if !ok {
		tokenVerificationsTotal.WithLabelValues("refresh", "failure").Inc()
		h.handleServiceError(c, models.ErrInvalidToken)
		return
	}
	access, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		tokenVerificationsTotal.WithLabelValues("refresh", "failure").Inc()
		h.handleServiceError(c, err)
		return
	}

	tokenVerificationsTotal.WithLabelValues("refresh", "success").Inc()
	refreshesTotal.Inc()
	c.JSON(http.StatusOK, tokenResponse{Token: access})
}

func (h *Handler) sendVerificationEmail(c *gin.Context) {
	if err := h.authService.SendVerificationEmail(c.Request.Context(), principalFrom(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sendChangePasswordEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.authService.SendChangePasswordEmail(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) sendPhoneCode(c *gin.Context) {
	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.authService.SendPhoneCode(c.Request.Context(), principalFrom(c), req.PhoneNumber); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Register a new account
// @Tags user
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration data"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /user/register [post]
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Client:               clientInfo(c),
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()
	h.setRefreshCookie(c, result.RefreshToken)
	c.JSON(http.StatusCreated, authResponse{User: result.User, Token: result.AccessToken})
}

func (h *Handler) verifyAccount(c *gin.Context) {
	user, err := h.authService.VerifyAccount(c.Request.Context(), principalFrom(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}
