package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getMe(c *gin.Context) {
	user, err := h.userService.GetMe(c.Request.Context(), principalFrom(c), clientInfo(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) getUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(c.Request.Context(), principalFrom(c), id, clientInfo(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) getByUsername(c *gin.Context) {
	user, err := h.userService.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

// updateProfile accepts any subset of profile attributes. Attributes the
// caller may not update are ignored.
func (h *Handler) updateProfile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var attrs map[string]json.RawMessage
	if err := c.ShouldBindJSON(&attrs); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), principalFrom(c), id, attrs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) updateUsername(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req updateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	user, err := h.userService.UpdateUsername(c.Request.Context(), principalFrom(c), id, req.Username)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) changePassword(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.userService.ChangePassword(c.Request.Context(), principalFrom(c), id, req.Password, req.PasswordConfirmation); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) updatePhone(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req updatePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	user, err := h.userService.UpdatePhone(c.Request.Context(), principalFrom(c), id, req.PhoneNumber, req.Code)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{User: user})
}

func (h *Handler) toggleFavor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req favorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	favors, err := h.userService.ToggleFavor(c.Request.Context(), principalFrom(c), id, req.BusinessID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, favorsResponse{Favors: favors})
}
