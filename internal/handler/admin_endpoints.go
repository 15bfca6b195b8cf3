package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"account-service/internal/models"

	"github.com/gin-gonic/gin"
)

// listUsers handles GET /admin/users?skip&limit&role&status&search.
func (h *Handler) listUsers(c *gin.Context) {
	skip, err := queryInt(c, "skip")
	if err != nil {
		h.badRequest(c, "Invalid skip parameter", err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		h.badRequest(c, "Invalid limit parameter", err)
		return
	}
	filter := models.UserFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	list, err := h.userService.ListUsers(c.Request.Context(), principalFrom(c), filter, skip, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) editUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var attrs map[string]json.RawMessage
	if err := c.ShouldBindJSON(&attrs); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}
	if err := h.userService.EditUser(c.Request.Context(), principalFrom(c), id, attrs); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
