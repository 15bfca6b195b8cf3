package models

import (
	"time"

	"github.com/google/uuid"
)

// Account event types.
const (
	EventUserRegistered     = "user.registered"
	EventUserLoggedIn       = "user.logged_in"
	EventUserLoggedOut      = "user.logged_out"
	EventUserVerified       = "user.verified"
	EventUserProfileUpdated = "user.profile_updated"
	EventUserRoleChanged    = "user.role_changed"
)

// AccountEvent is published whenever an account changes state.
type AccountEvent struct {
	Type       string            `json:"type"`
	UserID     uuid.UUID         `json:"userId"`
	Role       string            `json:"role,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// NewAccountEvent stamps an event for user.
func NewAccountEvent(eventType string, user *User, meta map[string]string) AccountEvent {
	return AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Role:       user.Role,
		OccurredAt: time.Now().UTC(),
		Meta:       meta,
	}
}
