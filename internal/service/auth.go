package service

import (
	"context"
	"encoding/json"
	"time"

	"account-service/internal/credential"
	"account-service/internal/interfaces"
	"account-service/internal/models"
	"account-service/internal/rbac"

	"github.com/google/uuid"
)

// TokenManager is the subset of token.Manager the flows need.
type TokenManager interface {
	Sign(typ models.TokenType, uid uuid.UUID, role string, isVerified bool) (string, error)
	Verify(typ models.TokenType, token string) (*models.Claims, error)
	RevokeRefreshToken(ctx context.Context, tid string) (models.RevokedToken, error)
	IsRevoked(ctx context.Context, tid string) (bool, error)
	TTL(typ models.TokenType) time.Duration
}

// ClientInfo identifies where a request came from. It is stored in login history.
type ClientInfo struct {
	Agent string
	IP    string
}

// LoginInput carries local credentials.
type LoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	Client               ClientInfo
}

// UserList is a page of users as seen by an administrator.
type UserList struct {
	Users      []map[string]any `json:"users"`
	TotalCount int64            `json:"totalCount"`
}

// AuthService implements the authentication flows.
type AuthService interface {
	AuthenticateLocal(ctx context.Context, email, password string) (*models.User, error)
	AuthenticateBearer(ctx context.Context, token string, typ models.TokenType) (*models.Principal, error)

	Login(ctx context.Context, in LoginInput) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Register(ctx context.Context, in RegisterInput) (*models.AuthResult, error)
	VerifyAccount(ctx context.Context, principal *models.Principal) (map[string]any, error)

	SendVerificationEmail(ctx context.Context, principal *models.Principal) error
	SendChangePasswordEmail(ctx context.Context, email string) error
	SendPhoneCode(ctx context.Context, principal *models.Principal, phone string) error

	RefreshTokenTTL() time.Duration
}

// UserService implements profile reads and writes on behalf of a principal.
type UserService interface {
	GetMe(ctx context.Context, principal *models.Principal, client ClientInfo) (map[string]any, error)
	GetUser(ctx context.Context, principal *models.Principal, id uuid.UUID, client ClientInfo) (map[string]any, error)
	GetByUsername(ctx context.Context, username string) (map[string]any, error)

	UpdateProfile(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) (map[string]any, error)
	UpdateUsername(ctx context.Context, principal *models.Principal, id uuid.UUID, username string) (map[string]any, error)
	ChangePassword(ctx context.Context, principal *models.Principal, id uuid.UUID, password, confirmation string) error
	UpdatePhone(ctx context.Context, principal *models.Principal, id uuid.UUID, phone, code string) (map[string]any, error)
	ToggleFavor(ctx context.Context, principal *models.Principal, id uuid.UUID, businessID string) ([]string, error)

	ListUsers(ctx context.Context, principal *models.Principal, filter models.UserFilter, skip, limit int) (*UserList, error)
	EditUser(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) error
}

// Dependencies wires the collaborators shared by both services.
type Dependencies struct {
	Users       interfaces.UserRepository
	PhoneCodes  interfaces.PhoneCodeRepository
	Credentials *credential.Store
	Tokens      TokenManager
	Access      *rbac.AccessControl
	Mail        interfaces.MailSender
	Events      interfaces.EventPublisher
	Business    interfaces.BusinessClient

	LoginHistoryLimit int
	PhoneCodeTTL      time.Duration
}
