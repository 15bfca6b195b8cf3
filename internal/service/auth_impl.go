package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"account-service/internal/models"
	"account-service/internal/rbac"

	"go.uber.org/zap"
)

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

// authServiceImpl implements the AuthService interface.
type authServiceImpl struct {
	*core
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(deps Dependencies, logger *zap.Logger) AuthService {
	return &authServiceImpl{core: newCore(deps, logger.Named("AuthService"))}
}

// AuthenticateLocal checks an email/password pair. Unknown emails and bad
// passwords are indistinguishable to the caller.
func (s *authServiceImpl) AuthenticateLocal(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("email", email))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.deps.Credentials.Verify(password, user.PasswordHash) {
		s.logger.Warn("Login failed: invalid password", zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateBearer verifies token as typ and loads the user it names.
// Revoked refresh tokens are rejected.
func (s *authServiceImpl) AuthenticateBearer(ctx context.Context, token string, typ models.TokenType) (*models.Principal, error) {
	claims, err := s.deps.Tokens.Verify(typ, token)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("userID", claims.UserID.String()), zap.String("tid", claims.TID))

	if typ == models.TokenTypeRefresh {
		revoked, err := s.deps.Tokens.IsRevoked(ctx, claims.TID)
		if err != nil {
			log.Error("Failed to check revocation ledger", zap.Error(err))
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			log.Warn("Refresh attempt with revoked token")
			return nil, models.ErrTokenRevoked
		}
	}

	user, err := s.deps.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Warn("User from valid token not found in DB")
		}
		return nil, err
	}
	return &models.Principal{User: user, Claims: claims}, nil
}

// Login authenticates with local credentials and issues a token pair.
func (s *authServiceImpl) Login(ctx context.Context, in LoginInput) (*models.AuthResult, error) {
	user, err := s.AuthenticateLocal(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("userID", user.ID.String()))

	if user.IsSuspended() {
		log.Warn("Login failed: user is suspended")
		return nil, models.ErrUserSuspended
	}

	s.recordLogin(user, in.Client)
	if err := s.save(ctx, user); err != nil {
		log.Error("Failed to persist login history", zap.Error(err))
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventUserLoggedIn, user, map[string]string{"ip": in.Client.IP})
	log.Info("User logged in successfully")
	return result, nil
}

// Refresh issues a fresh access token. The refresh token is not rotated.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (string, error) {
	principal, err := s.AuthenticateBearer(ctx, refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	user := principal.User
	if user.IsSuspended() {
		s.logger.Warn("Refresh rejected: user is suspended", zap.String("userID", user.ID.String()))
		return "", models.ErrUserSuspended
	}

	access, err := s.deps.Tokens.Sign(models.TokenTypeAccess, user.ID, user.Role, user.IsVerified)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Access token refreshed", zap.String("userID", user.ID.String()))
	return access, nil
}

// Logout revokes the refresh token. A second logout with the same token
// yields models.ErrAlreadyRevoked.
func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.deps.Tokens.Verify(models.TokenTypeRefresh, refreshToken)
	if err != nil {
		return err
	}
	if _, err := s.deps.Tokens.RevokeRefreshToken(ctx, claims.TID); err != nil {
		return err
	}
	s.publish(ctx, models.EventUserLoggedOut, &models.User{ID: claims.UserID, Role: claims.Role}, nil)
	s.logger.Info("User logged out", zap.String("userID", claims.UserID.String()), zap.String("tid", claims.TID))
	return nil
}

// Register creates a regular account and signs the user in.
func (s *authServiceImpl) Register(ctx context.Context, in RegisterInput) (*models.AuthResult, error) {
	if in.Password != in.PasswordConfirmation {
		return nil, models.ErrPasswordMismatch
	}
	if err := models.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email format", models.ErrValidation)
	}
	if !s.deps.Access.Can(models.RoleGuest).CreateOwn(rbac.ResourceAccount).Granted {
		return nil, fmt.Errorf("%w: registration is disabled", models.ErrForbidden)
	}

	log := s.logger.With(zap.String("email", email))
	log.Info("Registering new user")

	exists, err := s.deps.Users.ExistsByEmail(ctx, email)
	if err != nil {
		log.Error("Error checking existing email during registration", zap.Error(err))
		return nil, fmt.Errorf("error checking existing email: %w", err)
	}
	if exists {
		log.Warn("Registration attempt for existing email")
		return nil, models.ErrEmailAlreadyExists
	}

	username, err := s.deriveUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:   username,
		Email:      email,
		Role:       models.RoleRegular,
		UserStatus: models.StatusNormal,
	}
	user.SetPassword(in.Password)
	s.recordLogin(user, in.Client)
	if err := s.deps.Credentials.Prepare(user); err != nil {
		log.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.deps.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Mail.SendEmailVerification(ctx, user, result.AccessToken); err != nil {
		log.Error("Failed to queue verification email", zap.String("userID", user.ID.String()), zap.Error(err))
	}
	s.publish(ctx, models.EventUserRegistered, user, nil)

	log.Info("User registered successfully", zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return result, nil
}

// VerifyAccount marks the principal's account as verified.
func (s *authServiceImpl) VerifyAccount(ctx context.Context, principal *models.Principal) (map[string]any, error) {
	if principal == nil || principal.User == nil {
		return nil, models.ErrInvalidToken
	}
	user := principal.User
	if !user.IsVerified {
		user.IsVerified = true
		if err := s.save(ctx, user); err != nil {
			return nil, err
		}
		s.publish(ctx, models.EventUserVerified, user, nil)
		s.logger.Info("Account verified", zap.String("userID", user.ID.String()))
	}
	return s.ownView(user)
}

// SendVerificationEmail resends the verification link with a new access token.
func (s *authServiceImpl) SendVerificationEmail(ctx context.Context, principal *models.Principal) error {
	if principal == nil || principal.User == nil {
		return models.ErrInvalidToken
	}
	user := principal.User
	token, err := s.deps.Tokens.Sign(models.TokenTypeAccess, user.ID, user.Role, user.IsVerified)
	if err != nil {
		return err
	}
	return s.deps.Mail.SendEmailVerification(ctx, user, token)
}

// SendChangePasswordEmail mails a password reset link to the owner of email.
func (s *authServiceImpl) SendChangePasswordEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrValidation)
	}
	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	token, err := s.deps.Tokens.Sign(models.TokenTypeAccess, user.ID, user.Role, user.IsVerified)
	if err != nil {
		return err
	}
	return s.deps.Mail.SendChangePassword(ctx, user, token)
}

// SendPhoneCode stores a fresh one-time code for phone and dispatches it.
func (s *authServiceImpl) SendPhoneCode(ctx context.Context, principal *models.Principal, phone string) error {
	if principal == nil || principal.User == nil {
		return models.ErrInvalidToken
	}
	phone = strings.TrimSpace(phone)
	if err := models.ValidatePhoneNumber(phone); err != nil {
		return err
	}
	code, err := newPhoneCode()
	if err != nil {
		return err
	}
	if err := s.deps.PhoneCodes.Save(ctx, principal.User.ID, phone, code, s.deps.PhoneCodeTTL); err != nil {
		s.logger.Error("Failed to store phone code", zap.String("userID", principal.User.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to store phone code: %w", err)
	}
	return s.deps.Mail.SendPhoneCode(ctx, phone, code)
}

// RefreshTokenTTL is the lifetime used for the refresh cookie.
func (s *authServiceImpl) RefreshTokenTTL() time.Duration {
	return s.deps.Tokens.TTL(models.TokenTypeRefresh)
}

// issue signs the refresh and access tokens for user, in that order.
func (s *authServiceImpl) issue(user *models.User) (*models.AuthResult, error) {
	refresh, err := s.deps.Tokens.Sign(models.TokenTypeRefresh, user.ID, user.Role, user.IsVerified)
	if err != nil {
		s.logger.Error("Failed to sign refresh token", zap.String("userID", user.ID.String()), zap.Error(err))
		return nil, err
	}
	access, err := s.deps.Tokens.Sign(models.TokenTypeAccess, user.ID, user.Role, user.IsVerified)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.String("userID", user.ID.String()), zap.Error(err))
		return nil, err
	}
	view, err := s.ownView(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: view, AccessToken: access, RefreshToken: refresh}, nil
}
