package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"account-service/internal/models"
	"account-service/internal/rbac"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Compile-time check to ensure userServiceImpl implements UserService
var _ UserService = (*userServiceImpl)(nil)

type userServiceImpl struct {
	*core
}

// NewUserService creates a new instance of userServiceImpl.
func NewUserService(deps Dependencies, logger *zap.Logger) UserService {
	return &userServiceImpl{core: newCore(deps, logger.Named("UserService"))}
}

// GetMe counts as a self authentication and appends to the login history.
func (s *userServiceImpl) GetMe(ctx context.Context, principal *models.Principal, client ClientInfo) (map[string]any, error) {
	if principal == nil || principal.User == nil {
		return nil, models.ErrInvalidToken
	}
	user := principal.User
	s.recordLogin(user, client)
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return s.ownView(user)
}

// GetUser returns the user with id as seen by principal. Other users are
// read through read:any and their history is left alone.
func (s *userServiceImpl) GetUser(ctx context.Context, principal *models.Principal, id uuid.UUID, client ClientInfo) (map[string]any, error) {
	if principal == nil || principal.User == nil {
		return nil, models.ErrInvalidToken
	}
	if principal.User.ID == id {
		return s.GetMe(ctx, principal, client)
	}

	perm := s.deps.Access.Can(principal.User.Role).ReadAny(rbac.ResourceAccount)
	if !perm.Granted {
		return nil, fmt.Errorf("%w: role %q may not read other accounts", models.ErrForbidden, principal.User.Role)
	}
	user, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return perm.Filter(user.Record()), nil
}

// GetByUsername is the public profile lookup.
func (s *userServiceImpl) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	perm := s.deps.Access.Can(models.RoleGuest).ReadAny(rbac.ResourceAccount)
	if !perm.Granted {
		return nil, models.ErrForbidden
	}
	user, err := s.deps.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return perm.Filter(user.Record()), nil
}

// UpdateProfile applies the attributes update:own permits and drops the rest.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) (map[string]any, error) {
	if err := ensureOwner(principal, id); err != nil {
		return nil, err
	}
	user := principal.User
	perm := s.deps.Access.Can(user.Role).UpdateOwn(rbac.ResourceAccount)
	if !perm.Granted {
		return nil, fmt.Errorf("%w: role %q may not update its account", models.ErrForbidden, user.Role)
	}

	permitted := rbac.Project(perm, attrs)
	delete(permitted, models.AttrID)
	if len(permitted) == 0 {
		return nil, fmt.Errorf("%w: no updatable attributes in request", models.ErrValidation)
	}

	previousUsername := user.Username
	if err := user.ApplyAttributes(permitted); err != nil {
		return nil, err
	}
	if user.Username != previousUsername {
		if err := s.ensureUsernameFree(ctx, user.Username); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, models.EventUserProfileUpdated, user, nil)
	s.logger.Info("Profile updated", zap.String("userID", user.ID.String()), zap.Int("attributes", len(permitted)))
	return s.ownView(user)
}

func (s *userServiceImpl) UpdateUsername(ctx context.Context, principal *models.Principal, id uuid.UUID, username string) (map[string]any, error) {
	if err := ensureOwner(principal, id); err != nil {
		return nil, err
	}
	user := principal.User
	if !s.deps.Access.Can(user.Role).UpdateOwn(rbac.ResourceAccount).Allows(models.AttrUsername) {
		return nil, fmt.Errorf("%w: role %q may not change its username", models.ErrForbidden, user.Role)
	}
	username = strings.TrimSpace(username)
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if username != user.Username {
		if err := s.ensureUsernameFree(ctx, username); err != nil {
			return nil, err
		}
		user.Username = username
		if err := s.save(ctx, user); err != nil {
			return nil, err
		}
		s.publish(ctx, models.EventUserProfileUpdated, user, map[string]string{"field": models.AttrUsername})
	}
	return s.ownView(user)
}

func (s *userServiceImpl) ChangePassword(ctx context.Context, principal *models.Principal, id uuid.UUID, password, confirmation string) error {
	if err := ensureOwner(principal, id); err != nil {
		return err
	}
	if password != confirmation {
		return models.ErrPasswordMismatch
	}
	if err := models.ValidatePassword(password); err != nil {
		return err
	}
	user := principal.User
	user.SetPassword(password)
	if err := s.save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("userID", user.ID.String()))
	return nil
}

// UpdatePhone sets the phone number once the one-time code checks out.
func (s *userServiceImpl) UpdatePhone(ctx context.Context, principal *models.Principal, id uuid.UUID, phone, code string) (map[string]any, error) {
	if err := ensureOwner(principal, id); err != nil {
		return nil, err
	}
	phone = strings.TrimSpace(phone)
	if err := models.ValidatePhoneNumber(phone); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("%w: verification code is required", models.ErrValidation)
	}
	ok, err := s.deps.PhoneCodes.Consume(ctx, principal.User.ID, phone, code)
	if err != nil {
		return nil, fmt.Errorf("failed to check phone code: %w", err)
	}
	if !ok {
		return nil, models.ErrInvalidPhoneCode
	}

	user := principal.User
	user.PhoneNumber = phone
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	s.publish(ctx, models.EventUserProfileUpdated, user, map[string]string{"field": models.AttrPhoneNumber})
	return s.ownView(user)
}

// ToggleFavor adds businessID to the user's favorites, or removes it if present.
// The business service is told first; nothing is persisted if that fails.
func (s *userServiceImpl) ToggleFavor(ctx context.Context, principal *models.Principal, id uuid.UUID, businessID string) ([]string, error) {
	if err := ensureOwner(principal, id); err != nil {
		return nil, err
	}
	businessID = strings.TrimSpace(businessID)
	if businessID == "" {
		return nil, fmt.Errorf("%w: businessId is required", models.ErrValidation)
	}
	user := principal.User
	log := s.logger.With(zap.String("userID", user.ID.String()), zap.String("businessID", businessID))

	if idx := slices.Index(user.Favors, businessID); idx >= 0 {
		if err := s.deps.Business.RemoveFromFavoredUser(ctx, businessID, user.ID); err != nil {
			log.Error("Failed to remove favored user in business service", zap.Error(err))
			return nil, err
		}
		user.Favors = slices.Delete(user.Favors, idx, idx+1)
	} else {
		if err := s.deps.Business.AddToFavoredUser(ctx, businessID, user.ID); err != nil {
			log.Error("Failed to add favored user in business service", zap.Error(err))
			return nil, err
		}
		user.Favors = append(user.Favors, businessID)
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	favors := user.Favors
	if favors == nil {
		favors = []string{}
	}
	return favors, nil
}

// ListUsers pages through accounts for administrators.
func (s *userServiceImpl) ListUsers(ctx context.Context, principal *models.Principal, filter models.UserFilter, skip, limit int) (*UserList, error) {
	if principal == nil || principal.User == nil {
		return nil, models.ErrInvalidToken
	}
	role := principal.User.Role
	perm := s.deps.Access.Can(role).ReadAny(rbac.ResourceAccount)
	if !perm.Granted || models.RoleLevel(role) < models.RoleLevel(models.RoleAdmin) {
		return nil, fmt.Errorf("%w: role %q may not list accounts", models.ErrForbidden, role)
	}
	if filter.Role != "" && !models.IsValidRole(filter.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrValidation, filter.Role)
	}
	if filter.Status != "" && !models.IsValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown user status %q", models.ErrValidation, filter.Status)
	}

	skip, limit = normalizePage(skip, limit)
	items, err := s.deps.Users.List(ctx, filter, skip, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Users.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		records = append(records, item.Record())
	}
	return &UserList{Users: perm.FilterAll(records), TotalCount: total}, nil
}

// EditUser applies the attributes update:any permits to another account.
// Editors cannot touch accounts above their level or promote past it.
func (s *userServiceImpl) EditUser(ctx context.Context, principal *models.Principal, id uuid.UUID, attrs map[string]json.RawMessage) error {
	if principal == nil || principal.User == nil {
		return models.ErrInvalidToken
	}
	actor := principal.User
	perm := s.deps.Access.Can(actor.Role).UpdateAny(rbac.ResourceAccount)
	if !perm.Granted {
		return fmt.Errorf("%w: role %q may not edit other accounts", models.ErrForbidden, actor.Role)
	}

	permitted := rbac.Project(perm, attrs)
	delete(permitted, models.AttrID)
	if len(permitted) == 0 {
		return fmt.Errorf("%w: no editable attributes in request", models.ErrValidation)
	}

	target, err := s.deps.Users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	actorLevel := models.RoleLevel(actor.Role)
	if models.RoleLevel(target.Role) > actorLevel {
		return fmt.Errorf("%w: cannot edit a user above your role", models.ErrForbidden)
	}

	previousRole := target.Role
	if err := target.ApplyAttributes(permitted); err != nil {
		return err
	}
	if models.RoleLevel(target.Role) > actorLevel {
		return fmt.Errorf("%w: cannot assign role %q", models.ErrForbidden, target.Role)
	}
	if err := s.save(ctx, target); err != nil {
		return err
	}

	log := s.logger.With(zap.String("actorID", actor.ID.String()), zap.String("userID", target.ID.String()))
	if target.Role != previousRole {
		s.publish(ctx, models.EventUserRoleChanged, target, map[string]string{"from": previousRole, "to": target.Role})
		log.Info("User role changed", zap.String("from", previousRole), zap.String("to", target.Role))
	} else {
		s.publish(ctx, models.EventUserProfileUpdated, target, map[string]string{"actorId": actor.ID.String()})
		log.Info("User edited by administrator")
	}
	return nil
}

func (s *userServiceImpl) ensureUsernameFree(ctx context.Context, username string) error {
	taken, err := s.deps.Users.ExistsByUsername(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		return models.ErrUsernameTaken
	}
	return nil
}

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return skip, limit
}
