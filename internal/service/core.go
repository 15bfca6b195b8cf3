package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"account-service/internal/models"
	"account-service/internal/rbac"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultLoginHistoryLimit = 20
	maxUsernameAttempts      = 10
	phoneCodeDigits          = 6
)

var usernameUnsafeChars = regexp.MustCompile(`[^a-z0-9_.]`)

// core holds what the auth and user services share.
type core struct {
	deps   Dependencies
	logger *zap.Logger
}

func newCore(deps Dependencies, logger *zap.Logger) *core {
	if deps.LoginHistoryLimit <= 0 {
		deps.LoginHistoryLimit = defaultLoginHistoryLimit
	}
	return &core{deps: deps, logger: logger}
}

// ownView filters user as seen by itself.
func (c *core) ownView(user *models.User) (map[string]any, error) {
	perm := c.deps.Access.Can(user.Role).ReadOwn(rbac.ResourceAccount)
	if !perm.Granted {
		return nil, fmt.Errorf("%w: role %q may not read its own account", models.ErrForbidden, user.Role)
	}
	return perm.Filter(user.Record()), nil
}

// save runs the password preparation step and writes user.
func (c *core) save(ctx context.Context, user *models.User) error {
	if err := c.deps.Credentials.Prepare(user); err != nil {
		c.logger.Error("Failed to prepare user for persistence", zap.String("userID", user.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to prepare user: %w", err)
	}
	return c.deps.Users.Update(ctx, user)
}

func (c *core) recordLogin(user *models.User, client ClientInfo) {
	user.AppendLogin(models.LoginEntry{
		Agent: client.Agent,
		IP:    client.IP,
		Time:  timeNow().UTC(),
	}, c.deps.LoginHistoryLimit)
}

// publish emits an account event. Failures are logged and never fail the flow.
func (c *core) publish(ctx context.Context, eventType string, user *models.User, meta map[string]string) {
	if c.deps.Events == nil {
		return
	}
	if err := c.deps.Events.Publish(ctx, models.NewAccountEvent(eventType, user, meta)); err != nil {
		c.logger.Warn("Failed to publish account event", zap.String("type", eventType), zap.String("userID", user.ID.String()), zap.Error(err))
	}
}

func ensureOwner(principal *models.Principal, id uuid.UUID) error {
	if principal == nil || principal.User == nil {
		return models.ErrInvalidToken
	}
	if principal.User.ID != id {
		return fmt.Errorf("%w: id does not belong to the authenticated user", models.ErrForbidden)
	}
	return nil
}

// usernameBase turns the local part of email into a username candidate.
func usernameBase(email string) string {
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	base := usernameUnsafeChars.ReplaceAllString(local, "")
	if len(base) > 21 {
		base = base[:21]
	}
	for len(base) < models.MinUsernameLength {
		base += randomHex(models.MinUsernameLength - len(base))
	}
	return base
}

// deriveUsername returns a free username built from email. Taken names get an
// "X" and random hex suffix.
func (c *core) deriveUsername(ctx context.Context, email string) (string, error) {
	base := usernameBase(email)
	candidate := base
	for i := 0; i < maxUsernameAttempts; i++ {
		taken, err := c.deps.Users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "X" + randomHex(8)
	}
	return "", fmt.Errorf("%w: could not derive a free username from %q", models.ErrUsernameTaken, base)
}

func randomHex(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func newPhoneCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < phoneCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate phone code: %w", err)
	}
	return fmt.Sprintf("%0*d", phoneCodeDigits, n.Int64()), nil
}
