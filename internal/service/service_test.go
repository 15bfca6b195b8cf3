package service

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"account-service/internal/credential"
	"account-service/internal/mocks"
	"account-service/internal/models"
	"account-service/internal/rbac"
	"account-service/internal/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	keysOnce                sync.Once
	accessKeys, refreshKeys token.KeyPair
)

type harness struct {
	users    *mocks.MockUserRepository
	phones   *mocks.MockPhoneCodeRepository
	mail     *mocks.MockMailSender
	events   *mocks.MockEventPublisher
	business *mocks.MockBusinessClient
	ledger   *mocks.MockRevocationLedger

	creds  *credential.Store
	tokens *token.Manager
	auth   AuthService
	user   UserService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	keysOnce.Do(func() {
		accessKeys = generateKeyPair(t)
		refreshKeys = generateKeyPair(t)
	})

	h := &harness{
		users:    mocks.NewMockUserRepository(t),
		phones:   mocks.NewMockPhoneCodeRepository(t),
		mail:     mocks.NewMockMailSender(t),
		events:   mocks.NewMockEventPublisher(t),
		business: mocks.NewMockBusinessClient(t),
		ledger:   mocks.NewMockRevocationLedger(t),
		creds:    credential.NewStore(bcrypt.MinCost),
	}
	h.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	tokens, err := token.NewManager(
		token.Options{Algorithm: "RS256", TTL: time.Hour, Issuer: "account-service", Keys: accessKeys},
		token.Options{Algorithm: "RS256", TTL: 60 * 24 * time.Hour, Issuer: "account-service", Keys: refreshKeys},
		h.ledger, zap.NewNop(),
	)
	require.NoError(t, err)
	h.tokens = tokens

	grants, err := rbac.DefaultGrants()
	require.NoError(t, err)

	deps := Dependencies{
		Users:             h.users,
		PhoneCodes:        h.phones,
		Credentials:       h.creds,
		Tokens:            tokens,
		Access:            rbac.New(grants),
		Mail:              h.mail,
		Events:            h.events,
		Business:          h.business,
		LoginHistoryLimit: 20,
		PhoneCodeTTL:      10 * time.Minute,
	}
	h.auth = NewAuthService(deps, zap.NewNop())
	h.user = NewUserService(deps, zap.NewNop())
	return h
}

func generateKeyPair(t *testing.T) token.KeyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return token.KeyPair{Private: priv, Public: &priv.PublicKey}
}

// storedUser returns a persisted-looking user whose password is password.
func (h *harness) storedUser(t *testing.T, role, password string) *models.User {
	t.Helper()
	hash, err := h.creds.Hash(password)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Username:     "stored_" + randomHex(6),
		Email:        "stored@example.com",
		PasswordHash: hash,
		Role:         role,
		UserStatus:   models.StatusNormal,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func principalFor(user *models.User) *models.Principal {
	return &models.Principal{User: user, Claims: &models.Claims{UserID: user.ID, Role: user.Role}}
}
