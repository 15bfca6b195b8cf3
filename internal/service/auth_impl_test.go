package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"account-service/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testClient = ClientInfo{Agent: "Mozilla/5.0", IP: "203.0.113.7"}

func TestRegister_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.users.On("ExistsByEmail", ctx, "new.user@example.com").Return(false, nil).Once()
	h.users.On("ExistsByUsername", ctx, "new.user").Return(false, nil).Once()
	h.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "new.user" &&
			u.Role == models.RoleRegular &&
			u.UserStatus == models.StatusNormal &&
			strings.HasPrefix(u.PasswordHash, "$2") &&
			len(u.LastLogin) == 1 && u.LastLogin[0].IP == testClient.IP
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = uuid.New()
	}).Return(nil).Once()
	h.mail.On("SendEmailVerification", ctx, mock.AnythingOfType("*models.User"), mock.AnythingOfType("string")).Return(nil).Once()

	res, err := h.auth.Register(ctx, RegisterInput{
		Email:                " New.User@Example.com ",
		Password:             "s3cret-pass",
		PasswordConfirmation: "s3cret-pass",
		Client:               testClient,
	})
	require.NoError(t, err)

	claims, err := h.tokens.Verify(models.TokenTypeAccess, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleRegular, claims.Role)
	assert.False(t, claims.IsVerified)
	assert.Equal(t, res.User[models.AttrID], claims.UserID.String())

	_, err = h.tokens.Verify(models.TokenTypeRefresh, res.RefreshToken)
	require.NoError(t, err)

	assert.NotContains(t, res.User, models.AttrPassword)
	assert.Equal(t, "new.user@example.com", res.User[models.AttrEmail])
}

func TestRegister_PasswordMismatchTouchesNoStore(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.Register(context.Background(), RegisterInput{
		Email:                "a@example.com",
		Password:             "password-one",
		PasswordConfirmation: "password-two",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrPasswordMismatch))
	assert.True(t, errors.Is(err, models.ErrValidation))
	h.users.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	h.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	h := newHarness(t)
	long := strings.Repeat("p", models.MaxPasswordLength+8)

	_, err := h.auth.Register(context.Background(), RegisterInput{
		Email:                "long@example.com",
		Password:             long,
		PasswordConfirmation: long,
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	h.users.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything)
	h.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_EmailTaken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.On("ExistsByEmail", ctx, "taken@example.com").Return(true, nil).Once()

	_, err := h.auth.Register(ctx, RegisterInput{Email: "taken@example.com", Password: "password1", PasswordConfirmation: "password1"})
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRegister_UsernameCollisionGetsSuffix(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	suffixed := regexp.MustCompile(`^janeX[0-9a-f]{8}$`)

	h.users.On("ExistsByEmail", ctx, "jane@example.com").Return(false, nil).Once()
	h.users.On("ExistsByUsername", ctx, "jane").Return(true, nil).Once()
	h.users.On("ExistsByUsername", ctx, mock.MatchedBy(suffixed.MatchString)).Return(false, nil).Once()
	h.users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
		return suffixed.MatchString(u.Username)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = uuid.New()
	}).Return(nil).Once()
	h.mail.On("SendEmailVerification", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	res, err := h.auth.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "password1", PasswordConfirmation: "password1"})
	require.NoError(t, err)
	assert.Regexp(t, suffixed, res.User[models.AttrUsername])
}

func TestRegister_MailFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.users.On("ExistsByEmail", ctx, "bob@example.com").Return(false, nil).Once()
	h.users.On("ExistsByUsername", ctx, mock.Anything).Return(false, nil).Maybe()
	h.users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = uuid.New()
	}).Return(nil).Once()
	h.mail.On("SendEmailVerification", ctx, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	res, err := h.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "password1", PasswordConfirmation: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Len(t, res.User[models.AttrUsername], models.MinUsernameLength)
}

func TestRegister_StoreConflictSurfaces(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.users.On("ExistsByEmail", ctx, "race@example.com").Return(false, nil).Once()
	h.users.On("ExistsByUsername", ctx, "race").Return(false, nil).Once()
	h.users.On("Create", ctx, mock.Anything).Return(models.ErrEmailAlreadyExists).Once()

	_, err := h.auth.Register(ctx, RegisterInput{Email: "race@example.com", Password: "password1", PasswordConfirmation: "password1"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestLogin_AppendsHistoryAndTrims(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "correct-horse")
	for i := 0; i < 20; i++ {
		user.LastLogin = append(user.LastLogin, models.LoginEntry{Agent: "old", IP: "10.0.0.1", Time: time.Unix(int64(i), 0)})
	}
	hashBefore := user.PasswordHash

	h.users.On("GetByEmail", ctx, "stored@example.com").Return(user, nil).Once()
	h.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		last := u.LastLogin[len(u.LastLogin)-1]
		return len(u.LastLogin) == 20 && last.Agent == testClient.Agent && last.IP == testClient.IP
	})).Return(nil).Once()

	res, err := h.auth.Login(ctx, LoginInput{Email: "Stored@Example.com", Password: "correct-horse", Client: testClient})
	require.NoError(t, err)

	assert.Equal(t, hashBefore, user.PasswordHash, "login must not rehash the stored password")
	assert.Equal(t, time.Unix(1, 0), user.LastLogin[0].Time, "oldest entry is dropped")
	assert.Equal(t, user.ID.String(), res.User[models.AttrID])
	assert.NotContains(t, res.User, models.AttrPassword)

	claims, err := h.tokens.Verify(models.TokenTypeRefresh, res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLogin_BadPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "correct-horse")
	h.users.On("GetByEmail", ctx, "stored@example.com").Return(user, nil).Once()

	_, err := h.auth.Login(ctx, LoginInput{Email: "stored@example.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	h.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLogin_UnknownEmailLooksLikeBadPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, models.ErrUserNotFound).Once()

	_, err := h.auth.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}

func TestLogin_SuspendedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "correct-horse")
	user.UserStatus = models.StatusSuspended
	h.users.On("GetByEmail", ctx, "stored@example.com").Return(user, nil).Once()

	_, err := h.auth.Login(ctx, LoginInput{Email: "stored@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, models.ErrUserSuspended)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestLogout_SecondRevokeConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := uuid.New()

	refresh, err := h.tokens.Sign(models.TokenTypeRefresh, uid, models.RoleRegular, false)
	require.NoError(t, err)
	claims, err := h.tokens.Verify(models.TokenTypeRefresh, refresh)
	require.NoError(t, err)

	h.ledger.On("Insert", ctx, claims.TID).Return(models.RevokedToken{TID: claims.TID, CreatedAt: time.Now()}, nil).Once()
	h.ledger.On("Insert", ctx, claims.TID).Return(models.RevokedToken{}, models.ErrConflict).Once()

	require.NoError(t, h.auth.Logout(ctx, refresh))
	err = h.auth.Logout(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrAlreadyRevoked)
}

func TestLogout_RejectsAccessToken(t *testing.T) {
	h := newHarness(t)
	access, err := h.tokens.Sign(models.TokenTypeAccess, uuid.New(), models.RoleRegular, false)
	require.NoError(t, err)

	err = h.auth.Logout(context.Background(), access)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	h.ledger.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestRefresh_IssuesAccessFromCurrentUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "password1")

	refresh, err := h.tokens.Sign(models.TokenTypeRefresh, user.ID, models.RoleRegular, false)
	require.NoError(t, err)

	// Role and verification changed since the refresh token was issued.
	user.Role = models.RoleWriter
	user.IsVerified = true
	h.ledger.On("Exists", ctx, mock.AnythingOfType("string")).Return(false, nil).Once()
	h.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()

	access, err := h.auth.Refresh(ctx, refresh)
	require.NoError(t, err)

	claims, err := h.tokens.Verify(models.TokenTypeAccess, access)
	require.NoError(t, err)
	assert.Equal(t, models.RoleWriter, claims.Role)
	assert.True(t, claims.IsVerified)
}

func TestRefresh_RevokedToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	refresh, err := h.tokens.Sign(models.TokenTypeRefresh, uuid.New(), models.RoleRegular, false)
	require.NoError(t, err)
	h.ledger.On("Exists", ctx, mock.AnythingOfType("string")).Return(true, nil).Once()

	_, err = h.auth.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrTokenRevoked)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	h.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRefresh_UserGone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	uid := uuid.New()
	refresh, err := h.tokens.Sign(models.TokenTypeRefresh, uid, models.RoleRegular, false)
	require.NoError(t, err)
	h.ledger.On("Exists", ctx, mock.Anything).Return(false, nil).Once()
	h.users.On("GetByID", ctx, uid).Return(nil, models.ErrUserNotFound).Once()

	_, err = h.auth.Refresh(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthenticateBearer_AccessSkipsLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleAdmin, "password1")
	access, err := h.tokens.Sign(models.TokenTypeAccess, user.ID, user.Role, true)
	require.NoError(t, err)
	h.users.On("GetByID", ctx, user.ID).Return(user, nil).Once()

	p, err := h.auth.AuthenticateBearer(ctx, access, models.TokenTypeAccess)
	require.NoError(t, err)
	assert.Same(t, user, p.User)
	assert.Equal(t, user.ID, p.Claims.UserID)
	h.ledger.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestVerifyAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "password1")
	h.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool { return u.IsVerified })).Return(nil).Once()

	view, err := h.auth.VerifyAccount(ctx, principalFor(user))
	require.NoError(t, err)
	assert.Equal(t, true, view[models.AttrIsVerified])

	// Already verified: nothing to persist.
	_, err = h.auth.VerifyAccount(ctx, principalFor(user))
	require.NoError(t, err)
}

func TestSendChangePasswordEmail_UnknownEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, models.ErrUserNotFound).Once()

	err := h.auth.SendChangePasswordEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendChangePasswordEmail_MailsAccessToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "password1")
	h.users.On("GetByEmail", ctx, "stored@example.com").Return(user, nil).Once()

	var mailed string
	h.mail.On("SendChangePassword", ctx, user, mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		mailed = args.String(2)
	}).Return(nil).Once()

	require.NoError(t, h.auth.SendChangePasswordEmail(ctx, "stored@example.com"))
	claims, err := h.tokens.Verify(models.TokenTypeAccess, mailed)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestSendPhoneCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.storedUser(t, models.RoleRegular, "password1")
	sixDigits := mock.MatchedBy(regexp.MustCompile(`^\d{6}$`).MatchString)

	h.phones.On("Save", ctx, user.ID, "+15550100", sixDigits, 10*time.Minute).Return(nil).Once()
	h.mail.On("SendPhoneCode", ctx, "+15550100", sixDigits).Return(nil).Once()

	require.NoError(t, h.auth.SendPhoneCode(ctx, principalFor(user), " +15550100 "))
}

func TestRefreshTokenTTL(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 60*24*time.Hour, h.auth.RefreshTokenTTL())
}
