package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"account-service/internal/config"
	"account-service/internal/models"
	"account-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const accessToken = "access-token"

type testEnv struct {
	router *gin.Engine
	auth   *mockAuthService
	users  *mockUserService
}

func newTestEnv(t *testing.T, env string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: env, RefreshCookieKey: "refresh_token", CookieSecure: true}

	e := &testEnv{router: gin.New(), auth: &mockAuthService{}, users: &mockUserService{}}
	NewHandler(e.auth, e.users, cfg).RegisterRoutes(e.router, nil)
	t.Cleanup(func() {
		e.auth.AssertExpectations(t)
		e.users.AssertExpectations(t)
	})
	return e
}

func (e *testEnv) do(method, path, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signedIn makes accessToken authenticate as a user with role.
func (e *testEnv) signedIn(role string) (*models.Principal, http.Header) {
	user := &models.User{ID: uuid.New(), Username: "someone", Role: role, UserStatus: models.StatusNormal}
	p := &models.Principal{User: user, Claims: &models.Claims{UserID: user.ID, Role: role}}
	e.auth.On("AuthenticateBearer", mock.Anything, accessToken, models.TokenTypeAccess).Return(p, nil)
	return p, http.Header{"Authorization": {"Bearer " + accessToken}}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	return nil
}

func TestLogin_SetsCookieAndReturnsAccessToken(t *testing.T) {
	e := newTestEnv(t, "production")
	user := map[string]any{"id": "u-1", "email": "a@example.com"}
	e.auth.On("Login", mock.Anything, service.LoginInput{
		Email:    "a@example.com",
		Password: "password1",
		Client:   service.ClientInfo{Agent: "test-agent", IP: "198.51.100.9"},
	}).Return(&models.AuthResult{User: user, AccessToken: "acc", RefreshToken: "ref"}, nil).Once()

	w := e.do(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"password1"}`, http.Header{
		"User-Agent":      {"test-agent"},
		"X-Forwarded-For": {"198.51.100.9"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "acc", resp.Token)
	assert.Equal(t, "u-1", resp.User["id"])

	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "ref", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, 60*24*60*60, cookie.MaxAge)
}

func TestLogin_BadCredentials(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Login", mock.Anything, mock.Anything).Return(nil, models.ErrInvalidCredentials).Once()

	w := e.do(http.MethodPost, "/auth/login", `{"email":"a@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, models.ErrCodeWrongCredentials, resp.Code)
	assert.Empty(t, resp.Details)
	assert.Nil(t, refreshCookie(w))
}

func TestLogin_MalformedBody(t *testing.T) {
	e := newTestEnv(t, "production")
	w := e.do(http.MethodPost, "/auth/login", `{"email":`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	e.auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestErrorDetails_OnlyInDevelopment(t *testing.T) {
	for env, wantDetails := range map[string]bool{"development": true, "production": false} {
		e := newTestEnv(t, env)
		e.auth.On("Register", mock.Anything, mock.Anything).Return(nil, models.ErrPasswordMismatch).Once()

		w := e.do(http.MethodPost, "/user/register", `{"email":"a@example.com","password":"password1","passwordConfirmation":"password2"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, env)
		resp := decodeError(t, w)
		assert.Equal(t, models.ErrCodeValidation, resp.Code, env)
		assert.Equal(t, wantDetails, resp.Details != "", env)
	}
}

func TestUnknownErrorIs500(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("db exploded")).Once()

	w := e.do(http.MethodPost, "/user/register", `{"email":"a@example.com","password":"password1","passwordConfirmation":"password1"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, models.ErrCodeInternal, resp.Code)
	assert.NotContains(t, w.Body.String(), "db exploded")
}

func TestRegister_Created(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Register", mock.Anything, mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.Email == "new@example.com" && in.PasswordConfirmation == "password1"
	})).Return(&models.AuthResult{User: map[string]any{"id": "u-2"}, AccessToken: "acc", RefreshToken: "ref"}, nil).Once()

	w := e.do(http.MethodPost, "/user/register", `{"email":"new@example.com","password":"password1","passwordConfirmation":"password1"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, refreshCookie(w))
	assert.Equal(t, "ref", refreshCookie(w).Value)
}

func TestRegister_Conflict(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Register", mock.Anything, mock.Anything).Return(nil, models.ErrEmailAlreadyExists).Once()

	w := e.do(http.MethodPost, "/user/register", `{"email":"dup@example.com","password":"password1","passwordConfirmation":"password1"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrCodeDuplicateEmail, decodeError(t, w).Code)
}

func TestLogout_CookieThenConflict(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Logout", mock.Anything, "ref").Return(nil).Once()
	e.auth.On("Logout", mock.Anything, "ref").Return(models.ErrAlreadyRevoked).Once()
	cookie := http.Header{"Cookie": {"refresh_token=ref"}}

	w := e.do(http.MethodGet, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusNoContent, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	w = e.do(http.MethodGet, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrCodeAlreadyRevoked, decodeError(t, w).Code)
}

func TestLogout_BearerFallbackAndMissingToken(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Logout", mock.Anything, "ref-bearer").Return(nil).Once()

	w := e.do(http.MethodGet, "/auth/logout", "", http.Header{"Authorization": {"Bearer ref-bearer"}})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(http.MethodGet, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("Refresh", mock.Anything, "ref").Return("new-access", nil).Once()
	e.auth.On("Refresh", mock.Anything, "revoked").Return("", models.ErrTokenRevoked).Once()

	w := e.do(http.MethodGet, "/auth/token", "", http.Header{"Cookie": {"refresh_token=ref"}})
	require.Equal(t, http.StatusOK, w.Code)
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new-access", resp.Token)

	w = e.do(http.MethodGet, "/auth/token", "", http.Header{"Authorization": {"Bearer revoked"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeTokenInvalid, decodeError(t, w).Code)
}

func TestAuthMiddleware_RejectsMissingAndExpired(t *testing.T) {
	e := newTestEnv(t, "production")
	e.auth.On("AuthenticateBearer", mock.Anything, "stale", models.TokenTypeAccess).Return(nil, models.ErrTokenExpired).Once()

	w := e.do(http.MethodGet, "/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/user/me", "", http.Header{"Authorization": {"Token stale"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodGet, "/user/me", "", http.Header{"Authorization": {"Bearer stale"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeTokenExpired, decodeError(t, w).Code)
}

func TestGetMe(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	e.users.On("GetMe", mock.Anything, p, mock.AnythingOfType("service.ClientInfo")).Return(map[string]any{"id": p.User.ID.String()}, nil).Once()

	w := e.do(http.MethodGet, "/user/me", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	var resp userResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, p.User.ID.String(), resp.User["id"])
}

func TestGetUser_ForbiddenAndBadID(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	other := uuid.New()
	e.users.On("GetUser", mock.Anything, p, other, mock.Anything).Return(nil, models.ErrForbidden).Once()

	w := e.do(http.MethodGet, "/user/"+other.String(), "", auth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/user/not-a-uuid", "", auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByUsername_Public(t *testing.T) {
	e := newTestEnv(t, "production")
	e.users.On("GetByUsername", mock.Anything, "ada").Return(map[string]any{"username": "ada"}, nil).Once()
	e.users.On("GetByUsername", mock.Anything, "ghost").Return(nil, models.ErrUserNotFound).Once()

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/user/username/ada", "", nil).Code)
	w := e.do(http.MethodGet, "/user/username/ghost", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrCodeUserNotFound, decodeError(t, w).Code)
}

func TestUpdateProfile_PassesRawAttributes(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	e.users.On("UpdateProfile", mock.Anything, p, p.User.ID, mock.MatchedBy(func(attrs map[string]json.RawMessage) bool {
		return string(attrs["firstName"]) == `"Ada"` && string(attrs["role"]) == `"god"`
	})).Return(map[string]any{"firstName": "Ada"}, nil).Once()

	w := e.do(http.MethodPut, "/user/"+p.User.ID.String(), `{"firstName":"Ada","role":"god"}`, auth)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateProfile_ForeignID(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	other := uuid.New()
	e.users.On("UpdateProfile", mock.Anything, p, other, mock.Anything).Return(nil, models.ErrForbidden).Once()

	w := e.do(http.MethodPut, "/user/"+other.String(), `{"firstName":"Ada"}`, auth)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.ErrCodeForbidden, decodeError(t, w).Code)
}

func TestUserSubresources(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	id := p.User.ID
	base := "/user/" + id.String()

	e.users.On("UpdateUsername", mock.Anything, p, id, "taken").Return(nil, models.ErrUsernameTaken).Once()
	e.users.On("ChangePassword", mock.Anything, p, id, "password1", "password1").Return(nil).Once()
	e.users.On("UpdatePhone", mock.Anything, p, id, "+15550100", "000000").Return(nil, models.ErrInvalidPhoneCode).Once()
	e.users.On("ToggleFavor", mock.Anything, p, id, "biz-1").Return([]string{"biz-1"}, nil).Once()

	w := e.do(http.MethodPut, base+"/username", `{"username":"taken"}`, auth)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.ErrCodeDuplicateUsername, decodeError(t, w).Code)

	w = e.do(http.MethodPut, base+"/password", `{"password":"password1","passwordConfirmation":"password1"}`, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(http.MethodPut, base+"/phone", `{"phoneNumber":"+15550100","code":"000000"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, base+"/favors", `{"businessId":"biz-1"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	var favors favorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &favors))
	assert.Equal(t, []string{"biz-1"}, favors.Favors)
}

func TestMailAndPhoneEndpoints(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleRegular)
	e.auth.On("SendVerificationEmail", mock.Anything, p).Return(nil).Once()
	e.auth.On("SendChangePasswordEmail", mock.Anything, "nobody@example.com").Return(models.ErrUserNotFound).Once()
	e.auth.On("SendPhoneCode", mock.Anything, p, "+15550100").Return(nil).Once()
	e.auth.On("VerifyAccount", mock.Anything, p).Return(map[string]any{"isVerified": true}, nil).Once()

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPost, "/auth/mail/verify", "", auth).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/auth/mail/password", `{"email":"nobody@example.com"}`, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPost, "/auth/phone", `{"phoneNumber":"+15550100"}`, auth).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/user/verify", "", auth).Code)
}

func TestAdminListUsers(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleAdmin)
	filter := models.UserFilter{Role: "regular", Status: "normal", Search: "ann"}
	e.users.On("ListUsers", mock.Anything, p, filter, 40, 20).Return(&service.UserList{
		Users:      []map[string]any{{"id": "u-1"}},
		TotalCount: 41,
	}, nil).Once()

	w := e.do(http.MethodGet, "/admin/users?skip=40&limit=20&role=regular&status=normal&search=ann", "", auth)
	require.Equal(t, http.StatusOK, w.Code)
	var list service.UserList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 41, list.TotalCount)
	assert.Len(t, list.Users, 1)

	w = e.do(http.MethodGet, "/admin/users?limit=lots", "", auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEditUser(t *testing.T) {
	e := newTestEnv(t, "production")
	p, auth := e.signedIn(models.RoleAdmin)
	target := uuid.New()
	missing := uuid.New()
	e.users.On("EditUser", mock.Anything, p, target, mock.Anything).Return(nil).Once()
	e.users.On("EditUser", mock.Anything, p, missing, mock.Anything).Return(models.ErrUserNotFound).Once()

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPut, "/admin/users/"+target.String(), `{"role":"manager"}`, auth).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/admin/users/"+missing.String(), `{"role":"manager"}`, auth).Code)
}
