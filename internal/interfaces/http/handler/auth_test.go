package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appidentity "github.com/fleetrent/backend/internal/application/identity"
	"github.com/fleetrent/backend/internal/domain/identity"
	"github.com/fleetrent/backend/internal/domain/shared"
	"github.com/fleetrent/backend/internal/infrastructure/auth"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	httphandler "github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	byUsername map[string]*identity.User
	drivers    []identity.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byUsername: map[string]*identity.User{}}
}

func (r *stubUserRepo) Save(_ context.Context, user *identity.User) error {
	r.byUsername[user.Username] = user
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	for _, user := range r.byUsername {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	return r.byUsername[username], nil
}

func (r *stubUserRepo) FindActiveDrivers(_ context.Context) ([]identity.User, error) {
	return r.drivers, nil
}

func (r *stubUserRepo) List(_ context.Context, _ *identity.Role, _ shared.Filter) (*shared.Paginated[identity.User], error) {
	return &shared.Paginated[identity.User]{}, nil
}

func (r *stubUserRepo) Delete(_ context.Context, _ uuid.UUID) error {
	return nil
}

type authFixture struct {
	router   *gin.Engine
	userRepo *stubUserRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret",
		RefreshSecret:          "test-refresh-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "fleetrent-test",
	})
	blacklist := auth.NewMemoryTokenBlacklist()
	userRepo := newStubUserRepo()

	service := appidentity.NewAuthService(userRepo, jwtService, blacklist, nopRecorder{}, nil)

	router := gin.New()
	h := httphandler.NewAuthHandler(service)
	router.POST("/api/v1/auth/login", h.Login)
	router.POST("/api/v1/auth/refresh", h.Refresh)
	router.POST("/api/v1/auth/logout", h.Logout)

	return &authFixture{router: router, userRepo: userRepo}
}

func (f *authFixture) postJSON(t *testing.T, path string, payload interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *authFixture) seedDriver(t *testing.T, username, password string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, password, identity.RoleDriver)
	require.NoError(t, err)
	require.NoError(t, f.userRepo.Save(t.Context(), user))
	return user
}

func TestAuthLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedDriver(t, "carlos", "s3cret-pass")

	rec := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos",
		"password": "s3cret-pass",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]interface{})
	token := data["token"].(map[string]interface{})
	assert.NotEmpty(t, token["access_token"])
	assert.NotEmpty(t, token["refresh_token"])

	respUser := data["user"].(map[string]interface{})
	assert.Equal(t, user.ID.String(), respUser["id"])
	assert.Equal(t, "driver", respUser["role"])
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedDriver(t, "carlos", "s3cret-pass")

	rec := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos",
		"password": "wrong-pass",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
}

func TestAuthLogin_UnknownUserSameError(t *testing.T) {
	f := newAuthFixture(t)
	f.seedDriver(t, "carlos", "s3cret-pass")

	wrongPass := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos", "password": "wrong-pass",
	}, nil)
	unknownUser := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "nobody", "password": "wrong-pass",
	}, nil)

	assert.Equal(t, wrongPass.Code, unknownUser.Code)
	wrongErr := decodeBody(t, wrongPass)["error"].(map[string]interface{})
	unknownErr := decodeBody(t, unknownUser)["error"].(map[string]interface{})
	assert.Equal(t, wrongErr["message"], unknownErr["message"])
}

func TestAuthLogin_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.postJSON(t, "/api/v1/auth/login", gin.H{"username": "carlos"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRefresh_RoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	f.seedDriver(t, "carlos", "s3cret-pass")

	login := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos", "password": "s3cret-pass",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	token := decodeBody(t, login)["data"].(map[string]interface{})["token"].(map[string]interface{})

	rec := f.postJSON(t, "/api/v1/auth/refresh", gin.H{
		"refresh_token": token["refresh_token"],
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	refreshed := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.NotEmpty(t, refreshed["access_token"])
}

func TestAuthRefresh_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.seedDriver(t, "carlos", "s3cret-pass")

	login := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos", "password": "s3cret-pass",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	token := decodeBody(t, login)["data"].(map[string]interface{})["token"].(map[string]interface{})

	rec := f.postJSON(t, "/api/v1/auth/refresh", gin.H{
		"refresh_token": token["access_token"],
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogout(t *testing.T) {
	f := newAuthFixture(t)
	f.seedDriver(t, "carlos", "s3cret-pass")

	login := f.postJSON(t, "/api/v1/auth/login", gin.H{
		"username": "carlos", "password": "s3cret-pass",
	}, nil)
	require.Equal(t, http.StatusOK, login.Code)
	token := decodeBody(t, login)["data"].(map[string]interface{})["token"].(map[string]interface{})

	rec := f.postJSON(t, "/api/v1/auth/logout", nil, map[string]string{
		"Authorization": "Bearer " + token["access_token"].(string),
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	missing := f.postJSON(t, "/api/v1/auth/logout", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, missing.Code)
}
