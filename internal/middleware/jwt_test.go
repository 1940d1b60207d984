package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sekolahku/psb-api/internal/models"
	"github.com/sekolahku/psb-api/internal/service"
)

type jwtUserStore struct {
	users map[string]*models.User
}

func (s *jwtUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *jwtUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *jwtUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error { return nil }
func (s *jwtUserStore) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	return nil
}
func (s *jwtUserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error { return nil }
func (s *jwtUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return nil
}
func (s *jwtUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return nil, sql.ErrNoRows
}
func (s *jwtUserStore) RevokeRefreshToken(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (s *jwtUserStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func newJWTFixture(t *testing.T) (*service.AuthService, *jwtUserStore, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia1"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &jwtUserStore{users: map[string]*models.User{
		"user-1": {
			ID:           "user-1",
			Email:        "admin@sekolah.sch.id",
			PasswordHash: string(hash),
			FullName:     "Admin Utama",
			Role:         models.RoleAdmin,
			Active:       true,
		},
	}}
	authService := service.NewAuthService(store, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
	})

	resp, err := authService.Login(context.Background(), models.LoginRequest{
		Email:    "admin@sekolah.sch.id",
		Password: "rahasia1",
	})
	require.NoError(t, err)
	return authService, store, resp.AccessToken
}

func performAuthenticated(authService *service.AuthService, store *jwtUserStore, header string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWT(authService, store), func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddlewareAllowsValidToken(t *testing.T) {
	authService, store, token := newJWTFixture(t)

	w := performAuthenticated(authService, store, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	authService, store, _ := newJWTFixture(t)

	w := performAuthenticated(authService, store, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	authService, store, token := newJWTFixture(t)

	w := performAuthenticated(authService, store, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsGarbageToken(t *testing.T) {
	authService, store, _ := newJWTFixture(t)

	w := performAuthenticated(authService, store, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Deactivation takes effect immediately even while the token is valid.
func TestJWTMiddlewareRejectsDeactivatedAccount(t *testing.T) {
	authService, store, token := newJWTFixture(t)
	store.users["user-1"].Active = false

	w := performAuthenticated(authService, store, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestJWTMiddlewareRejectsDeletedAccount(t *testing.T) {
	authService, store, token := newJWTFixture(t)
	delete(store.users, "user-1")

	w := performAuthenticated(authService, store, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
