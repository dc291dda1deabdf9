package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/larkspur-bakery/storefront/internal/shared"
	_ "github.com/larkspur-bakery/storefront/testing"
)

const testSecret = "admin-secret-admin-secret-admin-secret"

type stubRepo struct {
	user   *User
	logins []int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	s.logins = append(s.logins, id)
	return nil
}

func newUser(t *testing.T, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("sourdough-starter"), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{ID: 7, Email: "baker@larkspur.local", PasswordHash: string(hash), IsActive: active}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	token, expires, err := issuer.Issue(&User{ID: 7, Email: "baker@larkspur.local"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "baker@larkspur.local", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.NotNil(t, claims.IssuedAt)
}

func TestTokenRejections(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	user := &User{ID: 7, Email: "baker@larkspur.local"}

	expiredIssuer := NewTokenIssuer(testSecret, time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue(user)
	require.NoError(t, err)
	_, err = issuer.Verify(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	foreign, _, err := NewTokenIssuer(strings.Repeat("x", 40), time.Hour).Issue(user)
	require.NoError(t, err)
	_, err = issuer.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "7"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = issuer.Verify(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	repo := &stubRepo{user: newUser(t, true)}
	svc := NewService(repo, NewTokenIssuer(testSecret, time.Hour), nil)

	user, err := svc.Authenticate(context.Background(), " Baker@Larkspur.local ", "sourdough-starter")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)

	_, err = svc.Authenticate(context.Background(), "baker@larkspur.local", "wrong-password")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@larkspur.local", "sourdough-starter")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	repo.user.IsActive = false
	_, err = svc.Authenticate(context.Background(), "baker@larkspur.local", "sourdough-starter")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

type brokenRepo struct{}

func (brokenRepo) FindByEmail(context.Context, string) (*User, error) {
	return nil, errors.New("connection refused")
}

func (brokenRepo) RecordLogin(context.Context, int64, time.Time) error { return nil }

func TestAuthenticateSurfacesStoreErrors(t *testing.T) {
	svc := NewService(brokenRepo{}, NewTokenIssuer(testSecret, time.Hour), nil)
	_, err := svc.Authenticate(context.Background(), "baker@larkspur.local", "sourdough-starter")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("sourdough-starter")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("sourdough-starter")))
}

func newAdminRouter(t *testing.T, repo *stubRepo) (http.Handler, *TokenIssuer) {
	t.Helper()
	tokens := NewTokenIssuer(testSecret, time.Hour)
	h := NewHandler(nil, NewService(repo, tokens, nil))
	r := chi.NewRouter()
	r.Route("/api/admin", func(r chi.Router) {
		h.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(Middleware(tokens, nil))
			h.MountSessionRoutes(r)
			r.Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(Actor(r)))
			})
		})
	})
	return r, tokens
}

func TestLoginAndBearerAccess(t *testing.T) {
	repo := &stubRepo{user: newUser(t, true)}
	router, _ := newAdminRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"email":"baker@larkspur.local","password":"sourdough-starter"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body.TokenType)
	require.NotEmpty(t, body.Token)
	assert.Equal(t, []int64{7}, repo.logins)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "baker@larkspur.local", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	req.Header.Set("Authorization", "bearer "+body.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"7"`)
}

func TestLoginFailures(t *testing.T) {
	router, _ := newAdminRouter(t, &stubRepo{user: newUser(t, true)})

	cases := []struct {
		body   string
		status int
	}{
		{`{"email":"baker@larkspur.local","password":"not-the-password"}`, http.StatusUnauthorized},
		{`{"email":"baker@larkspur.local"}`, http.StatusBadRequest},
		{`{"email":"nope","password":"sourdough-starter"}`, http.StatusBadRequest},
		{`{"email":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.body)
	}
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	router, _ := newAdminRouter(t, &stubRepo{})

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer nonsense"} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	}
}
