package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	// CSRFCookieName is the cookie carrying the server-side copy of the token.
	CSRFCookieName = "csrf-token"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf-token"
	// CSRFHeader is the request header carrying the CSRF token.
	CSRFHeader = "X-CSRF-Token"

	// MinCSRFSecretLength is the minimum accepted length of the signing secret.
	MinCSRFSecretLength = 32
	// DefaultCSRFMaxAge bounds the lifetime of the token cookie.
	DefaultCSRFMaxAge = time.Hour

	csrfPartBytes = 32
	csrfSeparator = ":"
)

// CSRFOption customises a CSRFManager.
type CSRFOption func(*CSRFManager)

// WithCSRFMaxAge sets the cookie lifetime. Non-positive values keep the
// default; positive values under one second make NewCSRFManager fail.
func WithCSRFMaxAge(d time.Duration) CSRFOption {
	return func(m *CSRFManager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithSecureCookie toggles the Secure attribute on the token cookie.
func WithSecureCookie(secure bool) CSRFOption {
	return func(m *CSRFManager) {
		m.secure = secure
	}
}

// CSRFManager issues and verifies double-submit CSRF tokens.
//
// A token has the form secret:nonce:signature where secret and nonce are
// independent random values and signature is HMAC-SHA256(key, secret+nonce).
// The manager holds no per-token state and is safe for concurrent use.
type CSRFManager struct {
	key    []byte
	maxAge time.Duration
	secure bool
}

// NewCSRFManager validates the secret and returns a CSRFManager.
func NewCSRFManager(secret string, opts ...CSRFOption) (*CSRFManager, error) {
	if secret == "" {
		return nil, ErrCSRFSecretMissing
	}
	if len(secret) < MinCSRFSecretLength {
		return nil, fmt.Errorf("%w: got %d characters, need %d", ErrCSRFSecretTooShort, len(secret), MinCSRFSecretLength)
	}
	m := &CSRFManager{
		key:    []byte(secret),
		maxAge: DefaultCSRFMaxAge,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxAge < time.Second {
		return nil, fmt.Errorf("%w: got %s", ErrCSRFMaxAgeTooShort, m.maxAge)
	}
	return m, nil
}

// IssueToken returns a freshly signed token.
func (m *CSRFManager) IssueToken() (string, error) {
	secretPart, err := randomHex(csrfPartBytes)
	if err != nil {
		return "", fmt.Errorf("csrf: read secret part: %w", err)
	}
	noncePart, err := randomHex(csrfPartBytes)
	if err != nil {
		return "", fmt.Errorf("csrf: read nonce part: %w", err)
	}
	return secretPart + csrfSeparator + noncePart + csrfSeparator + m.sign(secretPart, noncePart), nil
}

// ValidateToken reports whether submitted authorises a state-changing request.
// It never reveals which check failed.
func (m *CSRFManager) ValidateToken(submitted, cookie string) bool {
	if m == nil || submitted == "" || cookie == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(submitted), []byte(cookie)) != 1 {
		return false
	}
	parts := strings.Split(submitted, csrfSeparator)
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if part == "" {
			return false
		}
	}
	expected := m.sign(parts[0], parts[1])
	return hmac.Equal([]byte(expected), []byte(parts[2]))
}

// SetCookie writes the token cookie. The value must equal the token returned
// to the client in the response body.
func (m *CSRFManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// MaxAge exposes the configured cookie lifetime.
func (m *CSRFManager) MaxAge() time.Duration {
	return m.maxAge
}

// SubmittedToken extracts the client-submitted token from the request header,
// falling back to the form field for form posts.
func SubmittedToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeader); token != "" {
		return token
	}
	if IsFormPost(r) {
		return r.PostFormValue(CSRFFormField)
	}
	return ""
}

// IsFormPost reports whether the request body is urlencoded or multipart
// form data. Media types compare case-insensitively and ignore parameters.
func IsFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

// CookieToken returns the token stored in the request cookie, if any.
func CookieToken(r *http.Request) string {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (m *CSRFManager) sign(secretPart, noncePart string) string {
	mac := hmac.New(sha256.New, m.key)
	_, _ = mac.Write([]byte(secretPart))
	_, _ = mac.Write([]byte(noncePart))
	return hex.EncodeToString(mac.Sum(nil))
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
