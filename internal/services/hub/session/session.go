// Package session reads the learner identity from the access token issued by
// the backend's one-time password login.
package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/fieldschool/internal/platform/errors"
)

// Session is the identity carried by an access token.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type accessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FromAccessToken extracts the subject and expiry from token. The signature
// is not checked here; the backend rejects forged tokens on every request.
func FromAccessToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperrors.New(apperrors.CodeSessionTokenInvalid, "access token is required")
	}
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeSessionTokenInvalid, "parse access token", err)
	}
	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return Session{}, apperrors.New(apperrors.CodeSessionUserMissing, "access token has no subject")
	}
	s := Session{UserID: userID, Email: strings.TrimSpace(claims.Email)}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return s, nil
}

// Expired reports whether the token had expired at now. Tokens without an
// expiry never expire.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
