package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from an access token without verifying it.
// It is for display only; the server stays the sole judge of validity.
type TokenInfo struct {
	UserID    string
	TokenType string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ExpiresIn returns the time left until expiry relative to now, or 0 if the
// token carries no expiry or has already expired.
func (ti TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if ti.ExpiresAt.IsZero() || !ti.ExpiresAt.After(now) {
		return 0
	}
	return ti.ExpiresAt.Sub(now)
}

type accessClaims struct {
	UserID    any    `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of a JWT without checking its signature.
func InspectToken(token string) (TokenInfo, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("session.InspectToken: %w", err)
	}

	info := TokenInfo{TokenType: claims.TokenType}
	switch id := claims.UserID.(type) {
	case float64:
		info.UserID = fmt.Sprintf("%.0f", id)
	case string:
		info.UserID = id
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// TokenInfo inspects the current access token. ok is false when there is no
// token or it cannot be decoded.
func (s *Session) TokenInfo() (TokenInfo, bool) {
	tok := s.AccessToken()
	if tok == "" {
		return TokenInfo{}, false
	}
	info, err := InspectToken(tok)
	if err != nil {
		s.logger.Debug("inspect access token", "err", err)
		return TokenInfo{}, false
	}
	return info, true
}
