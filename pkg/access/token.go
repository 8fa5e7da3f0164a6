package access

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/streamvault/mediagate/pkg/domain"
)

// Refresh tokens are HS256 JWTs binding (sessionId, userId, issuedAt). The
// signature makes the binding unforgeable; the token lifetime is enforced
// independently of the session ceiling.

func (m *SessionManager) issueRefreshToken(sessionID uuid.UUID, userID string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        sessionID.String(),
		Subject:   userID,
		Issuer:    m.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.RefreshTokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.cfg.Secret)
}

// verifyRefreshToken checks the token's signature, lifetime, and binding to
// the claimed session and user.
func (m *SessionManager) verifyRefreshToken(tokenString string, sessionID uuid.UUID, userID string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidRefreshToken
		}
		return m.cfg.Secret, nil
	}, jwt.WithIssuer(m.cfg.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrRefreshTokenExpired
		}
		return domain.ErrInvalidRefreshToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return domain.ErrInvalidRefreshToken
	}
	if claims.ID != sessionID.String() || claims.Subject != userID {
		return domain.ErrInvalidRefreshToken
	}
	return nil
}
