// internal/common/auth/token.go
package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// User is the authenticated requester.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// TokenVerifier checks HS256 auth tokens.
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), now: time.Now}
}

// Verify parses tokenString and returns the user named by its "sub" or "user_id" claim.
func (v *TokenVerifier) Verify(tokenString string) (*User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("empty token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	user := &User{}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		user.ID = sub
	} else if uid, ok := claims["user_id"].(string); ok && uid != "" {
		user.ID = uid
	} else {
		return nil, fmt.Errorf("token has no subject")
	}
	if name, ok := claims["name"].(string); ok {
		user.DisplayName = name
	}
	return user, nil
}

// Sign issues a token for userID. Used by tooling and tests; sign-in lives elsewhere.
func (v *TokenVerifier) Sign(userID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": v.now().Unix(),
		"exp": v.now().Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}
