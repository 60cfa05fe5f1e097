package auth

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("secret")

	t.Run("round trip", func(t *testing.T) {
		tok, err := v.Sign("user-1", time.Hour)
		require.NoError(t, err)

		user, err := v.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("user_id claim", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-2",
			"name":    "Ada",
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		user, err := v.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "user-2", user.ID)
		assert.Equal(t, "Ada", user.DisplayName)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewTokenVerifier("other").Sign("user-1", time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := v.Sign("user-1", -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("no subject", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"x": 1}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := v.Verify("")
		assert.Error(t, err)
	})
}

func TestHub_OnAuthChange(t *testing.T) {
	hub := NewHub(&User{ID: "u1"})

	var seen []string
	unsubscribe := hub.OnAuthChange(func(u *User) {
		if u == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, u.ID)
	})
	assert.Equal(t, []string{"u1"}, seen)
	assert.Equal(t, 1, hub.Subscribers())

	hub.SetUser(nil)
	hub.SetUser(&User{ID: "u2"})
	assert.Equal(t, []string{"u1", "", "u2"}, seen)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers())

	hub.SetUser(&User{ID: "u3"})
	assert.Len(t, seen, 3)
}
