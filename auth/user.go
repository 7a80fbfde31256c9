// Package auth holds the signed-in identity: decoding Google ID tokens,
// minting guest identities and remembering who is signed in.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// guestTTL matches the lifetime of a Google ID token
const guestTTL = 24 * time.Hour

var (
	ErrEmptyToken       = errors.New("ID token is empty")
	ErrAudienceMismatch = errors.New("ID token was issued for a different client")
	ErrMissingSubject   = errors.New("ID token has no subject")
	ErrTokenExpired     = errors.New("ID token has expired")
)

// User is the identity record persisted under the google_user key
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
	Sub     string `json:"sub"`
	Exp     int64  `json:"exp"`
}

// googleClaims is the part of a Google ID token the client reads
type googleClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// ParseIDToken reads the identity out of a Google ID token. The signature is
// not checked: the token only names the user to the backend, which performs
// its own verification. When clientID is set the token's audience must
// include it. An expired token is rejected.
func ParseIDToken(token, clientID string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrEmptyToken
	}

	var claims googleClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return User{}, fmt.Errorf("failed to decode ID token: %w", err)
	}

	if clientID != "" && !slices.Contains(claims.Audience, clientID) {
		return User{}, ErrAudienceMismatch
	}
	if claims.Subject == "" {
		return User{}, ErrMissingSubject
	}

	user := User{
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
		Sub:     claims.Subject,
	}
	if claims.ExpiresAt != nil {
		user.Exp = claims.ExpiresAt.Unix()
	}
	if user.Expired(time.Now()) {
		return User{}, ErrTokenExpired
	}
	if user.Name == "" {
		user.Name = user.Email
	}

	return user, nil
}

// Guest mints a local identity valid for one day
func Guest(now time.Time) User {
	ms := now.UnixMilli()
	return User{
		Name:  "Guest User",
		Email: fmt.Sprintf("guest_%d@local.dev", ms),
		Sub:   fmt.Sprintf("guest_%d", ms),
		Exp:   now.Add(guestTTL).Unix(),
	}
}

// Expired reports whether the identity's lifetime has passed.
// A zero Exp never expires.
func (u User) Expired(now time.Time) bool {
	return u.Exp != 0 && now.Unix() >= u.Exp
}

func (u User) IsGuest() bool {
	return strings.HasPrefix(u.Sub, "guest_")
}

// Initials returns up to two letters for the sidebar avatar
func (u User) Initials() string {
	var out []rune
	for _, word := range strings.Fields(u.Name) {
		out = append(out, []rune(word)[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return strings.ToUpper(string(out))
}
