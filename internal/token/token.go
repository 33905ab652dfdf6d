package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "quizdrill"

var ErrInvalid = errors.New("invalid token")

// Manager issues and verifies the HS256 bearer tokens that carry a
// logged-in user's identity between requests.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Issue signs a token for the user, valid for the configured TTL.
func (m *Manager) Issue(userID, username string, now time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify parses the token and returns the user id it was issued for.
func (m *Manager) Verify(tokenString string) (userID string, err error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !parsed.Valid || c.Subject == "" {
		return "", ErrInvalid
	}
	return c.Subject, nil
}
