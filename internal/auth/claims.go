package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the caller identity for staff tokens and, for kiosk
// terminal tokens, the location the terminal is bolted to. Tokens are
// issued by the operator's provisioning tooling, not by this service.
type Claims struct {
	UserID             string `json:"user_id"`
	Role               string `json:"role,omitempty"`
	TerminalLocationID string `json:"terminal_location_id,omitempty"`
	jwt.RegisteredClaims
}

// Sign produces an HS256 token for the given claims. Exposed for
// provisioning scripts and tests.
func Sign(secret string, claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
