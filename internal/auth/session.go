// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SeatClaims identifies the seat a token grants control of.
type SeatClaims struct {
	PlayerID  string
	SessionID string
}

// Issuer signs and verifies seat tokens. A seat token is an EdDSA JWT with sub = player id,
// sid = session id and a random jti, so two tokens for the same seat never collide.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewIssuer generates a fresh ed25519 key pair. A ttl of 0 issues tokens without an exp claim.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// ParseTTL reads a TOKEN_EXPIRE_TIME style value: "", "0" and "never" mean no expiry.
func ParseTTL(s string) (time.Duration, error) {
	if s == "" || s == "0" || s == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Issue creates a signed seat token.
func (i *Issuer) Issue(playerID, sessionID string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": playerID,
		"sid": sessionID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
	}
	if i.ttl > 0 {
		claims["exp"] = now.Add(i.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// Verify checks a seat token and returns its claims.
func (i *Issuer) Verify(tokenString string) (SeatClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	})
	if err != nil {
		return SeatClaims{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return SeatClaims{}, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return SeatClaims{}, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return SeatClaims{}, fmt.Errorf("missing sub in jwt")
	}
	sid, ok := claims["sid"].(string)
	if !ok {
		return SeatClaims{}, fmt.Errorf("missing sid in jwt")
	}
	return SeatClaims{PlayerID: sub, SessionID: sid}, nil
}
