// Package auth issues and verifies seat tokens. A seat token lets a client
// that lost its connection reclaim its side of a game.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/chessofcards/engine"
)

// ErrInvalidToken covers every token that fails to verify.
var ErrInvalidToken = errors.New("auth: invalid seat token")

const issuer = "chessofcards"

// SeatClaims binds a token to one side of one match. The code finds the
// match; MatchID proves it is the same one.
type SeatClaims struct {
	Code    string      `json:"code"`
	MatchID uuid.UUID   `json:"mid"`
	Side    engine.Side `json:"side"`
	jwt.RegisteredClaims
}

// Seats signs and parses seat tokens with an HMAC secret.
type Seats struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSeats returns a signer. Tokens outlive any reasonable game by ttl.
func NewSeats(secret []byte, ttl time.Duration) *Seats {
	return &Seats{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for side of the match matchID, listed under code.
func (s *Seats) Issue(code string, matchID uuid.UUID, side engine.Side, playerID string) (string, error) {
	now := s.now()
	claims := SeatClaims{
		Code:    code,
		MatchID: matchID,
		Side:    side,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   playerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign seat token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (s *Seats) Parse(token string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Code == "" || claims.MatchID == uuid.Nil || (claims.Side != engine.Host && claims.Side != engine.Guest) {
		return nil, fmt.Errorf("%w: missing seat", ErrInvalidToken)
	}
	return claims, nil
}
