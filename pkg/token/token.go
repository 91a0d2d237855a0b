package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AcceptClaims binds an accept action to one (request, doctor) pair and
// the channel the token was issued for. Channel-specific identity proof:
// a token delivered over email can only be replayed as an email accept.
type AcceptClaims struct {
	RequestID uuid.UUID `json:"request_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Channel   string    `json:"channel"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// GenerateAcceptToken issues a signed token embedding the accept action.
func (s *Service) GenerateAcceptToken(requestID, doctorID uuid.UUID, channel string) (string, error) {
	now := time.Now()
	claims := AcceptClaims{
		RequestID: requestID,
		DoctorID:  doctorID,
		Channel:   channel,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   doctorID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign accept token: %w", err)
	}
	return signed, nil
}

// ValidateAcceptToken parses and verifies a token, returning its claims.
func (s *Service) ValidateAcceptToken(tokenString string) (*AcceptClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AcceptClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid accept token: %w", err)
	}

	claims, ok := token.Claims.(*AcceptClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid accept token claims")
	}
	return claims, nil
}
