package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	requestID := uuid.New()
	doctorID := uuid.New()

	signed, err := svc.GenerateAcceptToken(requestID, doctorID, "email_link")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.ValidateAcceptToken(signed)
	require.NoError(t, err)
	assert.Equal(t, requestID, claims.RequestID)
	assert.Equal(t, doctorID, claims.DoctorID)
	assert.Equal(t, "email_link", claims.Channel)
}

func TestAcceptTokenWrongSecret(t *testing.T) {
	signed, err := NewService("secret-a", time.Hour).
		GenerateAcceptToken(uuid.New(), uuid.New(), "whatsapp_button")
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).ValidateAcceptToken(signed)
	assert.Error(t, err)
}

func TestAcceptTokenExpired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute)
	signed, err := svc.GenerateAcceptToken(uuid.New(), uuid.New(), "email_link")
	require.NoError(t, err)

	_, err = svc.ValidateAcceptToken(signed)
	assert.Error(t, err)
}

func TestAcceptTokenGarbage(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	_, err := svc.ValidateAcceptToken("not-a-token")
	assert.Error(t, err)
}
