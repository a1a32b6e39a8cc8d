package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/analytics/models"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	op := &models.Operator{ID: 12, Email: "ops@example.com"}

	token, err := GenerateJWT(secret, op, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(secret, token)
	require.NoError(t, err)
	assert.Equal(t, 12, claims.OperatorID)
	assert.Equal(t, "ops@example.com", claims.Email)
}

func TestJWTRejectsWrongSecretAndExpiry(t *testing.T) {
	op := &models.Operator{ID: 1, Email: "a@b.c"}

	token, err := GenerateJWT([]byte("one"), op, time.Hour)
	require.NoError(t, err)
	_, err = ValidateJWT([]byte("two"), token)
	assert.Error(t, err)

	expired, err := GenerateJWT([]byte("one"), op, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateJWT([]byte("one"), expired)
	assert.Error(t, err)
}

func TestReferrerHost(t *testing.T) {
	host, err := ReferrerHost("https://www.google.com/search?q=portfolio")
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", host)

	host, err = ReferrerHost("http://localhost:3001/index.html")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)

	for _, bad := range []string{"not a url", "/relative/path", "http://[::1", "mailto:someone"} {
		_, err := ReferrerHost(bad)
		assert.Error(t, err, bad)
	}
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "visitor_...", TruncateID("visitor_1700000000_abc", 8))
	assert.Equal(t, "v1...", TruncateID("v1", 8))
	assert.Equal(t, "...", TruncateID("", 8))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:01.000Z", FormatMillis(1000))
	assert.Equal(t, "2023-11-14T22:13:20.123Z", FormatMillis(1700000000123))
}
