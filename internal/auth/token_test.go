package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	token, err := codec.Issue("abc123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestCodecRejectsExpired(t *testing.T) {
	codec := NewCodec("test-secret", -time.Minute)

	token, err := codec.Issue("abc123")
	require.NoError(t, err)

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "expired")
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	token, err := NewCodec("secret-a", time.Hour).Issue("abc123")
	require.NoError(t, err)

	_, err = NewCodec("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodecRejectsMalformed(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestCodecRejectsTampered(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	token, err := codec.Issue("abc123")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = codec.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
