package signature

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		payload []byte
	}{
		{
			name:    "simple payload",
			secret:  "my-secret-key",
			payload: []byte(`{"event":"students.insert","record":{"id":1}}`),
		},
		{
			name:    "empty payload still signs",
			secret:  "my-secret-key",
			payload: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Sign(tt.secret, tt.payload)
			assert.True(t, strings.HasPrefix(sig, Prefix))
			assert.Len(t, sig, len(Prefix)+64)

			assert.True(t, Verify(tt.secret, tt.payload, sig), "signature should verify")
		})
	}
}

func TestSign_EmptySecretProducesNoSignature(t *testing.T) {
	sig := Sign("", []byte(`{"test":"data"}`))
	assert.Empty(t, sig, "an empty secret must not produce a digest")
}

func TestVerify(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"test":"data"}`)
	validSignature := Sign(secret, payload)

	tests := []struct {
		name      string
		secret    string
		payload   []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			secret:    secret,
			payload:   payload,
			signature: validSignature,
			expected:  true,
		},
		{
			name:      "invalid signature",
			secret:    secret,
			payload:   payload,
			signature: "sha256=invalid",
			expected:  false,
		},
		{
			name:      "wrong secret",
			secret:    "wrong-secret",
			payload:   payload,
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "modified payload",
			secret:    secret,
			payload:   []byte(`{"test":"modified"}`),
			signature: validSignature,
			expected:  false,
		},
		{
			name:      "empty secret never verifies",
			secret:    "",
			payload:   payload,
			signature: "",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Verify(tt.secret, tt.payload, tt.signature)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, s1, 64)

	s2, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	// Zero falls back to the default size.
	s3, err := GenerateSecret(0)
	require.NoError(t, err)
	assert.Len(t, s3, 64)
}
