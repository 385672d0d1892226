package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, size)

		other, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, other)
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestTokensEqual(t *testing.T) {
	tests := []struct {
		name                string
		presented, expected string
		want                bool
	}{
		{"match", "bootstrap-secret", "bootstrap-secret", true},
		{"mismatch", "bootstrap-secreT", "bootstrap-secret", false},
		{"prefix", "bootstrap", "bootstrap-secret", false},
		{"empty presented", "", "bootstrap-secret", false},
		{"empty expected", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TokensEqual(tt.presented, tt.expected))
		})
	}
}
