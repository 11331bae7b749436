package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash(t *testing.T) {
	passwords := []string{"password123", "p@ssw0rd!@#$%^&*()", "short", "пароль-кириллицей"}
	for _, p := range passwords {
		hash, err := GetHash(p)
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, p, hash)
		assert.NoError(t, CompareHash(hash, p))
	}
}

func TestGetHash_TooLong(t *testing.T) {
	_, err := GetHash(strings.Repeat("a", 100))
	assert.Error(t, err)
}

func TestCompareHash(t *testing.T) {
	correctHash, err := GetHash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{name: "matching password", hash: correctHash, password: "correct_password"},
		{name: "wrong password", hash: correctHash, password: "wrong_password", wantErr: ErrMismatch},
		{name: "empty password", hash: correctHash, password: "", wantErr: ErrMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareHash(tt.hash, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompareHash_BrokenHash(t *testing.T) {
	err := CompareHash("not-a-bcrypt-hash", "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}
