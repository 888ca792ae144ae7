package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "Sunlit!Morning", nil},
		{"valid with digits", "Abcdef1!", nil},
		{"too short", "Ab!c", ErrPasswordTooShort},
		{"no uppercase", "sunlit!morning", ErrPasswordNoUpper},
		{"no lowercase", "SUNLIT!MORNING", ErrPasswordNoLower},
		{"no symbol", "SunlitMorning1", ErrPasswordNoSymbol},
		{"empty", "", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Sunlit!Morning")
	require.NoError(t, err)
	assert.NotEqual(t, "Sunlit!Morning", hash)

	assert.True(t, CheckPasswordHash("Sunlit!Morning", hash))
	assert.False(t, CheckPasswordHash("Wrong!Password", hash))
	assert.False(t, CheckPasswordHash("Sunlit!Morning", "not-a-hash"))
}

func TestGenerateRandomToken(t *testing.T) {
	a, err := GenerateRandomToken()
	require.NoError(t, err)
	b, err := GenerateRandomToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
