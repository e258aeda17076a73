package account

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_UsesConfiguredCost(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost + 1)

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestPasswordHasher_Verify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	longest := strings.Repeat("p", MaxPasswordLength)

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	longHash, err := hasher.Hash(longest)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", "secret1", hash, true},
		{"wrong password", "secret2", hash, false},
		{"empty password", "", hash, false},
		{"case differs", "SECRET1", hash, false},
		{"unicode password is distinct", "sécret1", hash, false},
		{"longest allowed password", longest, longHash, true},
		{"not a hash", "secret1", "plain-text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasher.Verify(tt.password, tt.hash))
		})
	}
}

func TestPasswordHasher_SaltsEveryHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("rootpass")
	require.NoError(t, err)
	second, err := hasher.Hash("rootpass")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("rootpass", first))
	assert.True(t, hasher.Verify("rootpass", second))
}

func TestPasswordHasher_RejectsOutOfRangeCost(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MaxCost + 1).Hash("secret1")
	assert.Error(t, err)
}
