package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试用低成本参数
var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestGenerateFromPassword_Format(t *testing.T) {
	hash, err := GenerateFromPassword("mysecretpassword123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=2,p=4$"))
	assert.False(t, NeedsRehash(hash))
}

func TestGenerateFromPassword_DifferentHashes(t *testing.T) {
	hash1, err := GenerateWithParams("samepassword123", testParams)
	require.NoError(t, err)
	hash2, err := GenerateWithParams("samepassword123", testParams)
	require.NoError(t, err)

	// 盐值不同
	assert.NotEqual(t, hash1, hash2)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	passwords := []string{
		"short",
		"a very long password with many characters and symbols !@#$%^&*()",
		"密码测试",
	}

	for _, password := range passwords {
		hash, err := GenerateWithParams(password, testParams)
		require.NoError(t, err)

		match, err := ComparePasswordAndHash(password, hash)
		require.NoError(t, err)
		assert.True(t, match, "password: %s", password)

		match, err = ComparePasswordAndHash(password+"wrong", hash)
		require.NoError(t, err)
		assert.False(t, match, "password: %s", password)

		assert.True(t, NeedsRehash(hash))
	}
}

func TestComparePasswordAndHash_InvalidFormat(t *testing.T) {
	invalid := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=abc,t=2,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=4$!!!invalid!!!$!!!invalid!!!",
	}
	for _, h := range invalid {
		match, err := ComparePasswordAndHash("password", h)
		assert.Error(t, err, "hash %q", h)
		assert.False(t, match)
		assert.True(t, NeedsRehash(h))
	}
}
