package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fastCodec = PasswordCodec{Iterations: 1000, SaltLength: 8}

func TestHashFormat(t *testing.T) {
	digest, err := fastCodec.Hash("secret")
	require.NoError(t, err)

	parts := strings.Split(digest, "$")
	require.Len(t, parts, 3)
	assert.Equal(t, "pbkdf2:sha256:1000", parts[0])
	assert.Len(t, parts[1], 8)
	for _, r := range parts[1] {
		assert.True(t, strings.ContainsRune(saltChars, r), "unexpected salt rune %q", r)
	}
	assert.Len(t, parts[2], 64)
}

func TestHashVerifyRoundTrip(t *testing.T) {
	first, err := fastCodec.Hash("correct horse")
	require.NoError(t, err)
	second, err := fastCodec.Hash("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, fastCodec.Verify(first, "correct horse"))
	assert.True(t, fastCodec.Verify(second, "correct horse"))
	assert.False(t, fastCodec.Verify(first, "correct horse!"))
}

func TestEmptyPasswordIsAccepted(t *testing.T) {
	digest, err := fastCodec.Hash("")
	require.NoError(t, err)
	assert.True(t, fastCodec.Verify(digest, ""))
	assert.False(t, fastCodec.Verify(digest, " "))
}

func TestVerifyKnownDigests(t *testing.T) {
	cases := map[string]string{
		"pbkdf2 sha256": "pbkdf2:sha256:1000$AbCd1234$2a8ba294746b04293c923bdc71ee5889bd0df3dfdc9ddfbb9b9449ca58f1b383",
		"pbkdf2 sha512": "pbkdf2:sha512:1000$AbCd1234$0dc4ca77729bf970d5b7b4e2d9068e264a312c4b5dd8b30dd43eadb40f98270f3b46176477db5ed546b5abdc76b75895d71ddfbaa943b2ec8de9829b92af0a31",
		"scrypt":        "scrypt:1024:8:1$AbCd1234$92553e61b75fbebdca0c199359ad2a5ada98428cd2e96e37572652319393df2a3d6a141d295e4ae90b35779b3f717e686df21df97fbea57666cc16c90c4f1e77",
	}
	for name, digest := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, VerifyPassword(digest, "secret"))
			assert.False(t, VerifyPassword(digest, "Secret"))
		})
	}
}

func TestVerifyBcrypt(t *testing.T) {
	digest, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyPassword(string(digest), "secret"))
	assert.False(t, VerifyPassword(string(digest), "nope"))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, digest := range []string{
		"",
		"plaintext",
		"pbkdf2:sha256:1000$salt",
		"pbkdf2:sha256:1000$$abcd",
		"pbkdf2:md5:1000$salt$abcd",
		"pbkdf2:sha256:zero$salt$abcd",
		"pbkdf2:sha256:1000$salt$not-hex",
		"argon2$salt$abcd",
		"scrypt:1:2$salt$abcd",
	} {
		assert.False(t, VerifyPassword(digest, "secret"), digest)
	}
}

func TestZeroValueCodecUsesDefaults(t *testing.T) {
	digest, err := PasswordCodec{}.Hash("x")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "pbkdf2:sha256:600000$"))
}
