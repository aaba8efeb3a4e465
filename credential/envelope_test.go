package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte("01234567890123456789012345678901") // 32 bytes
}

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	env, err := sealer.Seal([]byte("super-secret-token"))
	require.NoError(t, err)
	require.NotContains(t, env.Ciphertext, "super-secret-token")

	plaintext, err := sealer.Open(env)
	require.NoError(t, err)
	require.Equal(t, "super-secret-token", string(plaintext))
}

func TestSealProducesDistinctCiphertextEachCall(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	a, err := sealer.Seal([]byte("same-plaintext"))
	require.NoError(t, err)
	b, err := sealer.Seal([]byte("same-plaintext"))
	require.NoError(t, err)
	require.NotEqual(t, a.Ciphertext, b.Ciphertext, "fresh nonce per seal must prevent identical ciphertexts")
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)

	env, err := sealer.Seal([]byte("payload"))
	require.NoError(t, err)
	env.Ciphertext = env.Ciphertext[:len(env.Ciphertext)-4] + "abcd"

	_, err = sealer.Open(env)
	require.Error(t, err)
}

func TestNewAESGCMSealerRejectsWrongKeySize(t *testing.T) {
	_, err := NewAESGCMSealer([]byte("too-short"))
	require.Error(t, err)
}

func TestDescribeNeverExposesPlaintext(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)
	env, err := sealer.Seal([]byte("do-not-leak-me"))
	require.NoError(t, err)

	audit := Describe(env)
	require.NotContains(t, audit.Prefix, "do-not-leak-me")
	require.Greater(t, audit.Length, 0)
}

func TestStoreOpenRequiresPrivilegedContext(t *testing.T) {
	sealer, err := NewAESGCMSealer(testKey())
	require.NoError(t, err)
	store := NewStore(sealer)

	env, err := store.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = store.Open(context.Background(), env)
	require.Error(t, err)

	_, err = store.Open(WithPrivilege(context.Background()), env)
	require.NoError(t, err)
}
