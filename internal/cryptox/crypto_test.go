package cryptox

import (
	"crypto/rand"
	"testing"

	"github.com/dmitrijs2005/pwvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps KDF costs low so the suite stays fast; cost settings are
// configuration and do not change the derivation semantics.
var testParams = Params{Time: 1, MemoryKiB: 1024, Threads: 1}

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt-0123456789")

	key1 := DeriveKey(password, salt, testParams)
	key2 := DeriveKey(password, salt, testParams)

	assert.Equal(t, key1.b, key2.b)
	assert.Len(t, key1.b, KeySize)
}

func TestDeriveKey_DomainSeparation(t *testing.T) {
	password := []byte("secret-password")

	salt1, err := GenerateSalt(rand.Reader)
	require.NoError(t, err)
	salt2, err := GenerateSalt(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, salt1, salt2)

	key1 := DeriveKey(password, salt1, testParams)
	key2 := DeriveKey(password, salt2, testParams)

	assert.NotEqual(t, key1.b, key2.b)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt-salt-salt-salt"), testParams)

	plaintext := []byte("hello, vault")
	sealed, err := key.Seal(rand.Reader, plaintext)
	require.NoError(t, err)
	require.Greater(t, len(sealed), NonceSize+len(plaintext))

	opened, err := key.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpen_TamperDetection(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt-salt-salt-salt"), testParams)

	sealed, err := key.Seal(rand.Reader, []byte("payload"))
	require.NoError(t, err)

	// Flipping any single bit anywhere in nonce||ct||tag must fail.
	for i := range sealed {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(sealed))
			copy(tampered, sealed)
			tampered[i] ^= 1 << bit

			_, err := key.Open(tampered)
			require.ErrorIs(t, err, common.ErrDecrypt, "byte %d bit %d", i, bit)
		}
	}
}

func TestOpen_TooShort(t *testing.T) {
	key := DeriveKey([]byte("pw"), []byte("salt-salt-salt-salt"), testParams)

	_, err := key.Open([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, common.ErrDecrypt)
}

func TestOpen_WrongKey(t *testing.T) {
	key1 := DeriveKey([]byte("pw"), []byte("salt-one-salt-one-1"), testParams)
	key2 := DeriveKey([]byte("pw"), []byte("salt-two-salt-two-2"), testParams)

	sealed, err := key1.Seal(rand.Reader, []byte("payload"))
	require.NoError(t, err)

	_, err = key2.Open(sealed)
	assert.ErrorIs(t, err, common.ErrDecrypt)
}

func TestNonceUniqueness(t *testing.T) {
	n := 1_000_000
	if testing.Short() {
		n = 10_000
	}

	key := DeriveKey([]byte("pw"), []byte("salt-salt-salt-salt"), testParams)
	seen := make(map[[NonceSize]byte]struct{}, n)

	for i := 0; i < n; i++ {
		sealed, err := key.Seal(rand.Reader, nil)
		require.NoError(t, err)

		var nonce [NonceSize]byte
		copy(nonce[:], sealed[:NonceSize])
		_, dup := seen[nonce]
		require.False(t, dup, "nonce collision after %d encryptions", i)
		seen[nonce] = struct{}{}
	}
}

func TestVerifier_AcceptAndReject(t *testing.T) {
	salt, err := GenerateSalt(rand.Reader)
	require.NoError(t, err)

	key := DeriveKey([]byte("correct horse battery staple"), salt, testParams)
	verifier, err := MakeVerifier(rand.Reader, key)
	require.NoError(t, err)

	require.NoError(t, CheckVerifier(key, verifier))

	samples := 1000
	if testing.Short() {
		samples = 50
	}
	for i := 0; i < samples; i++ {
		wrong := DeriveKey(common.GenerateRandByteArray(16), salt, testParams)
		err := CheckVerifier(wrong, verifier)
		require.ErrorIs(t, err, common.ErrAuthFailed)
	}
}

func TestVerifier_TamperedBlob(t *testing.T) {
	salt, err := GenerateSalt(rand.Reader)
	require.NoError(t, err)

	key := DeriveKey([]byte("pw"), salt, testParams)
	verifier, err := MakeVerifier(rand.Reader, key)
	require.NoError(t, err)

	verifier[len(verifier)-1] ^= 0xFF
	assert.ErrorIs(t, CheckVerifier(key, verifier), common.ErrAuthFailed)
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint("github.com", "alice")
	b := Fingerprint("github.com", "alice")
	c := Fingerprint("github.com", "bob")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSealJSON_RoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	key := DeriveKey([]byte("pw"), []byte("salt-salt-salt-salt"), testParams)

	sealed, err := key.SealJSON(rand.Reader, payload{Name: "x", Count: 3})
	require.NoError(t, err)

	var got payload
	require.NoError(t, key.OpenJSON(sealed, &got))
	assert.Equal(t, payload{Name: "x", Count: 3}, got)
}

func TestWipe(t *testing.T) {
	key := NewKey([]byte{1, 2, 3, 4})
	key.Wipe()
	assert.Nil(t, key.b)

	b := []byte{9, 9, 9}
	WipeBytes(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
