package wallet

import (
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A throwaway key, never funded anywhere.
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLoadRawKey(t *testing.T) {
	t.Parallel()

	w, err := Load(Source{RawPrivateKey: testKeyHex})
	require.NoError(t, err)

	expected, err := ethcrypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, ethcrypto.PubkeyToAddress(expected.PublicKey), w.Address())
	assert.True(t, expected.Equal(w.Key()))

	// The 0x prefix is tolerated.
	prefixed, err := Load(Source{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, w.Address(), prefixed.Address())
}

func TestLoadRejectsBadSources(t *testing.T) {
	t.Parallel()

	_, err := Load(Source{})
	assert.Error(t, err)

	_, err = Load(Source{RawPrivateKey: "zz"})
	assert.Error(t, err)

	_, err = Load(Source{EncryptedKeyPath: "/nonexistent/key.json", KeyPassword: "pw"})
	assert.Error(t, err)
}

func TestEncryptedKeyRoundTrip(t *testing.T) {
	t.Parallel()

	blob, err := Encrypt(testKeyHex, "correct horse battery staple")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	w, err := Load(Source{EncryptedKeyPath: path, KeyPassword: "correct horse battery staple"})
	require.NoError(t, err)

	expected, err := ethcrypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, ethcrypto.PubkeyToAddress(expected.PublicKey), w.Address())
}

func TestEncryptedKeyWrongPassword(t *testing.T) {
	t.Parallel()

	blob, err := Encrypt(testKeyHex, "right")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	_, err = Load(Source{EncryptedKeyPath: path, KeyPassword: "wrong"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong password")

	_, err = Load(Source{EncryptedKeyPath: path})
	assert.Error(t, err)
}

func TestEncryptValidation(t *testing.T) {
	t.Parallel()

	_, err := Encrypt(testKeyHex, "")
	assert.Error(t, err)

	_, err = Encrypt("abcd", "pw")
	assert.Error(t, err)

	_, err = Encrypt("not hex at all", "pw")
	assert.Error(t, err)
}

func TestEncryptUsesFreshSalt(t *testing.T) {
	t.Parallel()

	a, err := Encrypt(testKeyHex, "pw")
	require.NoError(t, err)
	b, err := Encrypt(testKeyHex, "pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
