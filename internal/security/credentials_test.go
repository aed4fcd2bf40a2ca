package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	passphrase = []byte("correct horse battery staple")
	serviceKey = []byte(`{"type":"service_account","client_email":"sink@example.iam.gserviceaccount.com"}`)
)

func TestSealOpen(t *testing.T) {
	sealed, err := Seal(serviceKey, passphrase, DefaultKDFParams())
	require.NoError(t, err)
	assert.NotContains(t, string(sealed.Ciphertext), "service_account")

	plaintext, err := Open(sealed, passphrase)
	require.NoError(t, err)
	assert.Equal(t, serviceKey, plaintext)

	_, err = Open(sealed, []byte("wrong passphrase!!"))
	assert.Error(t, err)

	_, err = Open(sealed, nil)
	assert.ErrorIs(t, err, ErrPassphraseRequired)
}

func TestOpenDetectsTampering(t *testing.T) {
	sealed, err := Seal(serviceKey, passphrase, DefaultKDFParams())
	require.NoError(t, err)

	sealed.Ciphertext[0] ^= 0xFF
	_, err = Open(sealed, passphrase)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestSealRejectsWeakInput(t *testing.T) {
	_, err := Seal(nil, passphrase, DefaultKDFParams())
	assert.Error(t, err)

	_, err = Seal(serviceKey, []byte("short"), DefaultKDFParams())
	assert.Error(t, err)

	weak := DefaultKDFParams()
	weak.N = 1024
	_, err = Seal(serviceKey, passphrase, weak)
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	plainPath := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(plainPath, serviceKey, 0600))

	data, err := LoadCredentials(plainPath, nil)
	require.NoError(t, err)
	assert.Equal(t, serviceKey, data)

	sealed, err := Seal(serviceKey, passphrase, DefaultKDFParams())
	require.NoError(t, err)
	sealedPath := filepath.Join(dir, "key.sealed.json")
	require.NoError(t, WriteSealed(sealedPath, sealed))

	info, err := os.Stat(sealedPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err = LoadCredentials(sealedPath, passphrase)
	require.NoError(t, err)
	assert.Equal(t, serviceKey, data)

	_, err = LoadCredentials(sealedPath, nil)
	assert.ErrorIs(t, err, ErrPassphraseRequired)

	_, err = LoadCredentials(filepath.Join(dir, "absent.json"), nil)
	assert.Error(t, err)
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}
